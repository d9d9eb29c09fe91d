package conversation

// Transcript is the append-only turn sequence owned by one run. It is not safe
// for concurrent use.
type Transcript struct {
	turns []Turn
}

// NewTranscript seeds a transcript with the system instruction and the user question.
func NewTranscript(system, question string) *Transcript {
	return &Transcript{turns: []Turn{System(system), User(question)}}
}

// Append adds turns to the end of the transcript.
func (t *Transcript) Append(turns ...Turn) {
	t.turns = append(t.turns, turns...)
}

// Turns returns a copy of the turns in order.
func (t *Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int { return len(t.turns) }

// Kinds returns the kind of each turn in order.
func (t *Transcript) Kinds() []Kind {
	out := make([]Kind, len(t.turns))
	for i, turn := range t.turns {
		out[i] = turn.Kind
	}
	return out
}
