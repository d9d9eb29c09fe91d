package conversation

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
)

const logPrefix = "conversation:compact"

// perTurnOverhead approximates the role and framing tokens a provider adds per message.
const perTurnOverhead = 4

// TokenCounter counts the tokens of a piece of text.
type TokenCounter interface {
	Count(text string) int
}

// TikTokenCounter counts tokens with a tiktoken BPE encoding.
type TikTokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTikTokenCounter loads the named encoding (e.g. cl100k_base).
func NewTikTokenCounter(encoding string) (*TikTokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load encoding %s: %w", logPrefix, encoding, err)
	}
	return &TikTokenCounter{enc: enc}, nil
}

// Count implements TokenCounter.
func (c *TikTokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// ApproxCounter estimates four characters per token. It is used when no BPE
// encoding can be loaded.
type ApproxCounter struct{}

// Count implements TokenCounter.
func (ApproxCounter) Count(text string) int {
	return (len(text) + 3) / 4
}

// Compactor bounds the transcript view sent to the model. The System and User
// turns and the most recent KeepRecent capability results are always sent
// verbatim; older results are replaced by a short placeholder, oldest first,
// until the view fits Budget.
type Compactor struct {
	Counter    TokenCounter
	Budget     int
	KeepRecent int
}

// NewCompactor returns a Compactor. A budget of zero or less disables compaction.
func NewCompactor(counter TokenCounter, budget int) *Compactor {
	if counter == nil {
		counter = ApproxCounter{}
	}
	return &Compactor{Counter: counter, Budget: budget, KeepRecent: 1}
}

// Tokens returns the estimated size of turns.
func (c *Compactor) Tokens(turns []Turn) int {
	total := 0
	for _, t := range turns {
		total += c.Counter.Count(t.Content()) + perTurnOverhead
	}
	return total
}

// Fit returns turns unchanged when they fit the budget, otherwise a copy with
// older capability results elided. Turn order and call pairing are preserved.
func (c *Compactor) Fit(turns []Turn) []Turn {
	if c == nil || c.Budget <= 0 {
		return turns
	}
	total := c.Tokens(turns)
	if total <= c.Budget {
		return turns
	}

	var results []int
	for i, t := range turns {
		if t.Kind == KindCapabilityResult {
			results = append(results, i)
		}
	}
	keep := c.KeepRecent
	if keep < 0 {
		keep = 0
	}
	if keep > len(results) {
		keep = len(results)
	}
	candidates := results[:len(results)-keep]

	out := make([]Turn, len(turns))
	copy(out, turns)
	elided := 0
	for _, i := range candidates {
		if total <= c.Budget {
			break
		}
		before := c.Counter.Count(out[i].Content())
		marker := elision(out[i].Capability, before)
		after := c.Counter.Count(string(marker))
		if after >= before {
			continue
		}
		out[i].Result = marker
		total -= before - after
		elided++
	}

	slog.Debug(fmt.Sprintf("%s - elided %d capability results, tokens=%d budget=%d", logPrefix, elided, total, c.Budget))
	if total > c.Budget {
		slog.Warn(fmt.Sprintf("%s - transcript still exceeds budget after compaction: %d > %d", logPrefix, total, c.Budget))
	}
	return out
}

func elision(capability string, tokens int) json.RawMessage {
	b, _ := json.Marshal(fmt.Sprintf("[%s result elided: %d tokens]", capability, tokens))
	return b
}
