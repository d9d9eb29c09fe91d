package commsutil

import "fmt"

// Default COMMS subjects.
const (
	SubjectQuery        = "member.query.v1"
	SubjectRunCompleted = "member.query.completed"
)

// BuildOutcomeSubject builds the per-outcome run event subject, e.g.
// member.query.completed.exhausted.
func BuildOutcomeSubject(base, outcome string) string {
	return fmt.Sprintf("%s.%s", base, outcome)
}
