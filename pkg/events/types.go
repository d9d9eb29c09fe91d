// Package events defines the run-completed event and its publishers.
package events

// Run outcomes carried by RunCompletedEvent.
const (
	OutcomeCompleted = "completed"
	OutcomeExhausted = "exhausted"
	OutcomeFailed    = "failed"
)

// RunCompletedEvent is emitted after every orchestration run.
type RunCompletedEvent struct {
	RunID         string   `json:"runId"`
	Outcome       string   `json:"outcome"`
	ErrorCode     string   `json:"errorCode,omitempty"`
	Iterations    int      `json:"iterations"`
	Capabilities  []string `json:"capabilities"`
	DurationMs    int64    `json:"durationMs"`
	HealthPlanID  string   `json:"healthPlanId,omitempty"`
	YearOfService int      `json:"yearOfService,omitempty"`
	Timestamp     string   `json:"timestamp"`
}
