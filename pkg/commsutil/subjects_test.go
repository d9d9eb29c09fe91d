package commsutil

import "testing"

func TestBuildOutcomeSubject(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		outcome string
		want    string
	}{
		{"completed", SubjectRunCompleted, "completed", "member.query.completed.completed"},
		{"exhausted", SubjectRunCompleted, "exhausted", "member.query.completed.exhausted"},
		{"custom base", "audit.runs", "failed", "audit.runs.failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildOutcomeSubject(tt.base, tt.outcome)
			if got != tt.want {
				t.Errorf("commsutil:subjects_test - BuildOutcomeSubject(%q, %q) = %q, want %q", tt.base, tt.outcome, got, tt.want)
			}
		})
	}
}
