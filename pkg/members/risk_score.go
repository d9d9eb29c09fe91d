package members

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/morezero/member-query/pkg/db"
)

const riskScoreLogPrefix = "members:risk_score"

// GetMembersByDeltaRiskScore lists members whose delta risk score compares to
// input.Value by input.Operator (lt, lte, eq, gte, gt).
func (s *Service) GetMembersByDeltaRiskScore(ctx context.Context, input *DeltaRiskScoreInput) ([]RiskScoreEntry, error) {
	slog.Info(fmt.Sprintf("%s - operator=%s value=%v", riskScoreLogPrefix, input.Operator, input.Value))

	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if !db.IsComparisonOperator(input.Operator) {
		return nil, invalidArgument("Invalid operator %q (expected lt, lte, eq, gte or gt)", input.Operator)
	}
	if math.IsNaN(input.Value) || math.IsInf(input.Value, 0) {
		return nil, invalidArgument("value must be a finite number")
	}

	rows, err := s.store.ListMembersByDeltaRiskScore(ctx, input.Operator, input.Value, input.Scope.filter(), s.config.RiskScorePageSize)
	if err != nil {
		return nil, internalError(fmt.Sprintf("%s - risk score listing failed", riskScoreLogPrefix), err)
	}

	out := make([]RiskScoreEntry, 0, len(rows))
	for _, m := range rows {
		out = append(out, RiskScoreEntry{ID: m.ID, Name: m.Name, DeltaRiskScore: m.DeltaRiskScore})
	}
	return out, nil
}
