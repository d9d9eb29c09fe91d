package members

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const claimsLogPrefix = "members:claims"

// GetClaims returns the claims of the named member.
func (s *Service) GetClaims(ctx context.Context, input *MemberNameInput) (*ClaimsOutput, error) {
	slog.Info(fmt.Sprintf("%s - name=%s", claimsLogPrefix, input.Name))

	m, err := s.findByName(ctx, claimsLogPrefix, strings.TrimSpace(input.Name), input.Scope)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return &ClaimsOutput{Found: false}, nil
	}

	out := &ClaimsOutput{Found: true, Claims: make([]ClaimSummary, 0, len(m.Claims))}
	for _, c := range m.Claims {
		out.Claims = append(out.Claims, ClaimSummary{
			ClaimID:           c.ClaimID,
			TotalChargeAmount: c.TotalChargeAmount,
			Status:            c.ClaimStatus,
		})
	}
	return out, nil
}
