package members

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const eligibilityLogPrefix = "members:eligibility"

// GetEligibility returns the eligible months of the named member for input.Year.
// A member without an entry for the year yields an empty list.
func (s *Service) GetEligibility(ctx context.Context, input *EligibilityInput) (*EligibilityOutput, error) {
	slog.Info(fmt.Sprintf("%s - name=%s year=%s", eligibilityLogPrefix, input.Name, input.Year))

	year := strings.TrimSpace(input.Year)
	if year == "" {
		return nil, invalidArgument("year is required")
	}
	m, err := s.findByName(ctx, eligibilityLogPrefix, strings.TrimSpace(input.Name), input.Scope)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return &EligibilityOutput{Found: false}, nil
	}
	return &EligibilityOutput{Found: true, Months: m.EligibleYears[year]}, nil
}

// GetMembersByEligibilityYear lists members with at least one eligible month in input.Year.
func (s *Service) GetMembersByEligibilityYear(ctx context.Context, input *EligibilityYearInput) (*EligibleMembersOutput, error) {
	slog.Info(fmt.Sprintf("%s - listing year=%s", eligibilityLogPrefix, input.Year))

	if err := s.requireStore(); err != nil {
		return nil, err
	}
	year := strings.TrimSpace(input.Year)
	if year == "" {
		return nil, invalidArgument("year is required")
	}

	rows, err := s.store.ListMembersByEligibilityYear(ctx, year, input.Scope.filter(), s.config.EligibilityPageSize)
	if err != nil {
		return nil, internalError(fmt.Sprintf("%s - eligibility listing failed", eligibilityLogPrefix), err)
	}

	out := &EligibleMembersOutput{Year: year, Members: make([]MemberSummary, 0, len(rows))}
	for _, m := range rows {
		out.Members = append(out.Members, toSummary(m, false))
	}
	return out, nil
}
