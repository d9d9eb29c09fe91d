package members

import (
	"context"
	"fmt"
	"log/slog"
)

const listLogPrefix = "members:list"

// GetAllMembers lists members in id order, up to input.Limit (default 50).
func (s *Service) GetAllMembers(ctx context.Context, input *ListMembersInput) ([]MemberSummary, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}

	limit := s.config.DefaultListLimit
	if input.Limit != nil {
		limit = *input.Limit
	}
	if limit < 1 || limit > s.config.MaxListLimit {
		return nil, invalidArgument("limit must be between 1 and %d", s.config.MaxListLimit)
	}
	slog.Info(fmt.Sprintf("%s - limit=%d", listLogPrefix, limit))

	rows, err := s.store.ListMembers(ctx, input.Scope.filter(), limit)
	if err != nil {
		return nil, internalError(fmt.Sprintf("%s - member listing failed", listLogPrefix), err)
	}

	out := make([]MemberSummary, 0, len(rows))
	for _, m := range rows {
		out = append(out, toSummary(m, true))
	}
	return out, nil
}
