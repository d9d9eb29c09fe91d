package members

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/morezero/member-query/pkg/db"
)

// MemoryStore is a Store over a fixed in-memory member set, used by the ask
// command's --data-file mode and by tests. It mirrors the repository's
// matching and ordering rules.
type MemoryStore struct {
	members []db.Member
}

// NewMemoryStore copies members and sorts them by id.
func NewMemoryStore(members []db.Member) *MemoryStore {
	cp := make([]db.Member, len(members))
	copy(cp, members)
	sort.Slice(cp, func(i, j int) bool { return cp[i].ID < cp[j].ID })
	return &MemoryStore{members: cp}
}

// LoadMemoryStore builds a MemoryStore from a seed file.
func LoadMemoryStore(path string) (*MemoryStore, error) {
	docs, err := db.LoadMemberDocuments(path)
	if err != nil {
		return nil, err
	}
	members := make([]db.Member, 0, len(docs))
	for _, d := range docs {
		m, err := db.MemberFromDocument(d)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return NewMemoryStore(members), nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// FindMemberByName returns the first case-insensitive substring match by id.
func (s *MemoryStore) FindMemberByName(_ context.Context, name string, filter db.MemberFilter) (*db.Member, error) {
	needle := strings.ToLower(name)
	for i := range s.members {
		m := s.members[i]
		if inScope(m, filter) && strings.Contains(strings.ToLower(m.Name), needle) {
			return &m, nil
		}
	}
	return nil, nil
}

// ListMembersByEligibilityYear returns members with a non-empty entry for year.
func (s *MemoryStore) ListMembersByEligibilityYear(_ context.Context, year string, filter db.MemberFilter, limit int) ([]db.Member, error) {
	return s.collect(filter, limit, func(m db.Member) bool {
		return len(m.EligibleYears[year]) > 0
	}), nil
}

// ListMembers returns up to limit members.
func (s *MemoryStore) ListMembers(_ context.Context, filter db.MemberFilter, limit int) ([]db.Member, error) {
	return s.collect(filter, limit, func(db.Member) bool { return true }), nil
}

// ListMembersByDeltaRiskScore compares each member's score with value. Members
// without a score never match.
func (s *MemoryStore) ListMembersByDeltaRiskScore(_ context.Context, operator string, value float64, filter db.MemberFilter, limit int) ([]db.Member, error) {
	var cmp func(a float64) bool
	switch operator {
	case "lt":
		cmp = func(a float64) bool { return a < value }
	case "lte":
		cmp = func(a float64) bool { return a <= value }
	case "eq":
		cmp = func(a float64) bool { return a == value }
	case "gte":
		cmp = func(a float64) bool { return a >= value }
	case "gt":
		cmp = func(a float64) bool { return a > value }
	default:
		return nil, fmt.Errorf("members:memory_store - invalid operator %q", operator)
	}
	return s.collect(filter, limit, func(m db.Member) bool {
		return m.DeltaRiskScore != nil && cmp(*m.DeltaRiskScore)
	}), nil
}

func (s *MemoryStore) collect(filter db.MemberFilter, limit int, match func(db.Member) bool) []db.Member {
	out := []db.Member{}
	for _, m := range s.members {
		if len(out) >= limit {
			break
		}
		if inScope(m, filter) && match(m) {
			out = append(out, m)
		}
	}
	return out
}

func inScope(m db.Member, filter db.MemberFilter) bool {
	if filter.HealthPlanID != "" && (m.HealthPlanID == nil || *m.HealthPlanID != filter.HealthPlanID) {
		return false
	}
	if filter.YearOfService != 0 && (m.YearOfService == nil || *m.YearOfService != filter.YearOfService) {
		return false
	}
	return true
}

var _ Store = (*MemoryStore)(nil)
