// Package members implements the read-only member capabilities the model may call.
package members

import (
	"context"
	"fmt"

	"github.com/morezero/member-query/pkg/db"
)

const (
	defaultEligibilityPageSize = 50
	defaultListLimit           = 50
	defaultMaxListLimit        = 500
	defaultRiskScorePageSize   = 5
)

// Store is the record store the capabilities query. *db.Repository implements it.
type Store interface {
	FindMemberByName(ctx context.Context, name string, filter db.MemberFilter) (*db.Member, error)
	ListMembersByEligibilityYear(ctx context.Context, year string, filter db.MemberFilter, limit int) ([]db.Member, error)
	ListMembers(ctx context.Context, filter db.MemberFilter, limit int) ([]db.Member, error)
	ListMembersByDeltaRiskScore(ctx context.Context, operator string, value float64, filter db.MemberFilter, limit int) ([]db.Member, error)
	Ping(ctx context.Context) error
}

// Config holds page sizes for the listing capabilities.
type Config struct {
	EligibilityPageSize int
	DefaultListLimit    int
	MaxListLimit        int
	RiskScorePageSize   int
}

// DefaultConfig returns the default page sizes.
func DefaultConfig() Config {
	return Config{
		EligibilityPageSize: defaultEligibilityPageSize,
		DefaultListLimit:    defaultListLimit,
		MaxListLimit:        defaultMaxListLimit,
		RiskScorePageSize:   defaultRiskScorePageSize,
	}
}

// Service holds the member capabilities.
type Service struct {
	store  Store
	config Config
}

// NewServiceParams holds parameters for NewService.
type NewServiceParams struct {
	Store  Store
	Config Config
}

// NewService creates a new Service. Zero config values take defaults.
func NewService(params NewServiceParams) *Service {
	cfg := params.Config
	if cfg.EligibilityPageSize <= 0 {
		cfg.EligibilityPageSize = defaultEligibilityPageSize
	}
	if cfg.DefaultListLimit <= 0 {
		cfg.DefaultListLimit = defaultListLimit
	}
	if cfg.MaxListLimit <= 0 {
		cfg.MaxListLimit = defaultMaxListLimit
	}
	if cfg.RiskScorePageSize <= 0 {
		cfg.RiskScorePageSize = defaultRiskScorePageSize
	}
	return &Service{store: params.Store, config: cfg}
}

func (s *Service) requireStore() error {
	if s.store == nil {
		return internalError("Member store not configured", nil)
	}
	return nil
}

func (s Scope) filter() db.MemberFilter {
	return db.MemberFilter{HealthPlanID: s.HealthPlanID, YearOfService: s.YearOfService}
}

// findByName is shared by the per-member lookups.
func (s *Service) findByName(ctx context.Context, logPrefix, name string, scope Scope) (*db.Member, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, invalidArgument("name is required")
	}
	m, err := s.store.FindMemberByName(ctx, name, scope.filter())
	if err != nil {
		return nil, internalError(fmt.Sprintf("%s - member lookup failed", logPrefix), err)
	}
	return m, nil
}

func toSummary(m db.Member, withScope bool) MemberSummary {
	out := MemberSummary{
		ID:             m.ID,
		Name:           m.Name,
		DeltaRiskScore: m.DeltaRiskScore,
	}
	if m.DOB != nil {
		dob := m.DOB.Format("2006-01-02")
		out.DateOfBirth = &dob
	}
	if withScope {
		out.HealthPlanID = m.HealthPlanID
		out.YearOfService = m.YearOfService
	}
	return out
}

var _ Store = (*db.Repository)(nil)
