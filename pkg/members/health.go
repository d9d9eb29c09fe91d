package members

import (
	"context"
	"time"
)

// Health checks the member store.
func (s *Service) Health(ctx context.Context) *HealthOutput {
	dbOk := s.store != nil && s.store.Ping(ctx) == nil

	status := "healthy"
	if !dbOk {
		status = "unhealthy"
	}

	return &HealthOutput{
		Status: status,
		Checks: HealthChecks{
			Database: dbOk,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
