package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const seedLogPrefix = "db:seed"

var dobLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

// LoadMemberDocuments reads a JSON array of member documents from path.
func LoadMemberDocuments(path string) ([]MemberDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s - read %s: %w", seedLogPrefix, path, err)
	}
	var docs []MemberDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("%s - parse %s: %w", seedLogPrefix, path, err)
	}
	for i, d := range docs {
		if strings.TrimSpace(d.MBI) == "" || strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("%s - document %d: MBI and Name are required", seedLogPrefix, i)
		}
		if _, err := parseDOB(d.DOB); err != nil {
			return nil, fmt.Errorf("%s - document %d (%s): %w", seedLogPrefix, i, d.MBI, err)
		}
	}
	return docs, nil
}

// SeedMembers loads member documents from path and upserts them by MBI in one transaction.
// Returns the number of documents written.
func SeedMembers(ctx context.Context, pool *pgxpool.Pool, path string) (int, error) {
	slog.Info(fmt.Sprintf("%s - seeding from %s", seedLogPrefix, path))

	docs, err := LoadMemberDocuments(path)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		slog.Info(fmt.Sprintf("%s - no members to seed", seedLogPrefix))
		return 0, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s - begin tx: %w", seedLogPrefix, err)
	}
	defer tx.Rollback(ctx)

	for _, d := range docs {
		args, err := memberDocumentArgs(d)
		if err != nil {
			return 0, err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO members (id, name, dob, health_plan_id, year_of_service, delta_risk_score,
			                      eligible_years, claims, mor)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name,
			   dob = EXCLUDED.dob,
			   health_plan_id = EXCLUDED.health_plan_id,
			   year_of_service = EXCLUDED.year_of_service,
			   delta_risk_score = EXCLUDED.delta_risk_score,
			   eligible_years = EXCLUDED.eligible_years,
			   claims = EXCLUDED.claims,
			   mor = EXCLUDED.mor,
			   modified = NOW()`,
			args...)
		if err != nil {
			return 0, fmt.Errorf("%s - upsert member %s: %w", seedLogPrefix, d.MBI, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s - commit: %w", seedLogPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - seeded %d members", seedLogPrefix, len(docs)))
	return len(docs), nil
}

// memberDocumentArgs converts a document to the insert arguments, in column order.
func memberDocumentArgs(d MemberDocument) ([]interface{}, error) {
	dob, err := parseDOB(d.DOB)
	if err != nil {
		return nil, fmt.Errorf("%s - member %s: %w", seedLogPrefix, d.MBI, err)
	}

	eligible := d.EligibleYear
	if eligible == nil {
		eligible = map[string][]int{}
	}
	eligibleJSON, err := json.Marshal(eligible)
	if err != nil {
		return nil, fmt.Errorf("%s - member %s eligible_year: %w", seedLogPrefix, d.MBI, err)
	}
	claims := d.Claims
	if claims == nil {
		claims = []Claim{}
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("%s - member %s claims: %w", seedLogPrefix, d.MBI, err)
	}
	mor := []byte(d.MOR)
	if len(mor) == 0 || string(mor) == "null" {
		mor = []byte("{}")
	}

	var healthPlanID *string
	if d.HealthPlanID != "" {
		healthPlanID = &d.HealthPlanID
	}
	var yearOfService *int
	if d.YearOfService != 0 {
		yearOfService = &d.YearOfService
	}

	return []interface{}{
		d.MBI, d.Name, dob, healthPlanID, yearOfService, d.DeltaRiskScore,
		string(eligibleJSON), string(claimsJSON), string(mor),
	}, nil
}

// parseDOB accepts a date or timestamp. Empty means unknown.
func parseDOB(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized DOB %q", s)
}

// MemberFromDocument converts a seed document to the row shape returned by the repository.
func MemberFromDocument(d MemberDocument) (Member, error) {
	dob, err := parseDOB(d.DOB)
	if err != nil {
		return Member{}, fmt.Errorf("%s - member %s: %w", seedLogPrefix, d.MBI, err)
	}
	m := Member{
		ID:             d.MBI,
		Name:           d.Name,
		DOB:            dob,
		DeltaRiskScore: d.DeltaRiskScore,
		EligibleYears:  d.EligibleYear,
		Claims:         d.Claims,
		MOR:            d.MOR,
	}
	if d.HealthPlanID != "" {
		hp := d.HealthPlanID
		m.HealthPlanID = &hp
	}
	if d.YearOfService != 0 {
		ys := d.YearOfService
		m.YearOfService = &ys
	}
	if m.EligibleYears == nil {
		m.EligibleYears = map[string][]int{}
	}
	return m, nil
}
