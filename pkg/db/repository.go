package db

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoLogPrefix = "db:repository"

const memberColumns = `id, name, dob, health_plan_id, year_of_service, delta_risk_score,
	eligible_years, claims, mor, created, modified`

// comparisonOperators maps the accepted delta-risk operator names to SQL.
var comparisonOperators = map[string]string{
	"lt":  "<",
	"lte": "<=",
	"eq":  "=",
	"gte": ">=",
	"gt":  ">",
}

// Repository provides read access to member records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// FindMemberByName returns the first member (by id) whose name contains name,
// case-insensitively. Returns nil, nil when nothing matches.
func (r *Repository) FindMemberByName(ctx context.Context, name string, filter MemberFilter) (*Member, error) {
	slog.Debug(fmt.Sprintf("%s - FindMemberByName name=%s", repoLogPrefix, name))

	where, args := buildFilter(filter, 2)
	query := `SELECT ` + memberColumns + ` FROM members WHERE name ILIKE $1` + where + ` ORDER BY id LIMIT 1`
	args = append([]interface{}{"%" + escapeLike(name) + "%"}, args...)

	return scanMember(r.pool.QueryRow(ctx, query, args...))
}

// ListMembersByEligibilityYear returns members with a non-empty eligibility entry for year.
func (r *Repository) ListMembersByEligibilityYear(ctx context.Context, year string, filter MemberFilter, limit int) ([]Member, error) {
	slog.Debug(fmt.Sprintf("%s - ListMembersByEligibilityYear year=%s limit=%d", repoLogPrefix, year, limit))

	where, args := buildFilter(filter, 2)
	query := `SELECT ` + memberColumns + ` FROM members
		WHERE eligible_years -> $1 IS NOT NULL AND eligible_years -> $1 <> '[]'::jsonb` + where
	args = append([]interface{}{year}, args...)
	query += fmt.Sprintf(` ORDER BY id LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	return r.queryMembers(ctx, "ListMembersByEligibilityYear", query, args)
}

// ListMembers returns up to limit members in id order.
func (r *Repository) ListMembers(ctx context.Context, filter MemberFilter, limit int) ([]Member, error) {
	slog.Debug(fmt.Sprintf("%s - ListMembers limit=%d", repoLogPrefix, limit))

	where, args := buildFilter(filter, 1)
	query := `SELECT ` + memberColumns + ` FROM members WHERE 1=1` + where
	query += fmt.Sprintf(` ORDER BY id LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	return r.queryMembers(ctx, "ListMembers", query, args)
}

// ListMembersByDeltaRiskScore returns members whose delta risk score compares to value
// using operator (lt, lte, eq, gte, gt).
func (r *Repository) ListMembersByDeltaRiskScore(ctx context.Context, operator string, value float64, filter MemberFilter, limit int) ([]Member, error) {
	sqlOp, ok := comparisonOperators[operator]
	if !ok {
		return nil, fmt.Errorf("%s - invalid operator %q", repoLogPrefix, operator)
	}
	slog.Debug(fmt.Sprintf("%s - ListMembersByDeltaRiskScore %s %v limit=%d", repoLogPrefix, operator, value, limit))

	where, args := buildFilter(filter, 2)
	query := `SELECT ` + memberColumns + ` FROM members WHERE delta_risk_score ` + sqlOp + ` $1` + where
	args = append([]interface{}{value}, args...)
	query += fmt.Sprintf(` ORDER BY id LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	return r.queryMembers(ctx, "ListMembersByDeltaRiskScore", query, args)
}

// IsComparisonOperator reports whether op is an accepted delta-risk operator.
func IsComparisonOperator(op string) bool {
	_, ok := comparisonOperators[op]
	return ok
}

func (r *Repository) queryMembers(ctx context.Context, op, query string, args []interface{}) ([]Member, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s - %s query failed: %w", repoLogPrefix, op, err)
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		m, err := scanMemberFromRows(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - %s rows failed: %w", repoLogPrefix, op, err)
	}
	return members, nil
}

// buildFilter returns the AND clauses for filter with placeholders starting at argIdx.
func buildFilter(filter MemberFilter, argIdx int) (string, []interface{}) {
	var sb strings.Builder
	args := []interface{}{}

	if filter.HealthPlanID != "" {
		sb.WriteString(fmt.Sprintf(` AND health_plan_id = $%d`, argIdx))
		args = append(args, filter.HealthPlanID)
		argIdx++
	}
	if filter.YearOfService != 0 {
		sb.WriteString(fmt.Sprintf(` AND year_of_service = $%d`, argIdx))
		args = append(args, filter.YearOfService)
	}
	return sb.String(), args
}

// escapeLike escapes LIKE wildcards so the name is matched literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// =========================================================================
// SCAN HELPERS
// =========================================================================

func scanMember(row pgx.Row) (*Member, error) {
	m, err := scanInto(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan member failed: %w", repoLogPrefix, err)
	}
	return m, nil
}

func scanMemberFromRows(rows pgx.Rows) (*Member, error) {
	m, err := scanInto(rows.Scan)
	if err != nil {
		return nil, fmt.Errorf("%s - scan member from rows failed: %w", repoLogPrefix, err)
	}
	return m, nil
}

func scanInto(scan func(dest ...any) error) (*Member, error) {
	var m Member
	var eligible, claims, mor []byte
	if err := scan(
		&m.ID, &m.Name, &m.DOB, &m.HealthPlanID, &m.YearOfService, &m.DeltaRiskScore,
		&eligible, &claims, &mor, &m.Created, &m.Modified,
	); err != nil {
		return nil, err
	}
	if len(eligible) > 0 {
		if err := json.Unmarshal(eligible, &m.EligibleYears); err != nil {
			return nil, fmt.Errorf("eligible_years: %w", err)
		}
	}
	if len(claims) > 0 {
		if err := json.Unmarshal(claims, &m.Claims); err != nil {
			return nil, fmt.Errorf("claims: %w", err)
		}
	}
	if len(mor) > 0 {
		m.MOR = json.RawMessage(mor)
	}
	return &m, nil
}
