package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearMembers removes every member row. Schema is preserved.
func ClearMembers(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing members table", clearLogPrefix))

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE members`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Members cleared", clearLogPrefix))
	return nil
}
