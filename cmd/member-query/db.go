package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/morezero/member-query/internal/config"
	"github.com/morezero/member-query/pkg/db"
)

const defaultTestDatabase = "members_test"

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPool(cmd.Context(), func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
			migrations, err := db.LoadMigrationFiles(cfg.MigrationPath)
			if err != nil {
				return fmt.Errorf("load migrations: %w", err)
			}
			if err := db.RunMigrations(ctx, pool, migrations); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPool(cmd.Context(), func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
			exists, err := db.MigrationStatus(ctx, pool, cfg.MigrationPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "members table present: %t\n", exists)
			return nil
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all member records; schema is preserved",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPool(cmd.Context(), func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
			if err := db.ClearMembers(ctx, pool); err != nil {
				return fmt.Errorf("clear members: %w", err)
			}
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Upsert members from a JSON array of member documents (default SEED_FILE)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPool(cmd.Context(), func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
			path := cfg.SeedFile
			if len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("seed file is required (argument or SEED_FILE)")
			}
			n, err := db.SeedMembers(ctx, pool, path)
			if err != nil {
				return fmt.Errorf("seed members: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d members from %s.\n", n, path)
			return nil
		})
	},
}

var ensureDBCmd = &cobra.Command{
	Use:   "ensure-db [name]",
	Short: "Create the database if missing (default name: " + defaultTestDatabase + ") on the DATABASE_URL host",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.ValidateForDB(); err != nil {
			return err
		}
		name := defaultTestDatabase
		if len(args) > 0 && args[0] != "" {
			name = args[0]
		}
		if err := db.EnsureDatabase(contextOrBackground(cmd.Context()), cfg.DatabaseURL, name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database %q is ready.\n", name)
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd)
}

// withPool loads config, connects to the database and runs fn.
func withPool(ctx context.Context, fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx = contextOrBackground(ctx)
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
