package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/morezero/member-query/internal/config"
	"github.com/morezero/member-query/internal/server"
	"github.com/morezero/member-query/pkg/db"
	"github.com/morezero/member-query/pkg/dispatcher"
	"github.com/morezero/member-query/pkg/events"
	"github.com/morezero/member-query/pkg/members"
	"github.com/morezero/member-query/pkg/orchestrator"
)

var (
	askHealthPlanID  string
	askYearOfService int
	askDataFile      string
	askVerbose       bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question locally and print the answer",
	Long: `Runs one orchestration against the configured model and prints the answer.

Members come from DATABASE_URL, or from a JSON seed file with --data-file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askHealthPlanID, "health-plan-id", "", "Restrict capability results to this health plan")
	askCmd.Flags().IntVar(&askYearOfService, "year-of-service", 0, "Restrict capability results to this year of service")
	askCmd.Flags().StringVar(&askDataFile, "data-file", "", "Read members from this JSON file instead of the database")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "Print run id, outcome and capabilities used")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	server.SetupLogging(cfg.LogLevel)
	if err := cfg.ValidateForLLM(); err != nil {
		return err
	}
	ctx := contextOrBackground(cmd.Context())

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := members.NewService(members.NewServiceParams{Store: store})
	orch, _, err := server.BuildOrchestrator(cfg, svc, &events.NoOpPublisher{})
	if err != nil {
		return err
	}

	rc := dispatcher.RequestContext{HealthPlanID: askHealthPlanID, YearOfService: askYearOfService}
	res, err := orch.Run(ctx, strings.Join(args, " "), rc)
	if err != nil {
		return fmt.Errorf("%s (%s)", orchestrator.Diagnostic(err), orchestrator.ErrorCode(err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.Answer)
	if askVerbose {
		fmt.Fprintf(out, "\nrun=%s outcome=%s iterations=%d capabilities=%s\n",
			res.RunID, res.Outcome, res.Iterations, strings.Join(res.Capabilities, ","))
	}
	return nil
}

// openStore returns the member store for ask: the data file when given, else the database.
func openStore(ctx context.Context, cfg *config.Config) (members.Store, func(), error) {
	if askDataFile != "" {
		store, err := members.LoadMemoryStore(askDataFile)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
	if err := cfg.ValidateForDB(); err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return db.NewRepository(pool), pool.Close, nil
}
