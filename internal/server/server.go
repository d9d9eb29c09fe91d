// Package server wires the member query service: record store, capability
// catalog, dispatcher, model client, orchestrator, HTTP API and COMMS transport.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/member-query/internal/config"
	"github.com/morezero/member-query/pkg/catalog"
	"github.com/morezero/member-query/pkg/commsutil"
	"github.com/morezero/member-query/pkg/db"
	"github.com/morezero/member-query/pkg/dispatcher"
	"github.com/morezero/member-query/pkg/events"
	"github.com/morezero/member-query/pkg/members"
	"github.com/morezero/member-query/pkg/orchestrator"
)

const logPrefix = "server:server"

// queryRunner answers one question.
type queryRunner interface {
	Run(ctx context.Context, question string, rc dispatcher.RequestContext) (*orchestrator.Result, error)
}

// healthChecker reports record store health.
type healthChecker interface {
	Health(ctx context.Context) *members.HealthOutput
}

// Server serves queries over HTTP and, when configured, COMMS.
type Server struct {
	cfg     *config.Config
	runner  queryRunner
	catalog *catalog.Catalog
	health  healthChecker

	inflight sync.WaitGroup
}

// Deps holds the collaborators of a Server.
type Deps struct {
	Config  *config.Config
	Runner  queryRunner
	Catalog *catalog.Catalog
	Health  healthChecker
}

// New creates a Server.
func New(deps Deps) *Server {
	return &Server{cfg: deps.Config, runner: deps.Runner, catalog: deps.Catalog, health: deps.Health}
}

// SetupLogging installs the default text logger at level (debug, info, warn, error).
func SetupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	SetupLogging(cfg.LogLevel)
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting member-query", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 1: Connect to database
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
	}
	defer pool.Close()

	// Step 1b: Run migrations and seed if enabled
	if cfg.RunMigrations {
		migrations, err := db.LoadMigrationFiles(cfg.MigrationPath)
		if err != nil {
			return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
		}
		if err := db.RunMigrations(ctx, pool, migrations); err != nil {
			return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
		}
		if cfg.SeedFile != "" {
			if _, err := db.SeedMembers(ctx, pool, cfg.SeedFile); err != nil {
				return fmt.Errorf("%s - failed to seed members: %w", logPrefix, err)
			}
		}
	}

	svc := members.NewService(members.NewServiceParams{Store: db.NewRepository(pool)})

	// Step 2: Connect to COMMS when configured
	var nc *comms.Conn
	var publisher events.EventPublisher = &events.NoOpPublisher{}
	if cfg.COMMSURL != "" {
		nc, err = commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
		if err != nil {
			return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
		}
		defer commsutil.Drain(nc)
		publisher = events.NewCommsPublisher(nc, &events.CommsPublisherOpts{Subject: cfg.RunEventSubject})
	}

	// Step 3: Build the orchestrator
	orch, cat, err := BuildOrchestrator(cfg, svc, publisher)
	if err != nil {
		return err
	}
	s := New(Deps{Config: cfg, Runner: orch, Catalog: cat, Health: svc})

	// Step 4: Serve queries over COMMS
	var sub *comms.Subscription
	if nc != nil {
		sub, err = s.Subscribe(ctx, nc, cfg.QuerySubject)
		if err != nil {
			return err
		}
	}

	// Step 5: Start HTTP server
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - member-query is ready (%d capabilities, max %d iterations)", logPrefix, cat.Len(), orch.MaxIterations()))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn(fmt.Sprintf("%s - HTTP shutdown: %v", logPrefix, err))
	}
	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			slog.Warn(fmt.Sprintf("%s - unsubscribe: %v", logPrefix, err))
		}
		s.Wait()
	}

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}
