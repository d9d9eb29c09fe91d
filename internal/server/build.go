package server

import (
	"fmt"
	"log/slog"

	"github.com/morezero/member-query/internal/config"
	"github.com/morezero/member-query/pkg/catalog"
	"github.com/morezero/member-query/pkg/conversation"
	"github.com/morezero/member-query/pkg/dispatcher"
	"github.com/morezero/member-query/pkg/events"
	"github.com/morezero/member-query/pkg/llm"
	"github.com/morezero/member-query/pkg/members"
	"github.com/morezero/member-query/pkg/orchestrator"
)

const buildLogPrefix = "server:build"

// LLMOptions maps configuration to model client options.
func LLMOptions(cfg *config.Config) llm.Options {
	retry := llm.DefaultRetryConfig()
	retry.MaxRetries = cfg.LLMMaxRetries

	opts := llm.Options{
		Provider:          cfg.LLMProvider,
		MaxTokens:         cfg.LLMMaxTokens,
		RequestsPerSecond: cfg.LLMRequestsPerSecond,
		Burst:             cfg.LLMBurst,
		Retry:             retry,
	}
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		opts.APIKey = cfg.AnthropicAPIKey
		opts.Model = cfg.AnthropicModel
	default:
		opts.APIKey = cfg.OpenAIAPIKey
		opts.BaseURL = cfg.OpenAIBaseURL
		opts.Model = cfg.OpenAIModel
	}
	return opts
}

// NewCompactor returns the transcript compactor for cfg, or nil when no budget
// is configured. Without a loadable BPE encoding it falls back to estimating.
func NewCompactor(cfg *config.Config) *conversation.Compactor {
	if cfg.TranscriptTokenBudget <= 0 {
		return nil
	}
	var counter conversation.TokenCounter
	tk, err := conversation.NewTikTokenCounter(cfg.TokenizerEncoding)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - %v; estimating tokens instead", buildLogPrefix, err))
		counter = conversation.ApproxCounter{}
	} else {
		counter = tk
	}
	return conversation.NewCompactor(counter, cfg.TranscriptTokenBudget)
}

// BuildOrchestrator assembles catalog, dispatcher, model client and orchestrator
// around svc.
func BuildOrchestrator(cfg *config.Config, svc *members.Service, publisher events.EventPublisher) (*orchestrator.Orchestrator, *catalog.Catalog, error) {
	client, err := llm.New(LLMOptions(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("%s - failed to create model client: %w", buildLogPrefix, err)
	}
	return BuildWithClient(cfg, svc, publisher, client)
}

// BuildWithClient is BuildOrchestrator with an explicit model client.
func BuildWithClient(cfg *config.Config, svc *members.Service, publisher events.EventPublisher, client llm.Client) (*orchestrator.Orchestrator, *catalog.Catalog, error) {
	cat, err := catalog.Load(cfg.CatalogManifestFile)
	if err != nil {
		return nil, nil, fmt.Errorf("%s - failed to load catalog: %w", buildLogPrefix, err)
	}

	disp, err := dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{
		Catalog:         cat,
		Members:         svc,
		StrictArguments: cfg.StrictArguments,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s - failed to create dispatcher: %w", buildLogPrefix, err)
	}

	routes := disp.Routes()
	slog.Info(fmt.Sprintf("%s - routing %d capabilities: %v", buildLogPrefix, len(routes), routes))

	orch, err := orchestrator.New(orchestrator.Params{
		Client:        client,
		Catalog:       cat,
		Dispatcher:    disp,
		Publisher:     publisher,
		Compactor:     NewCompactor(cfg),
		MaxIterations: cfg.MaxIterations,
		Timeout:       cfg.RequestTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s - failed to create orchestrator: %w", buildLogPrefix, err)
	}
	return orch, cat, nil
}
