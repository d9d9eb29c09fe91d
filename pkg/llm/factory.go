package llm

import (
	"fmt"
	"log/slog"
)

const factoryLogPrefix = "llm:factory"

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Options selects and tunes the model provider.
type Options struct {
	Provider          string
	APIKey            string
	BaseURL           string
	Model             string
	MaxTokens         int
	RequestsPerSecond float64
	Burst             int
	Retry             RetryConfig
}

// New builds the provider client wrapped with retry and rate limiting.
func New(opts Options) (Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%s - API key is required for provider %q", factoryLogPrefix, opts.Provider)
	}
	if err := opts.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("%s - %w", factoryLogPrefix, err)
	}

	var base Client
	switch opts.Provider {
	case ProviderOpenAI:
		base = NewOpenAIClient(opts.APIKey, opts.BaseURL, opts.Model, opts.MaxTokens)
	case ProviderAnthropic:
		base = NewAnthropicClient(opts.APIKey, opts.Model, opts.MaxTokens)
	default:
		return nil, fmt.Errorf("%s - unsupported provider %q", factoryLogPrefix, opts.Provider)
	}

	slog.Info(fmt.Sprintf("%s - provider=%s model=%s rps=%v burst=%d retries=%d",
		factoryLogPrefix, opts.Provider, opts.Model, opts.RequestsPerSecond, opts.Burst, opts.Retry.MaxRetries))
	return NewRateLimitedClient(NewRetryingClient(base, opts.Retry), opts.RequestsPerSecond, opts.Burst), nil
}
