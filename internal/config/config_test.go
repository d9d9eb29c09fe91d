package config

import (
	"os"
	"testing"
	"time"
)

var allEnvVars = []string{
	"HTTP_ADDR", "HTTP_PORT", "HEALTH_CHECK_TIMEOUT", "CORS_ALLOWED_ORIGINS",
	"REQUEST_TIMEOUT", "DATABASE_URL", "RUN_MIGRATIONS", "MIGRATION_PATH", "SEED_FILE",
	"LLM_PROVIDER", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
	"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "LLM_MAX_TOKENS",
	"LLM_REQUESTS_PER_SECOND", "LLM_BURST", "LLM_MAX_RETRIES",
	"MAX_ITERATIONS", "TRANSCRIPT_TOKEN_BUDGET", "TOKENIZER_ENCODING",
	"STRICT_ARGUMENTS", "CATALOG_MANIFEST_FILE",
	"COMMS_URL", "SERVICE_NAME", "QUERY_SUBJECT", "RUN_EVENT_SUBJECT", "QUERY_CONCURRENCY", "LOG_LEVEL",
}

func clearEnv() {
	for _, env := range allEnvVars {
		os.Unsetenv(env)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}

	if cfg.HTTPPort != 8000 {
		t.Errorf("config:config_test - HTTPPort = %d, want 8000", cfg.HTTPPort)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Errorf("config:config_test - RequestTimeout = %v, want 60s", cfg.RequestTimeout)
	}
	if cfg.HealthCheckTimeout != 5*time.Second {
		t.Errorf("config:config_test - HealthCheckTimeout = %v, want 5s", cfg.HealthCheckTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 4 {
		t.Errorf("config:config_test - CORSAllowedOrigins = %v, want 4 origins", cfg.CORSAllowedOrigins)
	}
	if cfg.RunMigrations {
		t.Error("config:config_test - expected RunMigrations=false by default")
	}
	if cfg.MigrationPath != "migrations" {
		t.Errorf("config:config_test - MigrationPath = %q, want %q", cfg.MigrationPath, "migrations")
	}
	if cfg.LLMProvider != ProviderOpenAI {
		t.Errorf("config:config_test - LLMProvider = %q, want %q", cfg.LLMProvider, ProviderOpenAI)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("config:config_test - OpenAIModel = %q, want gpt-4o-mini", cfg.OpenAIModel)
	}
	if cfg.MaxIterations != 6 {
		t.Errorf("config:config_test - MaxIterations = %d, want 6", cfg.MaxIterations)
	}
	if cfg.TranscriptTokenBudget != 0 {
		t.Errorf("config:config_test - TranscriptTokenBudget = %d, want 0", cfg.TranscriptTokenBudget)
	}
	if cfg.TokenizerEncoding != "cl100k_base" {
		t.Errorf("config:config_test - TokenizerEncoding = %q, want cl100k_base", cfg.TokenizerEncoding)
	}
	if !cfg.StrictArguments {
		t.Error("config:config_test - expected StrictArguments=true by default")
	}
	if cfg.COMMSURL != "" {
		t.Errorf("config:config_test - COMMSURL = %q, want empty", cfg.COMMSURL)
	}
	if cfg.QuerySubject != "member.query.v1" {
		t.Errorf("config:config_test - QuerySubject = %q, want member.query.v1", cfg.QuerySubject)
	}
	if cfg.RunEventSubject != "member.query.completed" {
		t.Errorf("config:config_test - RunEventSubject = %q, want member.query.completed", cfg.RunEventSubject)
	}
	if cfg.QueryConcurrency != 16 {
		t.Errorf("config:config_test - QueryConcurrency = %d, want 16", cfg.QueryConcurrency)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("config:config_test - LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.ListenAddr() != ":8000" {
		t.Errorf("config:config_test - ListenAddr = %q, want :8000", cfg.ListenAddr())
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv()
	overrides := map[string]string{
		"HTTP_ADDR":               "127.0.0.1:9000",
		"REQUEST_TIMEOUT":         "10s",
		"DATABASE_URL":            "postgres://test@localhost/test",
		"RUN_MIGRATIONS":          "true",
		"LLM_PROVIDER":            " Anthropic ",
		"ANTHROPIC_API_KEY":       "sk-ant",
		"MAX_ITERATIONS":          "3",
		"TRANSCRIPT_TOKEN_BUDGET": "4000",
		"STRICT_ARGUMENTS":        "false",
		"CORS_ALLOWED_ORIGINS":    "http://a.example,http://b.example",
		"COMMS_URL":               "nats://custom:4222",
		"LOG_LEVEL":               "debug",
	}
	for key, val := range overrides {
		os.Setenv(key, val)
	}
	defer clearEnv()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}

	if cfg.ListenAddr() != "127.0.0.1:9000" {
		t.Errorf("config:config_test - ListenAddr = %q, want 127.0.0.1:9000", cfg.ListenAddr())
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("config:config_test - RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	if !cfg.RunMigrations {
		t.Error("config:config_test - expected RunMigrations=true")
	}
	if cfg.LLMProvider != ProviderAnthropic {
		t.Errorf("config:config_test - LLMProvider = %q, want anthropic", cfg.LLMProvider)
	}
	if cfg.MaxIterations != 3 {
		t.Errorf("config:config_test - MaxIterations = %d, want 3", cfg.MaxIterations)
	}
	if cfg.TranscriptTokenBudget != 4000 {
		t.Errorf("config:config_test - TranscriptTokenBudget = %d, want 4000", cfg.TranscriptTokenBudget)
	}
	if cfg.StrictArguments {
		t.Error("config:config_test - expected StrictArguments=false")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://b.example" {
		t.Errorf("config:config_test - CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.COMMSURL != "nats://custom:4222" {
		t.Errorf("config:config_test - COMMSURL = %q", cfg.COMMSURL)
	}
	if err := cfg.ValidateForServe(); err != nil {
		t.Errorf("config:config_test - ValidateForServe: %v", err)
	}
}

func TestValidateForLLM(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"openai with key", func(c *Config) { c.OpenAIAPIKey = "sk" }, false},
		{"openai without key", func(c *Config) {}, true},
		{"anthropic without key", func(c *Config) { c.LLMProvider = ProviderAnthropic }, true},
		{"unknown provider", func(c *Config) { c.LLMProvider = "llama"; c.OpenAIAPIKey = "sk" }, true},
		{"zero iterations", func(c *Config) { c.OpenAIAPIKey = "sk"; c.MaxIterations = 0 }, true},
		{"negative budget", func(c *Config) { c.OpenAIAPIKey = "sk"; c.TranscriptTokenBudget = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{LLMProvider: ProviderOpenAI, MaxIterations: 6, LLMMaxTokens: 1024}
			tt.mutate(c)
			err := c.ValidateForLLM()
			if (err != nil) != tt.wantErr {
				t.Errorf("config:config_test - ValidateForLLM() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateForDB(t *testing.T) {
	c := &Config{}
	if err := c.ValidateForDB(); err == nil {
		t.Error("config:config_test - expected error for empty DATABASE_URL")
	}
	c.DatabaseURL = "postgres://x"
	if err := c.ValidateForDB(); err != nil {
		t.Errorf("config:config_test - unexpected error: %v", err)
	}
}

func TestValidateForServe_QueryConcurrency(t *testing.T) {
	c := &Config{
		DatabaseURL:        "postgres://x",
		LLMProvider:        ProviderOpenAI,
		OpenAIAPIKey:       "sk",
		MaxIterations:      6,
		LLMMaxTokens:       1024,
		RequestTimeout:     time.Second,
		HealthCheckTimeout: time.Second,
		QueryConcurrency:   4,
	}
	if err := c.ValidateForServe(); err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}
	c.QueryConcurrency = 0
	if err := c.ValidateForServe(); err == nil {
		t.Error("config:config_test - expected error for QUERY_CONCURRENCY=0")
	}
}
