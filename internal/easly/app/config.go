package app

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopeasly/easly/common/environment"
	"github.com/shopeasly/easly/internal/easly/agent"
	"github.com/shopeasly/easly/internal/easly/llm"
	"github.com/shopeasly/easly/internal/easly/ratelimit"
	"github.com/shopeasly/easly/internal/easly/session"
)

// Provider names accepted in EASLY_LLM_PROVIDERS.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderLocal     = "local"
)

// DefaultProviderOrder is the fallback order when EASLY_LLM_PROVIDERS is
// unset.
var DefaultProviderOrder = []string{ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderLocal}

// Config holds application configuration.
type Config struct {
	// HTTPAddr is the listen address of the HTTP server.
	HTTPAddr     string
	DatabasePath string

	LogLevel  string
	LogFormat string

	RateMax    int
	RateWindow time.Duration

	SessionTTL time.Duration
	// SessionSweep is how often expired sessions are purged from the
	// database.
	SessionSweep time.Duration

	AgentMaxSteps int
	// AgentTemperature is the sampling temperature of the agent's final
	// answer.
	AgentTemperature float64
	// HistoryLimit is the number of chat lines handed to the agent as
	// context.
	HistoryLimit int

	// ScopeFilter turns the off-topic guardrail on or off.
	ScopeFilter bool
	// ScopeFile optionally replaces the embedded scope keyword lists.
	ScopeFile string
	// AlertExpr is the packing alert predicate; empty keeps the catalog
	// default.
	AlertExpr string

	UploadsDir    string
	UploadsPrefix string

	LLMTimeout time.Duration
	// Providers is the provider fallback order. Providers without
	// credentials are skipped.
	Providers []string

	GeminiAPIKey    string
	GeminiModel     string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	LocalURL        string
	LocalModel      string
}

// LoadConfig reads configuration from the environment. Call
// environment.LoadDotEnv first to pick up a .env file.
func LoadConfig() *Config {
	return &Config{
		HTTPAddr:     environment.StringOr("EASLY_HTTP_ADDR", ":3000"),
		DatabasePath: environment.StringOr("EASLY_DB_PATH", "./easly.db"),

		LogLevel:  environment.StringOr("EASLY_LOG_LEVEL", "info"),
		LogFormat: environment.StringOr("EASLY_LOG_FORMAT", "text"),

		RateMax:    environment.IntOr("EASLY_RATE_MAX", ratelimit.DefaultMax),
		RateWindow: environment.DurationOr("EASLY_RATE_WINDOW", ratelimit.DefaultWindow),

		SessionTTL:   environment.DurationOr("EASLY_SESSION_TTL", session.DefaultTTL),
		SessionSweep: environment.DurationOr("EASLY_SESSION_SWEEP", time.Minute),

		AgentMaxSteps:    environment.IntOr("EASLY_AGENT_MAX_STEPS", agent.DefaultMaxSteps),
		AgentTemperature: environment.FloatOr("EASLY_AGENT_TEMPERATURE", agent.DefaultTemperature),
		HistoryLimit:     environment.IntOr("EASLY_HISTORY_LIMIT", 10),

		ScopeFilter: environment.BoolOr("EASLY_SCOPE_FILTER", true),
		ScopeFile:   environment.StringOr("EASLY_SCOPE_FILE", ""),
		AlertExpr:   environment.StringOr("EASLY_ALERT_EXPR", ""),

		UploadsDir:    environment.StringOr("EASLY_UPLOADS_DIR", "./uploads"),
		UploadsPrefix: environment.StringOr("EASLY_UPLOADS_PREFIX", "/images/uploads"),

		LLMTimeout: environment.DurationOr("EASLY_LLM_TIMEOUT", llm.DefaultTimeout),
		Providers:  environment.StringSliceOr("EASLY_LLM_PROVIDERS", DefaultProviderOrder),

		GeminiAPIKey:    environment.FirstOf("GEMINI_API_KEY", "GOOGLE_API_KEY"),
		GeminiModel:     environment.StringOr("GEMINI_MODEL", ""),
		OpenAIAPIKey:    environment.StringOr("OPENAI_API_KEY", ""),
		OpenAIModel:     environment.StringOr("OPENAI_MODEL", ""),
		AnthropicAPIKey: environment.StringOr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  environment.StringOr("ANTHROPIC_MODEL", ""),
		LocalURL:        environment.StringOr("EASLY_LOCAL_LLM_URL", ""),
		LocalModel:      environment.StringOr("EASLY_LOCAL_LLM_MODEL", ""),
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("EASLY_HTTP_ADDR must not be empty"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("EASLY_DB_PATH must not be empty"))
	}
	if c.RateMax <= 0 {
		errs = append(errs, fmt.Errorf("EASLY_RATE_MAX must be positive, got %d", c.RateMax))
	}
	if c.RateWindow <= 0 {
		errs = append(errs, fmt.Errorf("EASLY_RATE_WINDOW must be positive, got %s", c.RateWindow))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("EASLY_SESSION_TTL must be positive, got %s", c.SessionTTL))
	}
	if c.AgentMaxSteps <= 0 {
		errs = append(errs, fmt.Errorf("EASLY_AGENT_MAX_STEPS must be positive, got %d", c.AgentMaxSteps))
	}
	if c.AgentTemperature < 0 || c.AgentTemperature > 2 {
		errs = append(errs, fmt.Errorf("EASLY_AGENT_TEMPERATURE must be between 0 and 2, got %g", c.AgentTemperature))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("EASLY_LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	seen := map[string]bool{}
	for _, p := range c.Providers {
		if !slices.Contains(DefaultProviderOrder, p) {
			errs = append(errs, fmt.Errorf("EASLY_LLM_PROVIDERS: unknown provider %q", p))
		}
		if seen[p] {
			errs = append(errs, fmt.Errorf("EASLY_LLM_PROVIDERS: %q listed twice", p))
		}
		seen[p] = true
	}
	return errors.Join(errs...)
}

// providers builds the adapters in configured order. Adapters without
// credentials come back nil and are dropped by llm.NewChain.
func (c *Config) providers() []llm.Provider {
	out := make([]llm.Provider, 0, len(c.Providers))
	for _, name := range c.Providers {
		switch name {
		case ProviderGemini:
			out = append(out, llm.NewGemini(c.GeminiAPIKey, c.GeminiModel))
		case ProviderOpenAI:
			out = append(out, llm.NewOpenAI(c.OpenAIAPIKey, c.OpenAIModel))
		case ProviderAnthropic:
			out = append(out, llm.NewAnthropic(c.AnthropicAPIKey, c.AnthropicModel))
		case ProviderLocal:
			out = append(out, llm.NewLocal(c.LocalURL, c.LocalModel))
		}
	}
	return out
}
