package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// ErrMissingKey is returned by Validate when the selected provider has no credentials.
var ErrMissingKey = errors.New("missing API key")

type Config struct {
	LLMProvider   string // openai, anthropic, ollama
	OpenAIKey     string
	OpenAIBaseURL string
	LLMModel      string
	AnthropicKey  string
	OllamaBaseURL string

	MemosKey        string
	MemosBaseURL    string // empty disables the memory service
	MemosVerifySSL  bool
	MemosTimeout    time.Duration
	MemosMaxRetries int
	UserID          string

	DatabasePath     string
	ScenarioPath     string // empty uses the built-in weekly scenario
	PlanCron         string
	DiscordToken     string
	DiscordWebhook   string
	APIAddr          string
	MaxContextTokens int

	LegacyMarkers  bool
	AllCommitments bool

	LogLevel string
	LogFile  string
}

func Load() *Config {
	_ = godotenv.Load() // ignore error if no .env

	return &Config{
		LLMProvider:   strings.ToLower(envOr("LLM_PROVIDER", "openai")),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_API_BASE"),
		LLMModel:      envOr("OPENAI_MODEL", os.Getenv("LLM_MODEL")), // empty picks the provider default
		AnthropicKey:  os.Getenv("ANTHROPIC_API_KEY"),
		OllamaBaseURL: envOr("OLLAMA_BASE_URL", "http://localhost:11434/v1"),

		MemosKey:        os.Getenv("MEMOS_API_KEY"),
		MemosBaseURL:    NormalizeBaseURL(os.Getenv("MEMOS_BASE_URL")),
		MemosVerifySSL:  envBool("MEMOS_VERIFY_SSL", true),
		MemosTimeout:    envSeconds("MEMOS_TIMEOUT", 20*time.Second),
		MemosMaxRetries: envInt("MEMOS_MAX_RETRIES", 3),
		UserID:          envOr("USER_ID", NewUserID()),

		DatabasePath:     envOr("DATABASE_PATH", "./dayplan.db"),
		ScenarioPath:     os.Getenv("SCENARIO_PATH"),
		PlanCron:         envOr("PLAN_CRON", "0 8 * * 1-5"),
		DiscordToken:     os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordWebhook:   os.Getenv("DISCORD_WEBHOOK_URL"),
		APIAddr:          envOr("API_ADDR", ":8000"),
		MaxContextTokens: envInt("MAX_CONTEXT_TOKENS", 24000),

		LegacyMarkers:  envBool("PLAN_LEGACY_MARKERS", true),
		AllCommitments: envBool("PLAN_ALL_COMMITMENTS", false),

		LogLevel: envOr("LOG_LEVEL", "warn"),
		LogFile:  os.Getenv("LOG_FILE"),
	}
}

// Validate checks that the selected provider can authenticate. Ollama needs no key.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("%w: set OPENAI_API_KEY for provider openai", ErrMissingKey)
		}
	case "anthropic":
		if c.AnthropicKey == "" {
			return fmt.Errorf("%w: set ANTHROPIC_API_KEY for provider anthropic", ErrMissingKey)
		}
	case "ollama":
	default:
		return fmt.Errorf("unknown LLM provider: %s", c.LLMProvider)
	}
	return nil
}

// APIKey returns the credential for the selected provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case "anthropic":
		return c.AnthropicKey
	case "ollama":
		return "ollama"
	default:
		return c.OpenAIKey
	}
}

// BaseURL returns the endpoint override for the selected provider, if any.
func (c *Config) BaseURL() string {
	if c.LLMProvider == "ollama" {
		return c.OllamaBaseURL
	}
	return c.OpenAIBaseURL
}

// NewUserID returns a short random id of the form user_<10 hex>.
func NewUserID() string {
	return "user_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

// NormalizeBaseURL adds an https scheme when missing and strips trailing slashes.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return u
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return strings.TrimRight(u, "/")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// envSeconds reads a possibly fractional number of seconds.
func envSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 {
		return fallback
	}
	return time.Duration(f * float64(time.Second))
}

func envBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
