package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"LLM_PROVIDER", "OPENAI_MODEL", "LLM_MODEL", "MEMOS_TIMEOUT", "MEMOS_VERIFY_SSL", "USER_ID", "API_ADDR", "PLAN_LEGACY_MARKERS", "PLAN_ALL_COMMITMENTS"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "", cfg.LLMModel)
	assert.Equal(t, 20*time.Second, cfg.MemosTimeout)
	assert.Equal(t, 3, cfg.MemosMaxRetries)
	assert.True(t, cfg.MemosVerifySSL)
	assert.Regexp(t, `^user_[0-9a-f]{10}$`, cfg.UserID)
	assert.Equal(t, ":8000", cfg.APIAddr)
	assert.Equal(t, 24000, cfg.MaxContextTokens)
	assert.True(t, cfg.LegacyMarkers)
	assert.False(t, cfg.AllCommitments)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Ollama")
	t.Setenv("OPENAI_MODEL", "qwen2.5")
	t.Setenv("MEMOS_BASE_URL", "memos.example.com/api/")
	t.Setenv("MEMOS_VERIFY_SSL", "off")
	t.Setenv("MEMOS_TIMEOUT", "not a number")
	t.Setenv("MEMOS_MAX_RETRIES", "0")
	t.Setenv("USER_ID", "alice")
	t.Setenv("PLAN_ALL_COMMITMENTS", "yes")

	cfg := Load()

	assert.Equal(t, "ollama", cfg.LLMProvider)
	assert.Equal(t, "qwen2.5", cfg.LLMModel)
	assert.Equal(t, "https://memos.example.com/api", cfg.MemosBaseURL)
	assert.False(t, cfg.MemosVerifySSL)
	assert.Equal(t, 20*time.Second, cfg.MemosTimeout)
	assert.Equal(t, 0, cfg.MemosMaxRetries)
	assert.Equal(t, "alice", cfg.UserID)
	assert.True(t, cfg.AllCommitments)
}

func TestLoad_FractionalMemosTimeout(t *testing.T) {
	t.Setenv("MEMOS_TIMEOUT", "2.5")
	assert.Equal(t, 2500*time.Millisecond, Load().MemosTimeout)

	t.Setenv("MEMOS_TIMEOUT", "-1")
	assert.Equal(t, 20*time.Second, Load().MemosTimeout)
}

func TestValidate(t *testing.T) {
	err := (&Config{LLMProvider: "openai"}).Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingKey))

	err = (&Config{LLMProvider: "anthropic"}).Validate()
	assert.ErrorIs(t, err, ErrMissingKey)

	assert.NoError(t, (&Config{LLMProvider: "ollama"}).Validate())
	assert.NoError(t, (&Config{LLMProvider: "openai", OpenAIKey: "sk"}).Validate())

	err = (&Config{LLMProvider: "gemini"}).Validate()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingKey))
}

func TestProviderCredentials(t *testing.T) {
	cfg := &Config{LLMProvider: "ollama", OllamaBaseURL: "http://localhost:11434/v1", OpenAIBaseURL: "https://proxy"}
	assert.Equal(t, "ollama", cfg.APIKey())
	assert.Equal(t, "http://localhost:11434/v1", cfg.BaseURL())

	cfg.LLMProvider = "openai"
	cfg.OpenAIKey = "sk"
	assert.Equal(t, "sk", cfg.APIKey())
	assert.Equal(t, "https://proxy", cfg.BaseURL())
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "", NormalizeBaseURL("  "))
	assert.Equal(t, "http://localhost:8080", NormalizeBaseURL("http://localhost:8080//"))
	assert.Equal(t, "https://x.io", NormalizeBaseURL("x.io"))
}
