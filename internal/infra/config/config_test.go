package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTP.Address)
	require.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	require.Equal(t, "o3-mini", cfg.LLM.Model)
	require.Equal(t, 180*time.Second, cfg.Plan.ProviderTimeout)
	require.Zero(t, cfg.Plan.RepairAttempts)
	require.False(t, cfg.Plan.RejectInconsistent)
	require.Equal(t, "none", cfg.Artifacts.Backend)
	require.Equal(t, "memory", cfg.History.Backend)
	require.Equal(t, 20, cfg.History.DefaultLimit)
	require.False(t, cfg.Auth.Enabled())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  address: ":9000"
llm:
  provider: gemini
  model: gemini-2.0-flash
plan:
  providerTimeout: 45s
  repairAttempts: 1
jobs:
  backend: valkey
valkey:
  addr: localhost:6379
`), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("PLAN_REJECT_INCONSISTENT", "true")
	t.Setenv("HISTORY_DEFAULT_LIMIT", "50")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":9000", cfg.HTTP.Address)
	require.Equal(t, ProviderGemini, cfg.LLM.Provider)
	require.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	require.Equal(t, 45*time.Second, cfg.Plan.ProviderTimeout)
	require.Equal(t, 1, cfg.Plan.RepairAttempts)
	require.True(t, cfg.Plan.RejectInconsistent)
	require.Equal(t, 50, cfg.History.DefaultLimit)
	require.Equal(t, "valkey", cfg.Jobs.Backend)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	require.Equal(t, "GEMINI_API_KEY", cfg.CredentialEnv())
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_PATH", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LLM_MODEL=gpt-4o-mini\nHTTP_ADDRESS=:7000\n"), 0o600))
	t.Setenv("HTTP_ADDRESS", ":7100")
	// registered so the value loaded from .env is cleared after the test
	t.Setenv("LLM_MODEL", "")
	require.NoError(t, os.Unsetenv("LLM_MODEL"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	require.Equal(t, ":7100", cfg.HTTP.Address)
}

func TestLoad_ExplicitEnvFileMustExist(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ENV_FILE", "missing.env")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "llama" }, wantErr: `llm.provider "llama" is not supported`},
		{name: "valkey without addr", mutate: func(c *Config) { c.Jobs.Backend = "valkey" }, wantErr: "valkey.addr cannot be empty when jobs.backend is valkey"},
		{name: "jobs disabled skips backend checks", mutate: func(c *Config) { c.Jobs.Enabled = false; c.Jobs.Backend = "valkey" }},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Artifacts.Backend = "s3"; c.Artifacts.S3.Endpoint = "https://r2" }, wantErr: "artifacts.s3.endpoint and artifacts.s3.bucket are required when artifacts.backend is s3"},
		{name: "negative repair attempts", mutate: func(c *Config) { c.Plan.RepairAttempts = -1 }, wantErr: "plan.repairAttempts cannot be negative"},
		{name: "negative history limit", mutate: func(c *Config) { c.History.DefaultLimit = -1 }, wantErr: "history.defaultLimit cannot be negative"},
		{name: "unknown history backend", mutate: func(c *Config) { c.History.Backend = "mongo" }, wantErr: `history.backend "mongo" is not supported`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestCredentialSource_ResolvedAtCallTime(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("OPENAI_API_KEY", "")
	source := cfg.CredentialSource()

	require.Empty(t, source())

	t.Setenv("OPENAI_API_KEY", " sk-late ")
	require.Equal(t, "sk-late", source())

	cfg.LLM.APIKey = "sk-explicit"
	require.Equal(t, "sk-explicit", cfg.CredentialSource()())
}
