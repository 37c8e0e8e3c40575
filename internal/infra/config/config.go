package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported completion providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	LLM       LLMConfig       `yaml:"llm"`
	Plan      PlanConfig      `yaml:"plan"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Valkey    ValkeyConfig    `yaml:"valkey"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	History   HistoryConfig   `yaml:"history"`
	Auth      AuthConfig      `yaml:"auth"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	MaxBodyBytes   int64           `yaml:"maxBodyBytes"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
	MaxClients        int  `yaml:"maxClients"`
}

// LLMConfig selects and configures the completion provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"apiKey"`
	APIKeyEnv   string  `yaml:"apiKeyEnv"`
	BaseURL     string  `yaml:"baseUrl"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
}

// PlanConfig tunes the generation pipeline.
type PlanConfig struct {
	ProviderTimeout    time.Duration `yaml:"providerTimeout"`
	RepairAttempts     int           `yaml:"repairAttempts"`
	RejectInconsistent bool          `yaml:"rejectInconsistent"`
}

// JobsConfig controls asynchronous plan generation.
type JobsConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Backend  string        `yaml:"backend"`
	Workers  int           `yaml:"workers"`
	TTL      time.Duration `yaml:"ttl"`
	QueueKey string        `yaml:"queueKey"`
}

// ValkeyConfig contains connection information for the job backend.
type ValkeyConfig struct {
	Addr string `yaml:"addr"`
}

// ArtifactsConfig controls where debug prompts and answers are written.
type ArtifactsConfig struct {
	Backend string   `yaml:"backend"`
	Dir     string   `yaml:"dir"`
	S3      S3Config `yaml:"s3"`
}

// S3Config holds S3-compatible object storage settings.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
}

// HistoryConfig selects the generation history backend.
type HistoryConfig struct {
	Backend  string `yaml:"backend"`
	Capacity int    `yaml:"capacity"`
	// DefaultLimit is the page size of /plan/history when no limit is given.
	DefaultLimit int            `yaml:"defaultLimit"`
	Postgres     PostgresConfig `yaml:"postgres"`
	SQLite       SQLiteConfig   `yaml:"sqlite"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// SQLiteConfig points at a local database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig enables bearer token checks when a secret is set.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwtSecret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"tokenTtl"`
}

// Enabled reports whether bearer auth is required.
func (a AuthConfig) Enabled() bool {
	return strings.TrimSpace(a.JWTSecret) != ""
}

// Load reads configuration from a YAML file, an optional .env file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// loadDotEnv populates unset environment variables from a dotenv file.
// A missing default .env is not an error; an explicitly named file must exist.
func loadDotEnv(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("PORT"); v != "" && os.Getenv("HTTP_ADDRESS") == "" {
		cfg.HTTP.Address = ":" + v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	setDuration(&cfg.HTTP.WriteTimeout, "HTTP_WRITE_TIMEOUT")
	setBool(&cfg.HTTP.RateLimit.Enabled, "HTTP_RATE_LIMIT_ENABLED")
	setInt(&cfg.HTTP.RateLimit.RequestsPerMinute, "HTTP_RATE_LIMIT_RPM")
	setInt(&cfg.HTTP.RateLimit.Burst, "HTTP_RATE_LIMIT_BURST")

	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_API_KEY_ENV"); v != "" {
		cfg.LLM.APIKeyEnv = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}

	setDuration(&cfg.Plan.ProviderTimeout, "PLAN_PROVIDER_TIMEOUT")
	setInt(&cfg.Plan.RepairAttempts, "PLAN_REPAIR_ATTEMPTS")
	setBool(&cfg.Plan.RejectInconsistent, "PLAN_REJECT_INCONSISTENT")

	setBool(&cfg.Jobs.Enabled, "JOBS_ENABLED")
	if v := os.Getenv("JOBS_BACKEND"); v != "" {
		cfg.Jobs.Backend = strings.ToLower(v)
	}
	setInt(&cfg.Jobs.Workers, "JOBS_WORKERS")
	setDuration(&cfg.Jobs.TTL, "JOBS_TTL")
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.Valkey.Addr = v
	}

	if v := os.Getenv("ARTIFACTS_BACKEND"); v != "" {
		cfg.Artifacts.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("ARTIFACTS_DIR"); v != "" {
		cfg.Artifacts.Dir = v
	}
	if v := os.Getenv("ARTIFACTS_S3_ENDPOINT"); v != "" {
		cfg.Artifacts.S3.Endpoint = v
	}
	if v := os.Getenv("ARTIFACTS_S3_ACCESS_KEY"); v != "" {
		cfg.Artifacts.S3.AccessKey = v
	}
	if v := os.Getenv("ARTIFACTS_S3_SECRET_KEY"); v != "" {
		cfg.Artifacts.S3.SecretKey = v
	}
	if v := os.Getenv("ARTIFACTS_S3_BUCKET"); v != "" {
		cfg.Artifacts.S3.Bucket = v
	}
	if v := os.Getenv("ARTIFACTS_S3_REGION"); v != "" {
		cfg.Artifacts.S3.Region = v
	}

	if v := os.Getenv("HISTORY_BACKEND"); v != "" {
		cfg.History.Backend = strings.ToLower(v)
	}
	setInt(&cfg.History.DefaultLimit, "HISTORY_DEFAULT_LIMIT")
	if v := os.Getenv("HISTORY_POSTGRES_DSN"); v != "" {
		cfg.History.Postgres.DSN = v
	}
	if v := os.Getenv("HISTORY_SQLITE_PATH"); v != "" {
		cfg.History.SQLite.Path = v
	}

	if v := os.Getenv("AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("AUTH_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 200 * time.Second,
			MaxBodyBytes: 1 << 20,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 30,
				Burst:             10,
				MaxClients:        10000,
			},
		},
		LLM: LLMConfig{
			Provider: ProviderOpenAI,
			Model:    "o3-mini",
		},
		Plan: PlanConfig{
			ProviderTimeout: 180 * time.Second,
		},
		Jobs: JobsConfig{
			Enabled:  true,
			Backend:  "memory",
			Workers:  4,
			TTL:      24 * time.Hour,
			QueueKey: "mealplan:jobs",
		},
		Artifacts: ArtifactsConfig{
			Backend: "none",
			Dir:     "artifacts",
			S3: S3Config{
				Region: "auto",
				Prefix: "generations",
			},
		},
		History: HistoryConfig{
			Backend:      "memory",
			Capacity:     500,
			DefaultLimit: 20,
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
			SQLite: SQLiteConfig{
				Path: "mealplan-history.db",
			},
		},
		Auth: AuthConfig{
			Issuer:   "mealplan-ai",
			TokenTTL: 24 * time.Hour,
		},
	}
}

// Validate ensures the configuration is safe to use.
// The provider credential is resolved per request and is not checked here.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return errors.New("http.maxBodyBytes must be positive")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider)
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if c.Plan.ProviderTimeout < 0 {
		return errors.New("plan.providerTimeout cannot be negative")
	}
	if c.Plan.RepairAttempts < 0 {
		return errors.New("plan.repairAttempts cannot be negative")
	}
	if c.Jobs.Enabled {
		switch c.Jobs.Backend {
		case "memory":
		case "valkey":
			if strings.TrimSpace(c.Valkey.Addr) == "" {
				return errors.New("valkey.addr cannot be empty when jobs.backend is valkey")
			}
		default:
			return fmt.Errorf("jobs.backend %q is not supported", c.Jobs.Backend)
		}
		if c.Jobs.Workers <= 0 {
			return errors.New("jobs.workers must be positive")
		}
		if c.Jobs.TTL <= 0 {
			return errors.New("jobs.ttl must be positive")
		}
	}
	switch c.Artifacts.Backend {
	case "none":
	case "local":
		if strings.TrimSpace(c.Artifacts.Dir) == "" {
			return errors.New("artifacts.dir cannot be empty when artifacts.backend is local")
		}
	case "s3":
		if strings.TrimSpace(c.Artifacts.S3.Endpoint) == "" || strings.TrimSpace(c.Artifacts.S3.Bucket) == "" {
			return errors.New("artifacts.s3.endpoint and artifacts.s3.bucket are required when artifacts.backend is s3")
		}
	default:
		return fmt.Errorf("artifacts.backend %q is not supported", c.Artifacts.Backend)
	}
	switch c.History.Backend {
	case "memory", "postgres", "sqlite":
	default:
		return fmt.Errorf("history.backend %q is not supported", c.History.Backend)
	}
	if c.History.Capacity <= 0 {
		return errors.New("history.capacity must be positive")
	}
	if c.History.DefaultLimit < 0 {
		return errors.New("history.defaultLimit cannot be negative")
	}
	return nil
}

// CredentialEnv returns the environment variable consulted for the provider credential.
func (c *Config) CredentialEnv() string {
	if v := strings.TrimSpace(c.LLM.APIKeyEnv); v != "" {
		return v
	}
	if c.LLM.Provider == ProviderGemini {
		return "GEMINI_API_KEY"
	}
	return "OPENAI_API_KEY"
}

// CredentialSource returns a func resolving the provider credential at call time.
// An explicitly configured key wins over the environment.
func (c *Config) CredentialSource() func() string {
	explicit := strings.TrimSpace(c.LLM.APIKey)
	envKey := c.CredentialEnv()
	return func() string {
		if explicit != "" {
			return explicit
		}
		return strings.TrimSpace(os.Getenv(envKey))
	}
}
