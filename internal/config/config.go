package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	LLM       LLMConfig
	Fetch     FetchConfig
	Upload    UploadConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string // optional; checked when set
}

type LLMConfig struct {
	GeminiKey        string
	OpenAIKey        string
	AnthropicKey     string
	OllamaURL        string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	FallbackModel    string
	MaxRetries       int
	Temperature      float64
}

// HasProvider reports whether at least one hosted provider has credentials.
func (c LLMConfig) HasProvider() bool {
	return c.GeminiKey != "" || c.OpenAIKey != "" || c.AnthropicKey != "" || c.OllamaURL != ""
}

type FetchConfig struct {
	Timeout       time.Duration
	MaxRedirects  int
	ContentBudget int
	UserAgent     string
	WebSearchURL  string
	CacheTTL      time.Duration
}

type UploadConfig struct {
	MaxBytes int64
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type LogConfig struct {
	Level string
}

// SlogLevel maps LOG_LEVEL onto slog; unknown values mean info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	temperature, err := getEnvFloat("LLM_TEMPERATURE", 0.2)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TEMPERATURE: %w", err)
	}

	fetchTimeout, err := getEnvDuration("FETCH_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_TIMEOUT: %w", err)
	}

	maxRedirects, err := getEnvInt("FETCH_MAX_REDIRECTS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_MAX_REDIRECTS: %w", err)
	}

	contentBudget, err := getEnvInt("FETCH_CONTENT_BUDGET", 8000)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_CONTENT_BUDGET: %w", err)
	}

	cacheTTL, err := getEnvDuration("FETCH_CACHE_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_CACHE_TTL: %w", err)
	}

	maxUpload, err := getEnvInt("UPLOAD_MAX_BYTES", 10<<20)
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_BYTES: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_JWT_ISSUER", ""),
		},
		LLM: LLMConfig{
			GeminiKey:        getEnv("GOOGLE_GENAI_API_KEY", ""),
			OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:        getEnv("OLLAMA_URL", ""),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "gemini"),
			DefaultModel:     getEnv("LLM_DEFAULT_MODEL", "gemini-2.0-flash"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			FallbackModel:    getEnv("LLM_FALLBACK_MODEL", ""),
			MaxRetries:       maxRetries,
			Temperature:      temperature,
		},
		Fetch: FetchConfig{
			Timeout:       fetchTimeout,
			MaxRedirects:  maxRedirects,
			ContentBudget: contentBudget,
			UserAgent:     getEnv("FETCH_USER_AGENT", defaultUserAgent),
			WebSearchURL:  getEnv("WEB_SEARCH_URL", "https://html.duckduckgo.com/html/"),
			CacheTTL:      cacheTTL,
		},
		Upload: UploadConfig{
			MaxBytes: int64(maxUpload),
		},
		RateLimit: RateLimitConfig{
			RPS:   rps,
			Burst: burst,
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "AUTH_JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
