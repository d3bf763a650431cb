package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Fixed policy documents offered by the chat client toggles.
const (
	CFTDTIURL = "https://www.canada.ca/en/department-national-defence/services/benefits-military/pay-pension-benefits/benefits/canadian-forces-temporary-duty-travel-instructions.html"
	CBIURL    = "https://www.canada.ca/en/department-national-defence/corporate/policies-standards/compensation-benefits-instructions.html"
)

type Config struct {
	Port string

	// Gemini
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	GeminiTimeout time.Duration

	// Page fetching
	PageFetchTimeout time.Duration
	MaxPageBytes     int64
	CBIURL           string

	// Request limits
	MaxRequestBytes int64

	// Suggested questions
	SuggestMaxTokens int

	// LLM latency stats
	StatsWindow time.Duration
}

// ClientConfig configures the terminal chat client.
type ClientConfig struct {
	ProxyURL     string
	Timeout      time.Duration
	MaxPageBytes int64
}

// LoadDotEnv reads a .env file into the process environment if one exists.
// Variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8080"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   envOr("GEMINI_MODEL", "gemini-1.5-flash-002"),
		GeminiBaseURL: envOr("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiTimeout: envDuration("GEMINI_TIMEOUT", 120*time.Second),

		PageFetchTimeout: envDuration("PAGE_FETCH_TIMEOUT", 10*time.Second),
		MaxPageBytes:     envInt64("MAX_PAGE_BYTES", 10485760), // 10MB
		CBIURL:           envOr("CBI_URL", CBIURL),

		MaxRequestBytes: envInt64("MAX_REQUEST_BYTES", 5242880), // 5MB

		SuggestMaxTokens: envInt("SUGGEST_MAX_TOKENS", 6000),

		StatsWindow: envDuration("STATS_WINDOW", 1*time.Hour),
	}

	if cfg.GeminiTimeout <= 0 {
		cfg.GeminiTimeout = 120 * time.Second
	}
	if cfg.PageFetchTimeout <= 0 {
		cfg.PageFetchTimeout = 10 * time.Second
	}
	if cfg.MaxPageBytes <= 0 {
		cfg.MaxPageBytes = 10485760
	}
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = 5242880
	}
	if cfg.SuggestMaxTokens <= 0 {
		cfg.SuggestMaxTokens = 6000
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.GeminiModel == "" {
		return fmt.Errorf("GEMINI_MODEL must not be empty")
	}
	return nil
}

func LoadClient() ClientConfig {
	cfg := ClientConfig{
		ProxyURL:     envOr("PROXY_URL", "http://localhost:8080"),
		Timeout:      envDuration("CLIENT_TIMEOUT", 10*time.Second),
		MaxPageBytes: envInt64("MAX_PAGE_BYTES", 10485760),
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxPageBytes <= 0 {
		cfg.MaxPageBytes = 10485760
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
