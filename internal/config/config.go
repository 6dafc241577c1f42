package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RateLimit is a per-operation-class admission quota.
type RateLimit struct {
	MaxRequests int
	Window      time.Duration
}

type Config struct {
	Addr     string
	LogLevel string

	// API keys accepted by the x-api-key middleware. The secondary key
	// is optional and exists for rotation.
	APIKey  string
	APIKey2 string

	// RedisURL empty means in-memory rate limiting and no scrape cache.
	RedisURL string
	ProxyURL string

	SearchLimit              RateLimit
	SearchMinInterval        time.Duration
	SearchBlacklistedDomains []string

	ScrapeLimit        RateLimit
	ScrapeConcurrency  int
	ScrapeURLTimeout   time.Duration
	ScrapeBatchTimeout time.Duration
	ScrapeCacheTTL     time.Duration

	SummarizeLimit     RateLimit
	AIProvider         string
	AIAPIKey           string
	AIBaseURL          string
	AIModel            string
	AITemperature      float64
	AISystemPrompt     string
	MaxSummarizeLength int

	TwitterLimit       RateLimit
	TwitterCookiesJSON string
	TwitterUsername    string

	LinkedInLimit  RateLimit
	LinkedInCookie string

	EmailLimit   RateLimit
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
}

func Load() Config {
	// Best effort; env vars win over .env entries.
	_ = godotenv.Load()

	return Config{
		Addr:     envStr("SCOUT_ADDR", ":8080"),
		LogLevel: envStr("SCOUT_LOG_LEVEL", "info"),

		APIKey:  envStr("X_API_KEY", ""),
		APIKey2: envStr("X_API_KEY_2", ""),

		RedisURL: envStr("REDIS_URL", ""),
		ProxyURL: envStr("PROXY_URL", ""),

		SearchLimit:              envLimit("SEARCH", 5, time.Minute),
		SearchMinInterval:        envDuration("SEARCH_MIN_INTERVAL", time.Second),
		SearchBlacklistedDomains: envList("SEARCH_BLACKLISTED_DOMAINS"),

		ScrapeLimit:        envLimit("SCRAPE", 5, time.Minute),
		ScrapeConcurrency:  envInt("SCRAPE_CONCURRENCY", 10),
		ScrapeURLTimeout:   envDuration("SCRAPE_URL_TIMEOUT", 10*time.Second),
		ScrapeBatchTimeout: envDuration("SCRAPE_BATCH_TIMEOUT", 45*time.Second),
		ScrapeCacheTTL:     envDuration("SCRAPE_CACHE_TTL", time.Minute),

		SummarizeLimit:     envLimit("SUMMARIZE", 20, time.Minute),
		AIProvider:         envStr("AI_PROVIDER", "compatible"),
		AIAPIKey:           envStr("AI_API_KEY", ""),
		AIBaseURL:          envStr("AI_BASE_URL", ""),
		AIModel:            envStr("AI_MODEL", ""),
		AITemperature:      envFloat("AI_TEMPERATURE", 0.2),
		AISystemPrompt:     envStr("AI_SYSTEM_PROMPT", defaultSystemPrompt),
		MaxSummarizeLength: envInt("MAX_TEXT_LENGTH_TO_SUMMARIZE", 5000),

		TwitterLimit:       envLimit("TWITTER", 15, time.Minute),
		TwitterCookiesJSON: envStr("TWITTER_COOKIES_JSON", ""),
		TwitterUsername:    envStr("TWITTER_USERNAME", ""),

		LinkedInLimit:  envLimit("LINKEDIN", 5, time.Minute),
		LinkedInCookie: envStr("LINKEDIN_COOKIES_LI_AT", ""),

		EmailLimit:   envLimit("EMAIL", 10, time.Minute),
		SMTPHost:     envStr("SMTP_HOST", ""),
		SMTPPort:     envInt("SMTP_PORT", 587),
		SMTPUser:     envStr("SMTP_USER", ""),
		SMTPPassword: envStr("SMTP_PASSWORD", ""),
		SMTPFrom:     envStr("SMTP_FROM", ""),
	}
}

const defaultSystemPrompt = "You are a precise research assistant. You summarize web content " +
	"faithfully, judge relatedness to a query conservatively, and always answer " +
	"with the exact JSON shape you are asked for."

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

// envList parses a comma-separated value into trimmed, non-empty entries.
func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// envLimit reads <CLASS>_RATE_LIMIT and <CLASS>_RATE_WINDOW.
func envLimit(class string, maxRequests int, window time.Duration) RateLimit {
	return RateLimit{
		MaxRequests: envInt(class+"_RATE_LIMIT", maxRequests),
		Window:      envDuration(class+"_RATE_WINDOW", window),
	}
}
