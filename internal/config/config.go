package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port        string
	DatabaseURL string
	// Provider
	Provider          string
	CoinGeckoBaseURL  string
	CoinGeckoAPIKey   string
	VsCurrency        string
	SnapshotPerPage   int
	SnapshotPage      int
	OHLCWindowDays    int
	OHLCMaxRank       int
	PacingDelay       time.Duration
	RateLimitCooldown time.Duration
	HTTPTimeout       time.Duration
	// Pipeline steps
	StepMaxAttempts     int
	StepRetryDelay      time.Duration
	SnapshotStepTimeout time.Duration
	OHLCRetryDelay      time.Duration
	OHLCExtractTimeout  time.Duration
	// Extract cache
	CacheBackend    string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	ExtractCacheTTL time.Duration
	// ETL runner
	Pipelines   string
	RunInterval time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func durDef(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:                 getEnv("ENV", "local"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		Provider:            getEnv("PROVIDER", "coingecko"),
		CoinGeckoBaseURL:    getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoAPIKey:     getEnv("COINGECKO_API_KEY", ""),
		VsCurrency:          getEnv("VS_CURRENCY", "brl"),
		SnapshotPerPage:     atoiDef(getEnv("SNAPSHOT_PER_PAGE", "100"), 100),
		SnapshotPage:        atoiDef(getEnv("SNAPSHOT_PAGE", "1"), 1),
		OHLCWindowDays:      atoiDef(getEnv("OHLC_WINDOW_DAYS", "7"), 7),
		OHLCMaxRank:         atoiDef(getEnv("OHLC_MAX_RANK", "50"), 50),
		PacingDelay:         durDef(getEnv("PACING_DELAY", "6s"), 6*time.Second),
		RateLimitCooldown:   durDef(getEnv("RATE_LIMIT_COOLDOWN", "60s"), 60*time.Second),
		HTTPTimeout:         durDef(getEnv("HTTP_TIMEOUT", "30s"), 30*time.Second),
		StepMaxAttempts:     atoiDef(getEnv("STEP_MAX_ATTEMPTS", "3"), 3),
		StepRetryDelay:      durDef(getEnv("STEP_RETRY_DELAY", "1s"), time.Second),
		SnapshotStepTimeout: durDef(getEnv("SNAPSHOT_STEP_TIMEOUT", "60s"), 60*time.Second),
		OHLCRetryDelay:      durDef(getEnv("OHLC_RETRY_DELAY", "30s"), 30*time.Second),
		OHLCExtractTimeout:  durDef(getEnv("OHLC_EXTRACT_TIMEOUT", "30m"), 30*time.Minute),
		CacheBackend:        getEnv("EXTRACT_CACHE_BACKEND", "none"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             atoiDef(getEnv("REDIS_DB", "0"), 0),
		ExtractCacheTTL:     durDef(getEnv("EXTRACT_CACHE_TTL", "10m"), 10*time.Minute),
		Pipelines:           getEnv("PIPELINES", "both"),
		RunInterval:         durDef(getEnv("RUN_INTERVAL", "0"), 0),
	}
}
