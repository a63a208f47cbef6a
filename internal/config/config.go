// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ストアのバックエンド。
const (
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
)

// DATABASE_DRIVERに指定できる値。database.DriverPostgres/DriverPgxと一致させる。
const (
	driverPostgres = "postgres"
	driverPgx      = "pgx"
)

// PODCAST_DEDUP_STRATEGYに指定できる値。persistence.Dedup*と一致させる。
const (
	dedupAlwaysInsert = "always_insert"
	dedupCollectionID = "collection_id"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Store
	StoreBackend   string
	DatabaseURL    string
	DatabaseDriver string
	SupabaseURL    string
	SupabaseKey    string

	// iTunes
	ITunesBaseURL     string
	ITunesCountry     string
	ITunesTimeout     time.Duration
	ITunesUserAgent   string
	ITunesSearchLimit int
	ITunesMaxRetries  int
	ITunesRetryDelay  time.Duration
	ITunesRateLimit   int
	ITunesHTTPCache   bool

	// Persistence
	DedupStrategy     string
	PersistQueueSize  int
	PersistWorkers    int
	PersistJobTimeout time.Duration

	// Feed
	FeedTimeout time.Duration
	FeedMaxSize int64

	// Rate Limit
	RateLimitGeneral int

	// Server
	ServerPort        string
	CORSAllowedOrigin string

	// Logging
	LogLevel slog.Level
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数の未設定や列挙値の誤りはまとめてエラーとして返す。
func Load() (*Config, error) {
	cfg := &Config{
		StoreBackend:   strings.ToLower(getEnvString("STORE_BACKEND", BackendPostgres)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DatabaseDriver: strings.ToLower(getEnvString("DATABASE_DRIVER", driverPostgres)),
		SupabaseURL:    os.Getenv("SUPABASE_URL"),
		SupabaseKey:    os.Getenv("SUPABASE_KEY"),

		ITunesBaseURL:     getEnvString("ITUNES_BASE_URL", "https://itunes.apple.com"),
		ITunesCountry:     strings.ToUpper(getEnvString("ITUNES_COUNTRY", "SA")),
		ITunesTimeout:     getEnvDuration("ITUNES_TIMEOUT", 10*time.Second),
		ITunesUserAgent:   getEnvString("ITUNES_USER_AGENT", "Mozilla/5.0 (compatible; PodcastBot/1.0)"),
		ITunesSearchLimit: getEnvInt("ITUNES_SEARCH_LIMIT", 50),
		ITunesMaxRetries:  getEnvInt("ITUNES_MAX_RETRIES", 3),
		ITunesRetryDelay:  getEnvDuration("ITUNES_RETRY_DELAY", 1*time.Second),
		ITunesRateLimit:   getEnvInt("ITUNES_RATE_LIMIT", 20),
		ITunesHTTPCache:   getEnvBool("ITUNES_HTTP_CACHE", false),

		DedupStrategy:     strings.ToLower(getEnvString("PODCAST_DEDUP_STRATEGY", dedupAlwaysInsert)),
		PersistQueueSize:  getEnvInt("PERSIST_QUEUE_SIZE", 256),
		PersistWorkers:    getEnvInt("PERSIST_WORKERS", 1),
		PersistJobTimeout: getEnvDuration("PERSIST_JOB_TIMEOUT", 60*time.Second),

		FeedTimeout: getEnvDuration("FEED_TIMEOUT", 10*time.Second),
		FeedMaxSize: getEnvInt64("FEED_MAX_SIZE", 10<<20),

		RateLimitGeneral: getEnvInt("RATE_LIMIT_GENERAL", 120),

		ServerPort:        getEnvString("SERVER_PORT", "8080"),
		CORSAllowedOrigin: getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
	}

	var problems []string

	level, err := parseLogLevel(getEnvString("LOG_LEVEL", "info"))
	if err != nil {
		problems = append(problems, err.Error())
	}
	cfg.LogLevel = level

	switch cfg.StoreBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required for the postgres backend")
		}
	case BackendSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			problems = append(problems, "SUPABASE_URL and SUPABASE_KEY are required for the supabase backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid STORE_BACKEND %q (postgres|supabase)", cfg.StoreBackend))
	}

	if cfg.DatabaseDriver != driverPostgres && cfg.DatabaseDriver != driverPgx {
		problems = append(problems, fmt.Sprintf("invalid DATABASE_DRIVER %q (postgres|pgx)", cfg.DatabaseDriver))
	}
	if cfg.DedupStrategy != dedupAlwaysInsert && cfg.DedupStrategy != dedupCollectionID {
		problems = append(problems, fmt.Sprintf("invalid PODCAST_DEDUP_STRATEGY %q (always_insert|collection_id)", cfg.DedupStrategy))
	}
	if cfg.RateLimitGeneral <= 0 {
		problems = append(problems, "RATE_LIMIT_GENERAL must be positive")
	}
	if cfg.PersistWorkers <= 0 {
		problems = append(problems, "PERSIST_WORKERS must be positive")
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

// parseLogLevel はLOG_LEVELの値をslog.Levelに変換する。
func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (debug|info|warn|error)", s)
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
