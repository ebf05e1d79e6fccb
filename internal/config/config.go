package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds server, store, and ingestion settings.
// Load from env; call LoadEnvFile(".env") first to use a .env file.
type Config struct {
	// HTTP server
	ListenAddr string // e.g. ":8080"
	MaxConns   int    // cap on concurrent client connections. 0 = default 256.

	// Store
	DBPath    string // path to the SQLite catalog database
	BatchSize int    // channels written per staging transaction. 0 = default.

	// Paging
	DefaultPageSize int // page size when the request doesn't specify one
	MaxPageSize     int // hard cap on requested page sizes

	// Search cache
	SearchCacheTTL     time.Duration
	SearchCacheEntries int

	// Remote playlist fetch
	FetchTimeout time.Duration // whole-download deadline, default 60s

	// MaxUploadBytes caps inline playlist uploads on the ingest endpoint.
	MaxUploadBytes int64
}

// Load reads config from environment with defaults suitable for a single
// instance.
func Load() *Config {
	c := &Config{
		ListenAddr:         getEnv("STREAMDEX_LISTEN", ":8080"),
		MaxConns:           getEnvInt("STREAMDEX_MAX_CONNS", 256),
		DBPath:             getEnv("STREAMDEX_DB", "./streamdex.db"),
		BatchSize:          getEnvInt("STREAMDEX_BATCH_SIZE", 0),
		DefaultPageSize:    getEnvInt("STREAMDEX_PAGE_SIZE", 20),
		MaxPageSize:        getEnvInt("STREAMDEX_MAX_PAGE_SIZE", 100),
		SearchCacheTTL:     getEnvDuration("STREAMDEX_SEARCH_CACHE_TTL", 60*time.Second),
		SearchCacheEntries: getEnvInt("STREAMDEX_SEARCH_CACHE_ENTRIES", 20),
		FetchTimeout:       getEnvDuration("STREAMDEX_FETCH_TIMEOUT", 60*time.Second),
		MaxUploadBytes:     int64(getEnvInt("STREAMDEX_MAX_UPLOAD_MB", 128)) << 20,
	}
	if c.MaxConns <= 0 {
		c.MaxConns = 256
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 20
	}
	if c.MaxPageSize < c.DefaultPageSize {
		c.MaxPageSize = c.DefaultPageSize
	}
	if c.SearchCacheTTL <= 0 {
		c.SearchCacheTTL = 60 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 60 * time.Second
	}
	return c
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, _ := strconv.Atoi(v)
		return n
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
