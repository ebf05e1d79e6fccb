package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_defaults(t *testing.T) {
	os.Clearenv()
	c := Load()
	if c.ListenAddr != ":8080" {
		t.Errorf("ListenAddr default: got %q", c.ListenAddr)
	}
	if c.DBPath != "./streamdex.db" {
		t.Errorf("DBPath default: got %q", c.DBPath)
	}
	if c.DefaultPageSize != 20 {
		t.Errorf("DefaultPageSize default: got %d", c.DefaultPageSize)
	}
	if c.MaxPageSize != 100 {
		t.Errorf("MaxPageSize default: got %d", c.MaxPageSize)
	}
	if c.SearchCacheTTL != 60*time.Second {
		t.Errorf("SearchCacheTTL default: got %v", c.SearchCacheTTL)
	}
	if c.SearchCacheEntries != 20 {
		t.Errorf("SearchCacheEntries default: got %d", c.SearchCacheEntries)
	}
	if c.FetchTimeout != 60*time.Second {
		t.Errorf("FetchTimeout default: got %v", c.FetchTimeout)
	}
	if c.MaxConns != 256 {
		t.Errorf("MaxConns default: got %d", c.MaxConns)
	}
	if c.MaxUploadBytes != 128<<20 {
		t.Errorf("MaxUploadBytes default: got %d", c.MaxUploadBytes)
	}
}

func TestLoad_explicitValues(t *testing.T) {
	os.Clearenv()
	os.Setenv("STREAMDEX_LISTEN", ":9000")
	os.Setenv("STREAMDEX_DB", "/var/lib/streamdex/catalog.db")
	os.Setenv("STREAMDEX_PAGE_SIZE", "50")
	os.Setenv("STREAMDEX_SEARCH_CACHE_TTL", "30s")
	os.Setenv("STREAMDEX_FETCH_TIMEOUT", "2m")
	os.Setenv("STREAMDEX_MAX_CONNS", "64")
	c := Load()
	if c.ListenAddr != ":9000" {
		t.Errorf("ListenAddr: got %q", c.ListenAddr)
	}
	if c.DBPath != "/var/lib/streamdex/catalog.db" {
		t.Errorf("DBPath: got %q", c.DBPath)
	}
	if c.DefaultPageSize != 50 {
		t.Errorf("DefaultPageSize: got %d", c.DefaultPageSize)
	}
	if c.SearchCacheTTL != 30*time.Second {
		t.Errorf("SearchCacheTTL: got %v", c.SearchCacheTTL)
	}
	if c.FetchTimeout != 2*time.Minute {
		t.Errorf("FetchTimeout: got %v", c.FetchTimeout)
	}
	if c.MaxConns != 64 {
		t.Errorf("MaxConns: got %d", c.MaxConns)
	}
}

func TestLoad_clampsBadValues(t *testing.T) {
	os.Clearenv()
	os.Setenv("STREAMDEX_PAGE_SIZE", "0")
	os.Setenv("STREAMDEX_MAX_PAGE_SIZE", "5")
	os.Setenv("STREAMDEX_MAX_CONNS", "-1")
	os.Setenv("STREAMDEX_SEARCH_CACHE_TTL", "garbage")
	c := Load()
	if c.DefaultPageSize != 20 {
		t.Errorf("DefaultPageSize clamp: got %d", c.DefaultPageSize)
	}
	if c.MaxPageSize < c.DefaultPageSize {
		t.Errorf("MaxPageSize %d below DefaultPageSize %d", c.MaxPageSize, c.DefaultPageSize)
	}
	if c.MaxConns != 256 {
		t.Errorf("MaxConns clamp: got %d", c.MaxConns)
	}
	if c.SearchCacheTTL != 60*time.Second {
		t.Errorf("SearchCacheTTL on parse failure: got %v", c.SearchCacheTTL)
	}
}
