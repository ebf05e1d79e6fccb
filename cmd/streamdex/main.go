// Command streamdex: multi-tenant IPTV playlist catalog service.
//
//	serve   Run the HTTP API (ingest, browse, search). For systemd.
//	ingest  One-shot: load a playlist file or URL into a tenant's catalog.
//	delete  Remove a tenant's catalog entirely.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streamdex/streamdex/internal/config"
	"github.com/streamdex/streamdex/internal/fetch"
	"github.com/streamdex/streamdex/internal/ingest"
	"github.com/streamdex/streamdex/internal/search"
	"github.com/streamdex/streamdex/internal/server"
	"github.com/streamdex/streamdex/internal/store"
)

func main() {
	_ = config.LoadEnvFile(".env")
	log.SetFlags(log.LstdFlags)
	log.SetPrefix("[streamdex] ")

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	serveAddr := serveCmd.String("addr", "", "Listen address (default: STREAMDEX_LISTEN)")
	serveDB := serveCmd.String("db", "", "SQLite catalog path (default: STREAMDEX_DB)")

	ingestCmd := flag.NewFlagSet("ingest", flag.ExitOnError)
	ingestUser := ingestCmd.String("user", "", "Tenant id (required)")
	ingestFile := ingestCmd.String("file", "", "Playlist file to ingest")
	ingestURL := ingestCmd.String("url", "", "Playlist URL to ingest")
	ingestDB := ingestCmd.String("db", "", "SQLite catalog path (default: STREAMDEX_DB)")

	deleteCmd := flag.NewFlagSet("delete", flag.ExitOnError)
	deleteUser := deleteCmd.String("user", "", "Tenant id (required)")
	deleteDB := deleteCmd.String("db", "", "SQLite catalog path (default: STREAMDEX_DB)")

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <serve|ingest|delete> [flags]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  serve   Run the HTTP API\n")
		fmt.Fprintf(os.Stderr, "  ingest  Load a playlist file or URL into a tenant's catalog\n")
		fmt.Fprintf(os.Stderr, "  delete  Remove a tenant's catalog\n")
		os.Exit(2)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "serve":
		_ = serveCmd.Parse(os.Args[2:])
		addr := *serveAddr
		if addr == "" {
			addr = cfg.ListenAddr
		}
		st := mustOpenStore(firstNonEmpty(*serveDB, cfg.DBPath), cfg)
		defer st.Close()

		engine := search.NewWithCache(st, search.NewCache(cfg.SearchCacheEntries, cfg.SearchCacheTTL))
		ing := ingest.New(st, engine.Cache())
		fetcher := fetch.New()

		srv := &server.Server{
			Addr:            addr,
			MaxConns:        cfg.MaxConns,
			DefaultPageSize: cfg.DefaultPageSize,
			MaxPageSize:     cfg.MaxPageSize,
			MaxUploadBytes:  cfg.MaxUploadBytes,
			Store:           st,
			Searcher:        engine,
			Ingester:        ing,
			Fetcher:         fetcher,
			CacheStats:      engine.Cache().Stats,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := srv.Run(ctx); err != nil {
			log.Printf("Serve failed: %v", err)
			os.Exit(1)
		}

	case "ingest":
		_ = ingestCmd.Parse(os.Args[2:])
		if *ingestUser == "" {
			log.Print("Set -user=<tenant>")
			os.Exit(1)
		}
		if (*ingestFile == "") == (*ingestURL == "") {
			log.Print("Set exactly one of -file or -url")
			os.Exit(1)
		}
		st := mustOpenStore(firstNonEmpty(*ingestDB, cfg.DBPath), cfg)
		defer st.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		var raw string
		if *ingestFile != "" {
			data, err := os.ReadFile(*ingestFile)
			if err != nil {
				log.Printf("Read playlist file: %v", err)
				os.Exit(1)
			}
			raw = string(data)
		} else {
			var err error
			raw, err = fetch.New().Playlist(ctx, *ingestURL)
			if err != nil {
				log.Printf("Fetch playlist: %v", err)
				os.Exit(1)
			}
		}

		engine := search.New(st)
		sum, err := ingest.New(st, engine.Cache()).Ingest(ctx, *ingestUser, raw)
		if err != nil {
			log.Printf("Ingest failed: %v", err)
			os.Exit(1)
		}
		log.Printf("Ingested %d channels in %d categories (%s)", sum.Channels, sum.Categories, sum.Elapsed)

	case "delete":
		_ = deleteCmd.Parse(os.Args[2:])
		if *deleteUser == "" {
			log.Print("Set -user=<tenant>")
			os.Exit(1)
		}
		st := mustOpenStore(firstNonEmpty(*deleteDB, cfg.DBPath), cfg)
		defer st.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := st.DeleteAll(ctx, *deleteUser); err != nil {
			log.Printf("Delete failed: %v", err)
			os.Exit(1)
		}
		log.Printf("Deleted catalog for tenant %s", *deleteUser)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q; use serve, ingest, or delete\n", os.Args[1])
		os.Exit(2)
	}
}

func mustOpenStore(path string, cfg *config.Config) *store.Store {
	st, err := store.Open(path)
	if err != nil {
		log.Printf("Open store %s: %v", path, err)
		os.Exit(1)
	}
	if cfg.BatchSize > 0 {
		st.BatchSize = cfg.BatchSize
	}
	return st
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
