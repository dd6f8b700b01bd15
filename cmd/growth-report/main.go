package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/percentile-data/growth.report/internal/api"
	"github.com/percentile-data/growth.report/internal/config"
	"github.com/percentile-data/growth.report/internal/db"
	"github.com/percentile-data/growth.report/internal/refcache"
	"github.com/percentile-data/growth.report/internal/refdata"
	"github.com/percentile-data/growth.report/internal/version"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	dbPath     = flag.String("db", "growth_data.db", "SQLite database path")
	configPath = flag.String("config", "", "Server config file (JSON)")
)

// Main
func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if *dbPath == "" {
		log.Fatal("Database path is required")
	}

	// The migrate subcommand manages schema versions directly and exits.
	if flag.Arg(0) == "migrate" {
		db.RunMigrateCommand(flag.Args()[1:], *dbPath)
		return
	}

	cfg := config.EmptyServerConfig()
	if *configPath != "" {
		loaded, err := config.LoadServerConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	cache := refcache.New(refdata.LoadBundle)
	if cfg.GetPreloadReferences() {
		if err := cache.Preload(); err != nil {
			log.Fatalf("Failed to preload reference tables: %v", err)
		}
		log.Printf("preloaded %d reference bundles", cache.Size())
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		var handler http.Handler = api.NewServer(database, cache, cfg).ServeMux()
		if cfg.GetRequestLogging() {
			handler = api.LoggingMiddleware(handler)
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: handler,
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("growth-report %s listening on %s", version.Version, *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
