package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"mediapick/internal/cache"
	"mediapick/internal/catalog"
	"mediapick/internal/geoip"
	"mediapick/internal/httputil"
	"mediapick/internal/recommend"
	"mediapick/internal/scheduler"
	"mediapick/internal/server"
	"mediapick/internal/store"
	"mediapick/internal/version"
)

// buildVersion is injected at build time via -ldflags "-X main.buildVersion=...".
var buildVersion = "dev"

func main() {
	dbPath := envOr("MEDIAPICK_DB", "./data/mediapick.db")
	listenAddr := envOr("MEDIAPICK_ADDR", ":8080")
	migrationsDir := envOr("MIGRATIONS_DIR", "./migrations")
	corsOrigin := os.Getenv("CORS_ORIGIN")

	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    20, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}))
	}

	apiKey := os.Getenv("CATALOG_API_KEY")
	if apiKey == "" {
		log.Fatal("CATALOG_API_KEY is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatal(err)
	}

	s, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer s.Close()

	if err := s.Migrate(migrationsDir); err != nil {
		log.Fatalf("running migrations: %v", err)
	}

	maxEntries := cache.DefaultMaxEntries
	if v := os.Getenv("CACHE_MAX_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatalf("invalid CACHE_MAX_ENTRIES: %q", v)
		}
		maxEntries = n
	}
	c := cache.New(maxEntries)
	c.Start(context.Background())
	defer c.Stop()

	catalogOpts := []catalog.Option{catalog.WithCache(c)}
	if base := os.Getenv("CATALOG_BASE_URL"); base != "" {
		if err := httputil.ValidateBaseURL(base); err != nil {
			log.Fatalf("invalid CATALOG_BASE_URL: %v", err)
		}
		catalogOpts = append(catalogOpts, catalog.WithBaseURL(base))
	}
	cat := catalog.New(apiKey, catalogOpts...)

	eng := recommend.NewEngine(cat, s, s, s)
	defer eng.Close()

	geoResolver := geoip.Open(os.Getenv("GEOIP_DB"))
	defer geoResolver.Close()

	sched := scheduler.New(eng)
	sched.Start(context.Background())
	defer sched.Stop()

	checker := version.NewChecker(buildVersion)

	opts := []server.Option{
		server.WithCache(c),
		server.WithGeoResolver(geoResolver),
		server.WithVersionChecker(checker),
	}
	if corsOrigin != "" {
		opts = append(opts, server.WithCORSOrigin(corsOrigin))
	}
	srv := server.NewServer(s, eng, cat, opts...)

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go checker.Start(ctx)

	go func() {
		log.Printf("MediaPick %s listening on %s", buildVersion, listenAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
