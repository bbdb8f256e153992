package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielhkuo/forum-polls/cache"
	"github.com/danielhkuo/forum-polls/cliparse"
	"github.com/danielhkuo/forum-polls/db"
	"github.com/danielhkuo/forum-polls/eligibility"
	"github.com/danielhkuo/forum-polls/metrics"
	"github.com/danielhkuo/forum-polls/middleware"
	"github.com/danielhkuo/forum-polls/polls"
	"github.com/danielhkuo/forum-polls/router"
	"github.com/danielhkuo/forum-polls/store"
)

func main() {
	var err error

	if err := cliparse.LoadDotEnv(".env"); err != nil {
		slog.Error("Error loading .env", "error", err)
		os.Exit(1)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx := context.Background()

	// Connect and verify
	dbConn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn, cfg.DatabaseType); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		slog.Error("metrics registration failed", "error", err)
		os.Exit(1)
	}

	pollCache := cache.New(ctx, cfg.RedisURL)
	defer pollCache.Close()

	svc := polls.NewService(store.New(dbConn, cfg.DatabaseType), eligibility.NewGate(nil), pollCache)

	// Create router
	mux := router.NewRouter(svc, cfg, prometheus.DefaultGatherer)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
