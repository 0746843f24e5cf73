package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/trackersync/internal/api"
	"example.com/trackersync/internal/auth"
	"example.com/trackersync/internal/config"
	"example.com/trackersync/internal/dedup"
	"example.com/trackersync/internal/events"
	"example.com/trackersync/internal/persistence/postgres"
	"example.com/trackersync/internal/provider"
	"example.com/trackersync/internal/syncer"
	"example.com/trackersync/internal/token"
	httptransport "example.com/trackersync/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	tokens := postgres.NewTokenRepository(pool)
	snapshots := postgres.NewSnapshotRepository(pool)

	publisher := events.NewPublisher(cfg.KafkaBrokers)
	defer publisher.Close()

	client := provider.NewClient(provider.Config{
		BaseURL:        cfg.ProviderBaseURL,
		ClientID:       cfg.ProviderClientID,
		ClientSecret:   cfg.ProviderClientSecret,
		RequestTimeout: cfg.ProviderTimeout,
	})

	manager := token.NewManager(client, tokens, token.WithMaxAttempts(cfg.TokenMaxAttempts))
	filter := dedup.NewFilter(snapshots)
	engine := syncer.NewEngine(client, tokens, manager, filter, snapshots, publisher, provider.Name)

	handler := api.NewHandler(engine, publisher)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, func(r *http.Request) bool {
		return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
	})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(logger(mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("tracker-sync api listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
