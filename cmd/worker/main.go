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
	"github.com/segmentio/kafka-go"

	"example.com/trackersync/internal/config"
	"example.com/trackersync/internal/dedup"
	"example.com/trackersync/internal/events"
	"example.com/trackersync/internal/persistence/postgres"
	"example.com/trackersync/internal/provider"
	"example.com/trackersync/internal/syncer"
	"example.com/trackersync/internal/token"
	"example.com/trackersync/internal/worker"
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

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler()}

	go func() {
		log.Printf("worker metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.KafkaBrokers,
		GroupID:         cfg.WorkerGroupID,
		Topic:           events.TopicSyncJobs,
		MinBytes:        1e3,
		MaxBytes:        10e6,
		CommitInterval:  time.Second,
		RetentionTime:   24 * time.Hour,
		ReadLagInterval: -1,
	})

	proc := worker.NewProcessor(reader, engine)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer reader.Close()

		log.Printf("sync worker started (topic=%s, group=%s)", events.TopicSyncJobs, cfg.WorkerGroupID)
		if err := proc.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("sync worker stopped with error: %v", err)
		}
	}()

	<-stop
	log.Println("worker shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}

	<-done
}
