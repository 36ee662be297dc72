package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"harvester/internal/config"
	"harvester/internal/core/export"
	"harvester/internal/core/extract"
	"harvester/internal/core/fetch"
	"harvester/internal/core/job"
	"harvester/internal/core/product"
	"harvester/internal/core/scrape"
	"harvester/internal/logger"
	pg "harvester/internal/platform/postgres"
	rds "harvester/internal/platform/redis"
	tasks "harvester/internal/platform/tasks"
	"harvester/internal/server"
	"harvester/internal/worker"
)

func main() {
	cfg := config.Load()
	log.Printf("[harvester] starting at %s (env=%s)\n", cfg.HTTPAddr, cfg.AppEnv)

	// Initialize logger
	logr := logger.New("main")

	// Redis client
	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer redisSvc.Close()

	// Postgres pool and schema
	ctx := context.Background()
	pgSvc, err := pg.New(ctx, pg.Options{DSN: cfg.PostgresDSN})
	if err != nil {
		log.Fatal(err)
	}
	defer pgSvc.Close()
	if err := pgSvc.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Asynq client and server
	taskClient := tasks.New(redisSvc)
	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{"default": 1},
	})

	// Extraction rules, with optional overrides file
	rules := extract.DefaultRules()
	if cfg.ExtractionRulesFile != "" {
		if err := rules.LoadOverrides(cfg.ExtractionRulesFile); err != nil {
			log.Fatalf("extraction rules: %v", err)
		}
		logr.LogInfof("loaded extraction rule overrides from %s", cfg.ExtractionRulesFile)
	}

	// Core services
	jobStore := job.NewStore(pgSvc)
	productStore := product.NewStore(pgSvc)
	fetcher := fetch.NewClient(fetch.Config{
		Timeout:      time.Duration(cfg.FetchTimeoutSeconds) * time.Second,
		DelayMin:     time.Duration(cfg.FetchDelayMinMs) * time.Millisecond,
		DelayMax:     time.Duration(cfg.FetchDelayMaxMs) * time.Millisecond,
		MaxBodyBytes: cfg.FetchMaxBodyBytes,
	})
	scrapeSvc := scrape.NewService(
		jobStore,
		productStore,
		taskClient,
		fetcher,
		redisSvc,
		extract.NewAssembler(rules),
		scrape.Config{
			CacheTTL:       time.Duration(cfg.PageCacheTTLSeconds) * time.Second,
			TaskMaxRetries: cfg.TaskMaxRetries,
		},
	)
	exportSvc := export.NewService(jobStore, productStore)

	// Worker mux
	mux := worker.NewMux()
	mux.HandleFunc(tasks.TaskTypeScrapeBatch, scrapeSvc.HandleBatchTask)

	// Start worker
	_, workerCancel := context.WithCancel(context.Background())
	go func() {
		if err := asynqServer.Start(mux.Mux()); err != nil {
			log.Printf("[worker] stopped: %v\n", err)
		}
	}()

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName: "Harvester",
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})

	// Register routes with health handler
	deps := server.Dependencies{
		Scrape:   scrapeSvc,
		Jobs:     jobStore,
		Products: productStore,
		Export:   exportSvc,
		Redis:    redisSvc,
		Postgres: pgSvc,
	}
	healthHandler := server.RegisterRoutes(app, deps)

	// Mark application as ready after all services are initialized
	go func() {
		time.Sleep(5 * time.Second) // Allow services to fully initialize
		healthHandler.SetReady()
	}()

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		workerCancel()
		asynqServer.Shutdown()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
