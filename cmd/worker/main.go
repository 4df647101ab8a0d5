// Background worker entry point: consumes queued classification requests and
// runs the elimination pipeline over them.  Results reach their consumers
// through the audit trail, so the engine is always wired with at least one
// sink here.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/HSCode-Intelligence/internal/config"
	"github.com/turtacn/HSCode-Intelligence/internal/domain/product"
	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/engine"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/ai"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/audit"
	msgkafka "github.com/turtacn/HSCode-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/rulestore"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/rulestore/opensearch"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/rulestore/postgres"
	"github.com/turtacn/HSCode-Intelligence/internal/nlp"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	concurrency := flag.Int("workers", 0, "handler concurrency (overrides config)")
	flag.Parse()

	if err := run(*configPath, *concurrency); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, concurrency int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: config file unusable, falling back to environment: %v\n", err)
		if cfg, err = config.LoadFromEnv(); err != nil {
			return err
		}
	}
	if concurrency > 0 {
		cfg.Worker.Concurrency = concurrency
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		return err
	}
	logger = logger.Named("worker")
	logger.Info("starting HSCode-Intelligence worker",
		logging.Int("concurrency", cfg.Worker.Concurrency),
		logging.String("topic", cfg.Kafka.ClassifyTopic))

	metrics := prometheus.NewMetrics(prometheus.MetricsConfig{
		Namespace:            "hscode",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, cleanup, err := connectRuleStore(ctx, cfg, logger, metrics)
	cancel()
	if err != nil {
		return err
	}
	defer cleanup()

	eng, err := buildEngine(cfg, store, logger, metrics)
	if err != nil {
		return err
	}

	tok := nlp.NewTokenizer()
	handler := func(ctx context.Context, msg msgkafka.ClassifyMessage) error {
		info, err := product.NewInfo(msg.Product, tok)
		if err != nil {
			// Unfixable input: log and drop rather than retry forever.
			logger.Warn("skipping incomplete product",
				logging.String("request_id", msg.RequestID), logging.Err(err))
			return nil
		}
		cands := tariff.CandidatesFromPreClassify(tariff.PreClassifyResult{Candidates: msg.Candidates})
		res, err := eng.Eliminate(ctx, info, cands)
		if err != nil {
			return err
		}
		logger.Info("classification run completed",
			logging.String("request_id", msg.RequestID),
			logging.String("run_id", res.RunID),
			logging.Int("survivors", res.SurvivorCount))
		return nil
	}

	consumer := msgkafka.NewConsumer(cfg.Kafka, cfg.Worker, handler, logger)

	// Probe endpoints for the scheduler.
	probe := &http.Server{Addr: ":8081", Handler: probeMux(metrics)}
	go func() {
		if err := probe.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("probe server failed", logging.Err(err))
		}
	}()

	runCtx, stop := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- consumer.Run(runCtx) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		stop()
		return err
	case sig := <-sigCh:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	}

	stop()
	if err := consumer.Close(); err != nil {
		logger.Warn("consumer close failed", logging.Err(err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = probe.Shutdown(shutdownCtx)

	logger.Info("worker stopped")
	return nil
}

func probeMux(metrics *prometheus.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// buildLogger maps the platform log config onto the zap-backed logger.
func buildLogger(cfg config.LogConfig) (logging.Logger, error) {
	format := "json"
	if cfg.Format == "text" {
		format = "console"
	}
	out := cfg.Output
	if out == "" {
		out = "stdout"
	}
	return logging.NewLogger(logging.LogConfig{
		Level:       cfg.Level,
		Format:      format,
		OutputPaths: []string{out},
	})
}

// connectRuleStore dials PostgreSQL and layers on the OpenSearch index and
// the Redis cache when configured.
func connectRuleStore(ctx context.Context, cfg *config.Config, logger logging.Logger, metrics *prometheus.Metrics) (tariff.RuleStore, func(), error) {
	pool, err := postgres.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := pool.Close

	var store tariff.RuleStore = postgres.NewStore(pool, logger)
	if cfg.OpenSearch.Addresses != nil {
		search, err := opensearch.NewStore(cfg.OpenSearch, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		store = rulestore.NewComposite(store, search, logger)
	}
	if cfg.Redis.Addr != "" {
		rdb := rulestore.NewRedisClient(cfg.Redis)
		cached := rulestore.NewCached(store, rdb, cfg.Redis, logger)
		cached.InstrumentLookups(metrics.IncRuleCacheLookup)
		store = cached
		prev := cleanup
		cleanup = func() { rdb.Close(); prev() }
	}
	return store, cleanup, nil
}

// buildEngine assembles the elimination engine with the AI fallback and the
// audit sinks.
func buildEngine(cfg *config.Config, store tariff.RuleStore, logger logging.Logger, metrics *prometheus.Metrics) (*engine.Engine, error) {
	opts := []engine.Option{engine.WithLogger(logger), engine.WithMetrics(metrics)}

	if cfg.AIEnabled() {
		client, err := ai.NewClient(cfg.AI, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithConsultant(client), engine.WithChallenger(client))
	}

	var sinks []engine.AuditSink
	if len(cfg.Kafka.Brokers) > 0 {
		sinks = append(sinks, audit.NewKafkaSink(cfg.Kafka, logger))
	}
	if cfg.MinIO.Endpoint != "" {
		sink, err := audit.NewMinIOSink(cfg.MinIO, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	if len(sinks) > 0 {
		opts = append(opts, engine.WithAuditSink(audit.NewMultiSink(logger, sinks...)))
	}

	return engine.New(store, opts...), nil
}
