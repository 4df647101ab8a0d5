package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/HSCode-Intelligence/internal/config"
	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/engine"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/ai"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/audit"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/rulestore"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/rulestore/opensearch"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/rulestore/postgres"
	"github.com/turtacn/HSCode-Intelligence/internal/interfaces/http/handlers"
)

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

// backends holds the connected infrastructure an entrypoint wires the engine
// from, together with the readiness probes for each piece.
type backends struct {
	pool   *pgxpool.Pool
	rdb    redis.UniversalClient
	store  tariff.RuleStore
	checks map[string]handlers.Checker
}

func (b *backends) close() {
	if b.rdb != nil {
		b.rdb.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

// connectBackends dials PostgreSQL and layers the Redis cache and the
// OpenSearch heading index on top when configured.
func connectBackends(ctx context.Context, cfg *config.Config, logger logging.Logger, metrics *prometheus.Metrics) (*backends, error) {
	pool, err := postgres.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	b := &backends{
		pool:   pool,
		checks: map[string]handlers.Checker{"postgres": pool.Ping},
	}

	var store tariff.RuleStore = postgres.NewStore(pool, logger)
	if cfg.OpenSearch.Addresses != nil {
		search, err := opensearch.NewStore(cfg.OpenSearch, logger)
		if err != nil {
			b.close()
			return nil, err
		}
		store = rulestore.NewComposite(store, search, logger)
		b.checks["opensearch"] = search.Ping
	}
	if cfg.Redis.Addr != "" {
		b.rdb = rulestore.NewRedisClient(cfg.Redis)
		cached := rulestore.NewCached(store, b.rdb, cfg.Redis, logger)
		if metrics != nil {
			cached.InstrumentLookups(metrics.IncRuleCacheLookup)
		}
		store = cached
		b.checks["redis"] = func(ctx context.Context) error { return b.rdb.Ping(ctx).Err() }
	}
	b.store = store
	return b, nil
}

// buildEngine assembles the elimination engine with the AI fallback and the
// audit trail as configured.
func buildEngine(cfg *config.Config, store tariff.RuleStore, logger logging.Logger, metrics *prometheus.Metrics) (*engine.Engine, error) {
	opts := []engine.Option{engine.WithLogger(logger)}
	if metrics != nil {
		opts = append(opts, engine.WithMetrics(metrics))
	}

	if cfg.AIEnabled() {
		client, err := ai.NewClient(cfg.AI, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithConsultant(client), engine.WithChallenger(client))
	}

	var auditSinks []engine.AuditSink
	if len(cfg.Kafka.Brokers) > 0 {
		auditSinks = append(auditSinks, audit.NewKafkaSink(cfg.Kafka, logger))
	}
	if cfg.MinIO.Endpoint != "" {
		sink, err := audit.NewMinIOSink(cfg.MinIO, logger)
		if err != nil {
			return nil, err
		}
		auditSinks = append(auditSinks, sink)
	}
	if len(auditSinks) > 0 {
		opts = append(opts, engine.WithAuditSink(audit.NewMultiSink(logger, auditSinks...)))
	}

	return engine.New(store, opts...), nil
}
