// API server entry point for HSCode-Intelligence.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/HSCode-Intelligence/internal/config"
	msgkafka "github.com/turtacn/HSCode-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/HSCode-Intelligence/internal/interfaces/http"
	"github.com/turtacn/HSCode-Intelligence/internal/interfaces/http/handlers"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *httpPort); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, httpPort int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: config file unusable, falling back to environment: %v\n", err)
		if cfg, err = config.LoadFromEnv(); err != nil {
			return err
		}
	}
	if httpPort > 0 {
		cfg.Server.Port = httpPort
	}

	logger, err := buildLogger(cfg.Log)
	if err != nil {
		return err
	}
	logger = logger.Named("apiserver")
	logger.Info("starting HSCode-Intelligence API server",
		logging.Int("port", cfg.Server.Port))

	// Log level tracks the config file at runtime; everything else needs a restart.
	if setter, ok := logger.(logging.LevelSetter); ok {
		config.Watch(configPath, func(newCfg *config.Config) {
			if newCfg.Log.Level != cfg.Log.Level {
				setter.SetLevel(newCfg.Log.Level)
				logger.Info("log level changed", logging.String("level", newCfg.Log.Level))
				cfg.Log.Level = newCfg.Log.Level
			}
		})
	}

	metrics := prometheus.NewMetrics(prometheus.MetricsConfig{
		Namespace:            "hscode",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	b, err := connectBackends(ctx, cfg, logger, metrics)
	cancel()
	if err != nil {
		return err
	}
	defer b.close()

	eng, err := buildEngine(cfg, b.store, logger, metrics)
	if err != nil {
		return err
	}

	// Async classification goes through the worker topic when Kafka is up.
	var enqueuer handlers.Enqueuer
	if len(cfg.Kafka.Brokers) > 0 {
		producer := msgkafka.NewProducer(cfg.Kafka, logger)
		defer producer.Close()
		enqueuer = producer
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		ClassifyHandler: handlers.NewClassifyHandler(eng, nil, enqueuer, logger),
		HealthHandler:   handlers.NewHealthHandler(b.checks),
		MetricsHandler:  metrics.Handler(),
		HTTPMetrics:     metrics,
		Logger:          logger,
		Mode:            httpserver.ServerModeFromConfig(cfg.Server),
	})
	srv := httpserver.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	}

	if err := srv.Stop(context.Background()); err != nil {
		return err
	}
	logger.Info("apiserver stopped")
	return nil
}
