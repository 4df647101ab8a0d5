package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/HSCode-Intelligence/internal/config"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Handler processes one decoded classification request.  A nil return commits
// the offset; an error after all retries parks the message in the log via a
// commit-with-warning so one poison message cannot wedge the partition.
type Handler func(ctx context.Context, msg ClassifyMessage) error

// Consumer runs the background classification loop: fetch, decode, dispatch
// to the handler with bounded retries, commit.
type Consumer struct {
	reader  ReaderInterface
	handler Handler
	worker  config.WorkerConfig
	logger  logging.Logger

	wg sync.WaitGroup
}

// NewConsumer creates a Consumer joining the configured consumer group on the
// classify topic.
func NewConsumer(cfg config.KafkaConfig, worker config.WorkerConfig, handler Handler, logger logging.Logger) *Consumer {
	startOffset := kafka.LastOffset
	if cfg.AutoOffsetReset == "earliest" {
		startOffset = kafka.FirstOffset
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.ClassifyTopic,
		StartOffset:    startOffset,
		MinBytes:       1,
		MaxBytes:       10 << 20,
		CommitInterval: 0, // explicit commits only
		MaxWait:        time.Duration(cfg.TimeoutMS) * time.Millisecond,
	})
	return newConsumerWithReader(r, worker, handler, logger)
}

func newConsumerWithReader(r ReaderInterface, worker config.WorkerConfig, handler Handler, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if worker.Concurrency <= 0 {
		worker.Concurrency = 1
	}
	if worker.MaxRetries < 0 {
		worker.MaxRetries = 0
	}
	return &Consumer{
		reader:  r,
		handler: handler,
		worker:  worker,
		logger:  logger.Named("kafka.consumer"),
	}
}

// Run consumes until ctx is cancelled or the reader is closed.  Messages are
// processed by a bounded pool; an offset is committed only after its message
// has been handled or deliberately discarded.
func (c *Consumer) Run(ctx context.Context) error {
	sem := make(chan struct{}, c.worker.Concurrency)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			c.wg.Wait()
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return pkgerrors.Wrap(err, pkgerrors.ErrCodeExternalService, "fetch classify message")
		}

		sem <- struct{}{}
		c.wg.Add(1)
		go func(m kafka.Message) {
			defer c.wg.Done()
			defer func() { <-sem }()
			c.process(ctx, m)
		}(msg)
	}
}

// process decodes and handles one raw message, then commits its offset.
func (c *Consumer) process(ctx context.Context, raw kafka.Message) {
	var msg ClassifyMessage
	if err := json.Unmarshal(raw.Value, &msg); err != nil {
		c.logger.Warn("discarding undecodable classify message",
			logging.String("key", string(raw.Key)),
			logging.Int64("offset", raw.Offset),
			logging.Err(err))
		c.commit(ctx, raw)
		return
	}

	err := c.handleWithRetry(ctx, msg)
	if err != nil {
		c.logger.Error("classify request abandoned after retries",
			logging.String("request_id", msg.RequestID),
			logging.Int("retries", c.worker.MaxRetries),
			logging.Err(err))
	}
	c.commit(ctx, raw)
}

func (c *Consumer) handleWithRetry(ctx context.Context, msg ClassifyMessage) error {
	backoff := c.worker.RetryBackoffMS
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	var err error
	for attempt := 0; attempt <= c.worker.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		if err = c.handler(ctx, msg); err == nil {
			return nil
		}
		c.logger.Warn("classify handler failed",
			logging.String("request_id", msg.RequestID),
			logging.Int("attempt", attempt+1),
			logging.Err(err))
	}
	return err
}

func (c *Consumer) commit(ctx context.Context, raw kafka.Message) {
	if err := c.reader.CommitMessages(ctx, raw); err != nil {
		c.logger.Error("offset commit failed",
			logging.Int64("offset", raw.Offset),
			logging.Err(err))
	}
}

// Close stops the underlying reader; Run returns once in-flight handlers
// drain.
func (c *Consumer) Close() error {
	err := c.reader.Close()
	c.wg.Wait()
	return err
}
