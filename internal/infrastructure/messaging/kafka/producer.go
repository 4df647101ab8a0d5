package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/HSCode-Intelligence/internal/config"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes classification requests onto the classify topic, keyed
// by request ID so retries of the same request land on the same partition.
type Producer struct {
	writer WriterInterface
	topic  string
	logger logging.Logger
}

// NewProducer creates a Producer backed by a real kafka.Writer.
func NewProducer(cfg config.KafkaConfig, logger logging.Logger) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.ClassifyTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  max(cfg.ProducerRetries, 1),
		BatchSize:    cfg.BatchSize,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newProducerWithWriter(w, cfg.ClassifyTopic, logger)
}

func newProducerWithWriter(w WriterInterface, topic string, logger logging.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Producer{writer: w, topic: topic, logger: logger.Named("kafka.producer")}
}

// Enqueue publishes one classification request.
func (p *Producer) Enqueue(ctx context.Context, msg ClassifyMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeSerialization, "marshal classify message")
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.RequestID),
		Value: payload,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		p.logger.Error("classify request publish failed",
			logging.String("request_id", msg.RequestID),
			logging.Err(err))
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeExternalService, "publish classify message")
	}
	p.logger.Debug("classify request enqueued",
		logging.String("request_id", msg.RequestID),
		logging.String("topic", p.topic))
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error { return p.writer.Close() }
