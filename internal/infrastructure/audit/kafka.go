// Package audit persists completed elimination runs.  Two sinks exist: a
// Kafka topic for downstream consumers (compliance review, analytics) and a
// MinIO bucket for long-term archival; MultiSink fans out to both.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/HSCode-Intelligence/internal/config"
	"github.com/turtacn/HSCode-Intelligence/internal/engine"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink appends audit records to a Kafka topic, keyed by run id so that
// re-deliveries land in the same partition.
type KafkaSink struct {
	writer WriterInterface
	logger logging.Logger
}

// NewKafkaSink builds a sink over the configured brokers and audit topic.
func NewKafkaSink(cfg config.KafkaConfig, log logging.Logger) *KafkaSink {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.AuditTopic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.ProducerRetries + 1,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: time.Second,
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaSink{writer: writer, logger: log}
}

// newKafkaSinkWithWriter is a test seam.
func newKafkaSinkWithWriter(w WriterInterface, log logging.Logger) *KafkaSink {
	return &KafkaSink{writer: w, logger: log}
}

// Append publishes one audit record.
func (s *KafkaSink) Append(ctx context.Context, rec *engine.AuditRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeAuditSerialize, "failed to encode audit record")
	}
	msg := kafka.Message{
		Key:   []byte(rec.RunID),
		Value: payload,
		Time:  rec.Timestamp,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrCodeAuditAppend, "failed to publish audit record")
	}
	s.logger.Debug("audit record published",
		logging.String("run_id", rec.RunID),
		logging.Int("bytes", len(payload)))
	return nil
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
