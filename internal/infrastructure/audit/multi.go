package audit

import (
	"context"

	"github.com/turtacn/HSCode-Intelligence/internal/engine"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

// MultiSink fans an audit record out to every configured sink.  Each sink is
// attempted regardless of earlier failures; the first error is returned so
// the engine logs the degradation, but one slow or broken sink never hides a
// record from the others.
type MultiSink struct {
	sinks  []engine.AuditSink
	logger logging.Logger
}

// NewMultiSink builds a fan-out over the given sinks, skipping nils.
func NewMultiSink(log logging.Logger, sinks ...engine.AuditSink) *MultiSink {
	m := &MultiSink{logger: log}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Append delivers rec to every sink.
func (m *MultiSink) Append(ctx context.Context, rec *engine.AuditRecord) error {
	var first error
	for _, s := range m.sinks {
		if err := s.Append(ctx, rec); err != nil {
			m.logger.Warn("audit sink delivery failed",
				logging.String("run_id", rec.RunID), logging.Err(err))
			if first == nil {
				first = err
			}
		}
	}
	if first != nil {
		return pkgerrors.Wrap(first, pkgerrors.ErrCodeAuditAppend, "one or more audit sinks failed")
	}
	return nil
}
