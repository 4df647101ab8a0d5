package engine

import (
	"context"
	"time"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
)

// Size bounds keep audit records sane regardless of how verbose declarations
// or AI rationales get.
const (
	maxAuditSteps         = 200
	maxAuditRationale     = 500
	maxAuditDescription   = 1000
	maxAuditChallengeText = 500
)

// AuditSink persists completed run records.  Delivery is best-effort from
// the engine's point of view: a sink failure is logged and never surfaces to
// the caller.
type AuditSink interface {
	Append(ctx context.Context, rec *AuditRecord) error
}

// AuditProduct is the sanitized product summary stored with a run.
type AuditProduct struct {
	Description string `json:"description"`
	Material    string `json:"material,omitempty"`
	Form        string `json:"form,omitempty"`
	IntendedUse string `json:"intended_use,omitempty"`
	Origin      string `json:"origin,omitempty"`
}

// AuditCandidate is the final state of one candidate.
type AuditCandidate struct {
	Code       string  `json:"code"`
	Confidence float64 `json:"confidence"`
	Alive      bool    `json:"alive"`
	Reason     string  `json:"reason,omitempty"`
	Stage      string  `json:"stage,omitempty"`
}

// AuditRecord is the append-only account of one elimination run.
type AuditRecord struct {
	RunID          string                   `json:"run_id"`
	Timestamp      time.Time                `json:"timestamp"`
	Product        AuditProduct             `json:"product"`
	Candidates     []AuditCandidate         `json:"candidates"`
	Steps          []tariff.EliminationStep `json:"steps"`
	Challenges     []tariff.Challenge       `json:"challenges,omitempty"`
	SurvivorCount  int                      `json:"survivor_count"`
	NeedsAI        bool                     `json:"needs_ai"`
	NeedsQuestions bool                     `json:"needs_questions"`
}

// buildAuditRecord sanitizes a run result into its audit form, truncating
// free text and capping the step list.
func (r *run) buildAuditRecord(res *tariff.RunResult) *AuditRecord {
	rec := &AuditRecord{
		RunID:     res.RunID,
		Timestamp: res.Timestamp,
		Product: AuditProduct{
			Description: truncate(r.product.Description, maxAuditDescription),
			Material:    r.product.Material,
			Form:        r.product.Form,
			IntendedUse: r.product.IntendedUse,
			Origin:      r.product.OriginCountry,
		},
		SurvivorCount:  res.SurvivorCount,
		NeedsAI:        res.NeedsAI,
		NeedsQuestions: res.NeedsQuestions,
	}
	for _, c := range r.cands {
		ac := AuditCandidate{
			Code:       c.Code,
			Confidence: c.Confidence,
			Alive:      c.Alive,
		}
		if !c.Alive {
			ac.Reason = truncate(c.EliminationReason, maxAuditRationale)
			ac.Stage = c.EliminatedAt.String()
		}
		rec.Candidates = append(rec.Candidates, ac)
	}
	steps := res.Steps
	if len(steps) > maxAuditSteps {
		steps = steps[:maxAuditSteps]
	}
	rec.Steps = make([]tariff.EliminationStep, len(steps))
	for i, s := range steps {
		s.Rationale = truncate(s.Rationale, maxAuditRationale)
		rec.Steps[i] = s
	}
	for _, ch := range res.Challenges {
		ch.CounterArgument = truncate(ch.CounterArgument, maxAuditChallengeText)
		rec.Challenges = append(rec.Challenges, ch)
	}
	return rec
}

// submitAudit delivers the run record to the configured sink, if any.
func (r *run) submitAudit(res *tariff.RunResult) {
	if r.e.audit == nil {
		return
	}
	if err := r.e.audit.Append(r.ctx, r.buildAuditRecord(res)); err != nil {
		r.logger.Error("audit record delivery failed",
			logging.String("run_id", res.RunID), logging.Err(err))
	}
}
