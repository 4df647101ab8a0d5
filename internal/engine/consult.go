package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// AI fallback
// ─────────────────────────────────────────────────────────────────────────────

// ConsultRequest is the material handed to the AI consultant: the product as
// declared, the candidates the deterministic stages could not separate, and
// the trailing elimination steps so the model sees how the field narrowed.
type ConsultRequest struct {
	RunID       string             `json:"run_id"`
	Description string             `json:"description"`
	Material    string             `json:"material,omitempty"`
	Form        string             `json:"form,omitempty"`
	IntendedUse string             `json:"intended_use,omitempty"`
	Candidates  []ConsultCandidate `json:"candidates"`
	RecentSteps []ConsultStep      `json:"recent_steps,omitempty"`
}

// ConsultStep summarizes one pipeline step for the consultant.
type ConsultStep struct {
	Stage     string `json:"stage"`
	Rule      string `json:"rule"`
	Rationale string `json:"rationale"`
}

// consultStepWindow bounds how many trailing steps accompany a consultation.
const consultStepWindow = 5

// ConsultCandidate is one surviving code as presented to the consultant.
type ConsultCandidate struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// Opinion is the consultant's verdict.  Eliminate lists codes the consultant
// rules out; BestCode, when set, names the preferred survivor.
type Opinion struct {
	BestCode   string   `json:"best_code"`
	Confidence int      `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Eliminate  []string `json:"eliminate"`
	NeedsHuman bool     `json:"needs_human"`
}

// Consultant resolves residual ambiguity the deterministic stages left
// behind.  Implementations are expected to be remote and fallible; the
// engine treats every failure as "no opinion".
type Consultant interface {
	Consult(ctx context.Context, req ConsultRequest) (*Opinion, error)
}

// ParseOpinion decodes a consultant reply, stripping markdown code fences
// the way chat-style model output tends to arrive.
func ParseOpinion(raw string) (*Opinion, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.ErrCodeAIResponseEmpty, "consultant returned an empty reply")
	}
	var op Opinion
	if err := json.Unmarshal([]byte(trimmed), &op); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeAIResponseInvalid, "consultant reply is not valid JSON")
	}
	return &op, nil
}

// consultStage asks the consultant to separate the remaining survivors.  The
// stage is strictly advisory-with-teeth: a valid opinion may eliminate codes
// and boost the preferred one, while any failure, malformed reply, or
// needs-human verdict leaves the survivor set untouched.  The zero-survivor
// safeguard applies to AI eliminations the same as to rule eliminations.
func (r *run) consultStage(res *tariff.RunResult) {
	if r.e.consultant == nil {
		return
	}
	req := ConsultRequest{
		RunID:       r.id,
		Description: r.product.Description,
		Material:    r.product.Material,
		Form:        r.product.Form,
		IntendedUse: r.product.IntendedUse,
	}
	for _, c := range r.alive() {
		req.Candidates = append(req.Candidates, ConsultCandidate{
			Code:        c.Code,
			Description: r.headingText(c),
			Confidence:  c.Confidence,
		})
	}
	first := len(r.steps) - consultStepWindow
	if first < 0 {
		first = 0
	}
	for _, s := range r.steps[first:] {
		req.RecentSteps = append(req.RecentSteps, ConsultStep{
			Stage:     s.Stage.String(),
			Rule:      s.Rule.String(),
			Rationale: s.Rationale,
		})
	}

	op, err := r.e.consultant.Consult(r.ctx, req)
	outcome := "applied"
	switch {
	case err != nil:
		r.logger.Warn("AI consultation failed; survivors unchanged", logging.Err(err))
		r.addStep(tariff.StageConsult, tariff.ActionKeep, tariff.RuleAIOpinion, "", r.aliveCount(), nil,
			"consultation failed, all survivors kept: "+truncate(err.Error(), 200))
		outcome = "failed"
	case op == nil || (op.BestCode == "" && len(op.Eliminate) == 0):
		r.logger.Info("AI consultation returned no actionable opinion")
		r.addStep(tariff.StageConsult, tariff.ActionKeep, tariff.RuleAIOpinion, "", r.aliveCount(), nil,
			"consultant declined to decide, all survivors kept")
		outcome = "empty"
	case op.NeedsHuman:
		before := r.aliveCount()
		r.addStep(tariff.StageConsult, tariff.ActionKeep, tariff.RuleAIOpinion, "", before, nil,
			"consultant deferred to human review: "+truncate(op.Reasoning, 200))
		res.NeedsQuestions = true
		outcome = "needs_human"
	default:
		r.applyOpinion(op)
	}
	if r.e.metrics != nil {
		r.e.metrics.IncConsultations(outcome)
	}

	// Refresh the result: the opinion may have changed the survivor set.
	res.Steps = r.steps
	res.Survivors = res.Survivors[:0]
	res.Eliminated = res.Eliminated[:0]
	for _, c := range r.cands {
		if c.Alive {
			res.Survivors = append(res.Survivors, c)
		} else {
			res.Eliminated = append(res.Eliminated, c)
		}
	}
	res.SurvivorCount = len(res.Survivors)
	res.EliminatedCount = len(res.Eliminated)
	if res.SurvivorCount > 3 {
		res.NeedsQuestions = true
	}
}

// applyOpinion enacts a valid consultant verdict on the candidate set.
func (r *run) applyOpinion(op *Opinion) {
	if len(op.Eliminate) > 0 {
		byCode := map[string]*tariff.Candidate{}
		for _, c := range r.cands {
			byCode[normalizeDigits(c.Code)] = c
		}
		var targets []*tariff.Candidate
		for _, code := range op.Eliminate {
			if c, ok := byCode[normalizeDigits(code)]; ok && c.Alive {
				targets = append(targets, c)
			}
		}
		r.eliminateGroup(tariff.StageConsult, tariff.RuleAIOpinion, "consultant",
			targets, "ruled out by AI consultation: "+truncate(op.Reasoning, 300))
	}
	if op.BestCode != "" {
		want := normalizeDigits(op.BestCode)
		for _, c := range r.alive() {
			if normalizeDigits(c.Code) == want {
				r.boostGroup(tariff.StageConsult, tariff.RuleAIOpinion, "consultant",
					[]*tariff.Candidate{c}, 10,
					"preferred by AI consultation: "+truncate(op.Reasoning, 300))
				break
			}
		}
	}
}

func normalizeDigits(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	return fmt.Sprintf("%s…", string(rs[:max]))
}
