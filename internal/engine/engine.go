package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/product"
	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HSCode-Intelligence/internal/nlp"
)

// ─────────────────────────────────────────────────────────────────────────────
// Engine
// ─────────────────────────────────────────────────────────────────────────────

// MetricsRecorder receives run-level counters.  Implementations must be
// nil-safe to omit; the engine checks before every call.
type MetricsRecorder interface {
	ObserveRun(d time.Duration, survivors int)
	AddEliminations(stage string, n int)
	IncConsultations(outcome string)
	AddChallenges(n int)
}

// Engine runs the elimination pipeline.  It is stateless across runs: all
// per-run state lives in the run struct, so a single Engine is safe for
// concurrent use by multiple goroutines.
type Engine struct {
	store      tariff.RuleStore
	tok        *nlp.Tokenizer
	consultant Consultant
	challenger Challenger
	audit      AuditSink
	metrics    MetricsRecorder
	logger     logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithConsultant wires the AI fallback.  Without one the pipeline stays
// fully deterministic and only flags that consultation would have helped.
func WithConsultant(c Consultant) Option { return func(e *Engine) { e.consultant = c } }

// WithChallenger wires devil's-advocate challenge generation for survivors.
func WithChallenger(c Challenger) Option { return func(e *Engine) { e.challenger = c } }

// WithAuditSink wires the audit trail destination.
func WithAuditSink(s AuditSink) Option { return func(e *Engine) { e.audit = s } }

// WithMetrics wires run counters.
func WithMetrics(m MetricsRecorder) Option { return func(e *Engine) { e.metrics = m } }

// WithLogger overrides the default logger.
func WithLogger(l logging.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithTokenizer overrides the default bilingual tokenizer.
func WithTokenizer(t *nlp.Tokenizer) Option { return func(e *Engine) { e.tok = t } }

// New builds an Engine over the given rule store.
func New(store tariff.RuleStore, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		tok:    nlp.NewTokenizer(),
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run carries the mutable state of one elimination run.
type run struct {
	e       *Engine
	ctx     context.Context
	id      string
	cache   *RuleCache
	product *product.Info
	cands   []*tariff.Candidate
	steps   []tariff.EliminationStep
	logger  logging.Logger
}

// Eliminate executes the full pipeline over the candidate set and returns the
// run result.  Candidates are mutated in place; the same inputs always yield
// the same deterministic output.  An empty candidate set returns a degenerate
// empty result rather than an error.
func (e *Engine) Eliminate(ctx context.Context, prod *product.Info, cands []*tariff.Candidate) (*tariff.RunResult, error) {
	start := time.Now()
	r := &run{
		e:       e,
		ctx:     ctx,
		id:      uuid.NewString(),
		cache:   NewRuleCache(e.store, e.logger),
		product: prod,
		cands:   cands,
	}
	r.logger = e.logger.With(logging.String("run_id", r.id))

	if len(cands) == 0 {
		r.logger.Warn("elimination run with no candidates")
		return r.result(start), nil
	}
	r.logger.Info("elimination run started",
		logging.Int("candidates", len(cands)),
		logging.Int("keywords", len(prod.Keywords)))

	stages := []struct {
		stage tariff.Stage
		fn    func(*run)
	}{
		{tariff.StageEnrich, (*run).enrichStage},
		{tariff.StageSection, (*run).sectionStage},
		{tariff.StageChapter, (*run).chapterStage},
		{tariff.StageHeading, (*run).headingStage},
		{tariff.StageSubheading, (*run).subheadingStage},
		{tariff.StageTieBreak, (*run).tieBreakStage},
		{tariff.StageCatchAll, (*run).catchAllStage},
	}
	for _, s := range stages {
		before := r.aliveCount()
		s.fn(r)
		after := r.aliveCount()
		if e.metrics != nil && before > after {
			e.metrics.AddEliminations(s.stage.String(), before-after)
		}
		if after <= 1 {
			break
		}
	}

	res := r.result(start)
	if res.NeedsAI {
		r.consultStage(res)
	}
	res.Challenges = r.challengeSurvivors(res)
	if e.metrics != nil && len(res.Challenges) > 0 {
		e.metrics.AddChallenges(len(res.Challenges))
	}

	r.logger.Info("elimination run finished",
		logging.Int("survivors", res.SurvivorCount),
		logging.Int("eliminated", res.EliminatedCount),
		logging.Int("steps", len(res.Steps)),
		logging.Bool("needs_ai", res.NeedsAI))
	if e.metrics != nil {
		e.metrics.ObserveRun(time.Since(start), res.SurvivorCount)
	}
	r.submitAudit(res)
	return res, nil
}

// result assembles the RunResult from the current run state.
func (r *run) result(start time.Time) *tariff.RunResult {
	res := &tariff.RunResult{
		RunID:     r.id,
		Steps:     r.steps,
		Timestamp: start.UTC(),
	}
	sections := map[int]bool{}
	chapters := map[string]bool{}
	for _, c := range r.cands {
		if c.SectionID > 0 && !sections[c.SectionID] {
			sections[c.SectionID] = true
			res.SectionsExamined = append(res.SectionsExamined, c.SectionID)
		}
		if !chapters[c.Chapter] {
			chapters[c.Chapter] = true
			res.ChaptersExamined = append(res.ChaptersExamined, c.Chapter)
		}
		if c.Alive {
			res.Survivors = append(res.Survivors, c)
		} else {
			res.Eliminated = append(res.Eliminated, c)
		}
	}
	sort.Ints(res.SectionsExamined)
	sort.Strings(res.ChaptersExamined)
	res.SurvivorCount = len(res.Survivors)
	res.EliminatedCount = len(res.Eliminated)
	res.NeedsAI = res.SurvivorCount > 1
	res.NeedsQuestions = res.SurvivorCount > 3
	return res
}

// ─────────────────────────────────────────────────────────────────────────────
// Run helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *run) alive() []*tariff.Candidate {
	var out []*tariff.Candidate
	for _, c := range r.cands {
		if c.Alive {
			out = append(out, c)
		}
	}
	return out
}

func (r *run) aliveCount() int {
	n := 0
	for _, c := range r.cands {
		if c.Alive {
			n++
		}
	}
	return n
}

func (r *run) addStep(stage tariff.Stage, action tariff.Action, rule tariff.RuleCategory, ruleRef string, before int, affected []string, rationale string) {
	r.steps = append(r.steps, tariff.EliminationStep{
		Stage:     stage,
		Action:    action,
		Rule:      rule,
		RuleRef:   ruleRef,
		Before:    before,
		After:     r.aliveCount(),
		Affected:  affected,
		Rationale: rationale,
	})
}

// boostGroup raises confidence on targets and records one boost step.
func (r *run) boostGroup(stage tariff.Stage, rule tariff.RuleCategory, ruleRef string, targets []*tariff.Candidate, points float64, rationale string) {
	if len(targets) == 0 {
		return
	}
	before := r.aliveCount()
	var codes []string
	for _, c := range targets {
		c.Boost(points)
		codes = append(codes, c.Code)
	}
	r.addStep(stage, tariff.ActionBoost, rule, ruleRef, before, codes, rationale)
}

// eliminateGroup eliminates targets with the zero-survivor safeguard: if the
// elimination would empty the candidate set, the highest-confidence target is
// revived so at least one survivor always remains.  One step is recorded; a
// no-op (all targets already dead, or the lone rollback target) records
// nothing.
func (r *run) eliminateGroup(stage tariff.Stage, rule tariff.RuleCategory, ruleRef string, targets []*tariff.Candidate, reason string) {
	before := r.aliveCount()
	var hit []*tariff.Candidate
	for _, c := range targets {
		if !c.Alive {
			continue
		}
		c.Eliminate(stage, reason)
		hit = append(hit, c)
	}
	if len(hit) == 0 {
		return
	}
	rationale := reason
	if r.aliveCount() == 0 {
		best := hit[0]
		for _, c := range hit[1:] {
			if c.Confidence > best.Confidence {
				best = c
			}
		}
		best.Revive()
		var kept []*tariff.Candidate
		for _, c := range hit {
			if c != best {
				kept = append(kept, c)
			}
		}
		hit = kept
		rationale = fmt.Sprintf("%s (kept %s to preserve one survivor)", reason, best.Code)
		if len(hit) == 0 {
			return
		}
	}
	codes := make([]string, 0, len(hit))
	for _, c := range hit {
		codes = append(codes, c.Code)
	}
	r.addStep(stage, tariff.ActionEliminate, rule, ruleRef, before, codes, rationale)
	r.logger.Debug("candidates eliminated",
		logging.String("stage", stage.String()),
		logging.String("rule", string(rule)),
		logging.Int("count", len(codes)))
}

// headingText returns the best descriptive text for a candidate, falling back
// to the rule store's heading documents when the candidate arrived bare.  The
// fetched description and duty rate are stored on the candidate.
func (r *run) headingText(c *tariff.Candidate) string {
	if text := c.DescriptionText(); text != "" {
		return text
	}
	for _, doc := range r.cache.HeadingDocs(r.ctx, c.Heading) {
		if !strings.HasPrefix(c.Code, strings.ReplaceAll(doc.Code, ".", "")) && doc.Code != c.Heading {
			continue
		}
		if doc.Description == "" {
			continue
		}
		if c.Descriptions == nil {
			c.Descriptions = make(map[string]string)
		}
		c.Descriptions["en"] = doc.Description
		if c.DutyRate == "" {
			c.DutyRate = doc.DutyRate
		}
		return doc.Description
	}
	return ""
}
