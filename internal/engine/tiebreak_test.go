package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/product"
	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/testutil"
)

// newTestRun builds a run over the fake store so individual stages can be
// exercised in isolation.
func newTestRun(t *testing.T, store *testutil.FakeRuleStore, prod *product.Info, cands []*tariff.Candidate) *run {
	t.Helper()
	e := New(store, WithLogger(testutil.NewMockLogger()))
	return &run{
		e:       e,
		ctx:     context.Background(),
		id:      "test-run",
		cache:   NewRuleCache(store, e.logger),
		product: prod,
		cands:   cands,
		logger:  e.logger,
	}
}

func stepRules(steps []tariff.EliminationStep) []tariff.RuleCategory {
	var out []tariff.RuleCategory
	for _, s := range steps {
		out = append(out, s.Rule)
	}
	return out
}

func TestGIR3A_EliminatesFarLessSpecificHeading(t *testing.T) {
	prod := newProduct(t, product.RawItem{
		Description: "ceramic tableware plates for dining",
		Material:    "ceramic",
	})
	specific := newCand(t, "69111000", "Tableware plates of ceramic for dining")
	vague := newCand(t, "69149000", "Other articles")

	r := newTestRun(t, testutil.NewFakeRuleStore(), prod, []*tariff.Candidate{specific, vague})
	r.gir3a()

	assert.True(t, specific.Alive)
	assert.False(t, vague.Alive)
	assert.Equal(t, tariff.StageTieBreak, vague.EliminatedAt)
	require.Len(t, r.steps, 1)
	assert.Equal(t, tariff.RuleGIR3A, r.steps[0].Rule)
	assert.Equal(t, tariff.ActionEliminate, r.steps[0].Action)
	assert.Equal(t, []string{"69149000"}, r.steps[0].Affected)
}

func TestGIR3A_CloseScoresLeaveAllAlive(t *testing.T) {
	prod := newProduct(t, product.RawItem{
		Description: "ceramic tableware plates for dining",
		Material:    "ceramic",
	})
	cands := []*tariff.Candidate{
		newCand(t, "69111000", "Tableware plates of ceramic for dining"),
		newCand(t, "69120000", "Dining plates of porcelain"),
	}

	r := newTestRun(t, testutil.NewFakeRuleStore(), prod, cands)
	r.gir3a()

	assert.True(t, cands[0].Alive)
	assert.True(t, cands[1].Alive)
	assert.Empty(t, r.steps, "without an unambiguous leader 3(a) stays silent")
}

func TestGIR3B_EliminatesHeadingsMissingEssentialCharacter(t *testing.T) {
	prod := newProduct(t, product.RawItem{
		Description: "woven cotton fabric shirts",
		Material:    "cotton",
	})
	cotton := newCand(t, "62052000", "Shirts of woven cotton fabric")
	bare := newCand(t, "62079900", "Woven shirts of synthetic fibres")

	r := newTestRun(t, testutil.NewFakeRuleStore(), prod, []*tariff.Candidate{cotton, bare})
	r.gir3b()

	assert.True(t, cotton.Alive)
	assert.False(t, bare.Alive)
	require.Len(t, r.steps, 1)
	assert.Equal(t, tariff.RuleGIR3B, r.steps[0].Rule)
	assert.Contains(t, r.steps[0].Rationale, "cotton")
}

func TestGIR3B_SilentWithoutPrimaryMaterial(t *testing.T) {
	prod := newProduct(t, product.RawItem{Description: "decorative articles"})
	cands := []*tariff.Candidate{
		newCand(t, "83062900", "Statuettes and ornaments of base metal"),
		newCand(t, "44201900", "Statuettes of wood"),
	}

	r := newTestRun(t, testutil.NewFakeRuleStore(), prod, cands)
	r.gir3b()

	assert.True(t, cands[0].Alive)
	assert.True(t, cands[1].Alive)
	assert.Empty(t, r.steps)
}

func TestGIR3B_SilentWhenMaterialMatchesSeveralHeadings(t *testing.T) {
	prod := newProduct(t, product.RawItem{
		Description: "woven cotton fabric shirts",
		Material:    "cotton",
	})
	cands := []*tariff.Candidate{
		newCand(t, "62052000", "Shirts of woven cotton fabric"),
		newCand(t, "62059000", "Shirts of cotton blends"),
	}

	r := newTestRun(t, testutil.NewFakeRuleStore(), prod, cands)
	r.gir3b()

	assert.True(t, cands[0].Alive)
	assert.True(t, cands[1].Alive)
	assert.Empty(t, r.steps, "more than one essential-character match is still a tie")
}

func TestTieBreak_CascadeOrdering(t *testing.T) {
	// 3(a) removes the residual heading, 3(b) then separates the remaining
	// two by material, and 3(c) never runs once a single survivor remains.
	prod := newProduct(t, product.RawItem{
		Description: "woven cotton fabric shirts",
		Material:    "cotton",
	})
	cotton := newCand(t, "62052000", "Shirts of woven cotton fabric")
	synthetic := newCand(t, "62079900", "Woven shirts of synthetic fibres")
	vague := newCand(t, "62179000", "Other made up articles")

	r := newTestRun(t, testutil.NewFakeRuleStore(), prod, []*tariff.Candidate{cotton, synthetic, vague})
	r.tieBreakStage()

	assert.True(t, cotton.Alive)
	assert.False(t, synthetic.Alive)
	assert.False(t, vague.Alive)

	rules := stepRules(r.steps)
	require.Equal(t, []tariff.RuleCategory{tariff.RuleGIR3A, tariff.RuleGIR3B}, rules)
	assert.Equal(t, []string{"62179000"}, r.steps[0].Affected)
	assert.Equal(t, []string{"62079900"}, r.steps[1].Affected)
}

func TestTieBreak_StopsWhenOneSurvivorRemains(t *testing.T) {
	prod := newProduct(t, product.RawItem{
		Description: "ceramic tableware plates for dining",
		Material:    "ceramic",
	})
	specific := newCand(t, "69111000", "Tableware plates of ceramic for dining")
	vague := newCand(t, "69149000", "Other articles")

	r := newTestRun(t, testutil.NewFakeRuleStore(), prod, []*tariff.Candidate{specific, vague})
	r.tieBreakStage()

	assert.True(t, specific.Alive)
	for _, rule := range stepRules(r.steps) {
		assert.NotEqual(t, tariff.RuleGIR3B, rule)
		assert.NotEqual(t, tariff.RuleGIR3C, rule)
	}
}

func TestSubheadingStage_BoostsGovernedCandidateOnly(t *testing.T) {
	store := testutil.NewFakeRuleStore()
	store.AddChapter(16, &tariff.ChapterNotes{
		Chapter: "84",
		SubheadingRules: []tariff.SubheadingRule{
			{Prefix: "847130", Note: "portable machines weighing not more than 10 kg"},
		},
	})

	prod := newProduct(t, product.RawItem{Description: "portable laptop computer"})
	portable := newCand(t, "84713000", "Portable laptop computer weighing under 10 kg")
	system := newCand(t, "84714100", "Computer systems comprising a processing unit")

	r := newTestRun(t, store, prod, []*tariff.Candidate{portable, system})
	r.subheadingStage()

	assert.True(t, portable.Alive)
	assert.True(t, system.Alive, "subheading notes boost, never eliminate")
	assert.Greater(t, portable.Confidence, system.Confidence)
	require.Len(t, r.steps, 1)
	assert.Equal(t, tariff.RuleSubheadingNote, r.steps[0].Rule)
	assert.Equal(t, tariff.ActionBoost, r.steps[0].Action)
	assert.Equal(t, []string{"84713000"}, r.steps[0].Affected)
}

func TestSubheadingStage_NoNotesNoSteps(t *testing.T) {
	prod := newProduct(t, product.RawItem{Description: "portable laptop computer"})
	cands := []*tariff.Candidate{newCand(t, "84713000", "Portable laptop computer")}

	r := newTestRun(t, testutil.NewFakeRuleStore(), prod, cands)
	r.subheadingStage()

	assert.Empty(t, r.steps)
}
