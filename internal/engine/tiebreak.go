package engine

import (
	"fmt"
	"strings"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/nlp"
)

// tieBreakStage applies the GIR 3 cascade when more than one heading is
// still plausible: 3(a) most specific description, 3(b) essential character
// by material, and the 3(c) last-numerical-order preference.  Each rule
// only acts on what the previous one left alive.
func (r *run) tieBreakStage() {
	r.gir3a()
	if r.aliveCount() > 1 {
		r.gir3b()
	}
	if r.aliveCount() > 1 {
		r.gir3c()
	}
}

// gir3a prefers the most specific description.  The specificity composite
// reweights the GIR 1 components toward descriptive detail (40% keyword
// overlap, 30% specificity, 30% attributes) and only eliminates when the
// leader is unambiguous: at least twice the runner-up.  Anything above 40%
// of the leader stays.
func (r *run) gir3a() {
	alive := r.alive()
	if len(alive) < 2 {
		return
	}
	scores := make([]headingScore, len(alive))
	for i, c := range alive {
		hs := r.scoreHeading(c)
		hs.total = rescore3a(r, c, hs)
		scores[i] = hs
	}
	best, second := -1.0, -1.0
	for _, s := range scores {
		switch {
		case s.total > best:
			second = best
			best = s.total
		case s.total > second:
			second = s.total
		}
	}
	if best <= 0 || best < 2*second {
		return
	}
	var weak []*tariff.Candidate
	for _, s := range scores {
		if s.total < 0.4*best {
			weak = append(weak, s.cand)
		}
	}
	r.eliminateGroup(tariff.StageTieBreak, tariff.RuleGIR3A, "GIR 3(a)", weak,
		fmt.Sprintf("description far less specific than the leading heading (under 40%% of %.2f)", best))
}

// rescore3a recombines the GIR 1 components with 3(a) weights.
func rescore3a(r *run, c *tariff.Candidate, hs headingScore) float64 {
	text := r.headingText(c)
	lower := strings.ToLower(text)
	textKw := r.e.tok.Keywords(text)

	capped := hs.overlap
	if capped > 5 {
		capped = 5
	}
	keywordScore := float64(capped) / 5.0

	specificity := 0.5
	if containsVocabTerm(materialTerms, lower) {
		specificity += 0.25
	}
	if containsVocabTerm(formTerms, lower) {
		specificity += 0.25
	}
	if isCatchAllText(text) {
		specificity -= 0.4
	}
	if specificity < 0 {
		specificity = 0
	}

	attribute := 0.0
	for _, attr := range []string{r.product.Material, r.product.Form, r.product.IntendedUse} {
		if attr != "" && nlp.Overlap(r.e.tok.Keywords(attr), textKw) > 0 {
			attribute += 1.0 / 3.0
		}
	}
	return 0.4*keywordScore + 0.3*specificity + 0.3*attribute
}

// gir3b prefers the heading matching the product's essential character,
// approximated by its primary material.  A heading naming the material
// scores 1.0, a heading naming any material 0.5, a heading naming none 0.
// Zero-scoring headings fall only when exactly one heading names the actual
// material; without a primary material the rule stays silent.
func (r *run) gir3b() {
	primary := firstVocabTerm(materialTerms, strings.ToLower(r.product.Material))
	if primary == "" {
		keywords := strings.ToLower(strings.Join(r.product.Keywords, " "))
		primary = firstVocabTerm(materialTerms, keywords)
	}
	if primary == "" {
		return
	}
	alive := r.alive()
	type matScore struct {
		cand  *tariff.Candidate
		score float64
	}
	scores := make([]matScore, len(alive))
	exact := 0
	for i, c := range alive {
		lower := strings.ToLower(r.headingText(c))
		s := 0.0
		switch {
		case strings.Contains(lower, primary):
			s = 1.0
			exact++
		case containsVocabTerm(materialTerms, lower):
			s = 0.5
		}
		scores[i] = matScore{cand: c, score: s}
	}
	if exact != 1 {
		return
	}
	var zeros []*tariff.Candidate
	for _, s := range scores {
		if s.score == 0 {
			zeros = append(zeros, s.cand)
		}
	}
	r.eliminateGroup(tariff.StageTieBreak, tariff.RuleGIR3B, "GIR 3(b)", zeros,
		fmt.Sprintf("heading does not reflect the product's essential character (%s)", primary))
}

// gir3c nudges the candidate occurring last in numerical order.  By design
// this is a one-point confidence boost rather than an elimination: 3(c) is
// the weakest of the tie-breaks and must stay visible to the AI fallback and
// the broker rather than silently deciding the classification.
func (r *run) gir3c() {
	var last *tariff.Candidate
	for _, c := range r.alive() {
		if last == nil || c.Code > last.Code {
			last = c
		}
	}
	if last == nil {
		return
	}
	r.boostGroup(tariff.StageTieBreak, tariff.RuleGIR3C, "GIR 3(c)",
		[]*tariff.Candidate{last}, 1,
		fmt.Sprintf("%s occurs last in numerical order among remaining headings", last.Code))
}
