package engine

import (
	"fmt"
	"strings"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HSCode-Intelligence/internal/nlp"
)

// headingScore is the GIR 1 composite for one candidate.
type headingScore struct {
	cand    *tariff.Candidate
	overlap int
	total   float64
}

// scoreHeading computes the composite relevance of a candidate's heading
// text: 50% keyword overlap (capped at five shared terms), 25% description
// specificity, 25% declared-attribute coverage.
func (r *run) scoreHeading(c *tariff.Candidate) headingScore {
	text := r.headingText(c)
	lower := strings.ToLower(text)
	textKw := r.e.tok.Keywords(text)

	overlap := nlp.Overlap(r.product.Keywords, textKw)
	capped := overlap
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
	if specificity > 1 {
		specificity = 1
	}

	attribute := 0.0
	attrs := []string{r.product.Material, r.product.Form, r.product.IntendedUse}
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		if nlp.Overlap(r.e.tok.Keywords(attr), textKw) > 0 {
			attribute += 1.0 / 3.0
		}
	}

	return headingScore{
		cand:    c,
		overlap: overlap,
		total:   0.5*keywordScore + 0.25*specificity + 0.25*attribute,
	}
}

// headingStage is the GIR 1 cut: score every surviving heading against the
// product and eliminate the clearly irrelevant ones.  A candidate falls when
// it shares no keyword with the product while the leader shares at least two,
// or when the leader scores at least 0.5 and the candidate reaches under 30%
// of it.  The leader itself is never touched.
func (r *run) headingStage() {
	alive := r.alive()
	if len(alive) < 2 {
		return
	}
	scores := make([]headingScore, len(alive))
	best := 0.0
	bestOverlap := 0
	for i, c := range alive {
		scores[i] = r.scoreHeading(c)
		if scores[i].total > best {
			best = scores[i].total
		}
		if scores[i].overlap > bestOverlap {
			bestOverlap = scores[i].overlap
		}
		r.logger.Debug("heading scored",
			logging.String("code", c.Code),
			logging.Float64("score", scores[i].total),
			logging.Int("overlap", scores[i].overlap))
	}

	var noOverlap, lowScore []*tariff.Candidate
	for _, s := range scores {
		switch {
		case s.overlap == 0 && bestOverlap >= 2:
			noOverlap = append(noOverlap, s.cand)
		case best >= 0.5 && s.total < 0.3*best:
			lowScore = append(lowScore, s.cand)
		}
	}
	r.eliminateGroup(tariff.StageHeading, tariff.RuleHeadingSpecificity, "GIR 1",
		noOverlap, fmt.Sprintf("heading shares no keywords with the product while the best match shares %d", bestOverlap))
	r.eliminateGroup(tariff.StageHeading, tariff.RuleHeadingSpecificity, "GIR 1",
		lowScore, fmt.Sprintf("heading relevance under 30%% of the best match (%.2f)", best))
}

// subheadingStage is boost-only: a chapter subheading note whose text overlaps
// the product raises confidence on the candidates it governs.  Six-digit
// uncertainty is real enough that subheading notes never eliminate.
func (r *run) subheadingStage() {
	for _, c := range r.alive() {
		notes := r.cache.ChapterNotes(r.ctx, c.Chapter)
		if !notes.Found {
			continue
		}
		for _, sr := range notes.SubheadingRules {
			if !strings.HasPrefix(c.Subheading, sr.Prefix) && !strings.HasPrefix(c.Code, sr.Prefix) {
				continue
			}
			if nlp.Overlap(r.product.Keywords, r.e.tok.Keywords(sr.Note)) >= 1 {
				r.boostGroup(tariff.StageSubheading, tariff.RuleSubheadingNote,
					fmt.Sprintf("subheading note %s", sr.Prefix), []*tariff.Candidate{c}, 5,
					fmt.Sprintf("subheading note for %s matches the product description", sr.Prefix))
				break
			}
		}
	}
}
