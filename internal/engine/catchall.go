package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/nlp"
)

// catchAllStage suppresses residual "other" headings whenever a specific
// heading survives, then applies the "principally used" composition test.
func (r *run) catchAllStage() {
	r.suppressCatchAlls()
	if r.aliveCount() > 1 {
		r.principallyTest()
	}
}

// suppressCatchAlls eliminates catch-all candidates when at least one
// specific candidate remains.  A residual bucket is the correct answer only
// when nothing specific fits, so a set that is all catch-alls is left alone.
func (r *run) suppressCatchAlls() {
	alive := r.alive()
	if len(alive) < 2 {
		return
	}
	var catchAlls []*tariff.Candidate
	specific := 0
	for _, c := range alive {
		if isCatchAllText(r.headingText(c)) {
			catchAlls = append(catchAlls, c)
		} else {
			specific++
		}
	}
	if specific == 0 || len(catchAlls) == 0 {
		return
	}
	r.eliminateGroup(tariff.StageCatchAll, tariff.RuleCatchAll, "residual heading",
		catchAlls,
		fmt.Sprintf("residual catch-all heading suppressed: %d specific heading(s) remain", specific))
}

// principallyTest checks candidates whose heading requires the product to be
// "principally" or "mainly" of some composition.  The declared share of the
// heading's qualified material decides: 50% or more passes, less eliminates.
// Without percentages, or with percentages that cannot be attributed to the
// heading's material, the test never eliminates; guessing a composition
// share is exactly the kind of aggressive call this pipeline avoids.
func (r *run) principallyTest() {
	comp := strings.ToLower(r.product.CompositionText())
	hasPcts := len(nlp.ExtractPercentages(comp)) > 0
	var failed []*tariff.Candidate
	for _, c := range r.alive() {
		text := r.headingText(c)
		if !principallyPattern.MatchString(text) {
			continue
		}
		if !hasPcts {
			before := r.aliveCount()
			r.addStep(tariff.StageCatchAll, tariff.ActionKeep, tariff.RulePrincipally,
				c.Code, before, []string{c.Code},
				"heading requires a principal composition but the declaration carries no percentages; kept")
			continue
		}
		share, ok := principalShare(comp, strings.ToLower(text))
		if !ok {
			before := r.aliveCount()
			r.addStep(tariff.StageCatchAll, tariff.ActionKeep, tariff.RulePrincipally,
				c.Code, before, []string{c.Code},
				"declared percentages cannot be attributed to the heading's principal material; kept")
			continue
		}
		if share < 50 {
			failed = append(failed, c)
		}
	}
	r.eliminateGroup(tariff.StageCatchAll, tariff.RulePrincipally, "principal use",
		failed,
		"declared share of the heading's principal material is below the 50% threshold")
}

// principalShare finds the declared percentage of the first material term the
// heading names, scanning the composition text for a figure adjacent to that
// term.
func principalShare(comp, headingText string) (float64, bool) {
	for _, term := range materialTerms {
		if !strings.Contains(headingText, term) {
			continue
		}
		re := regexp.MustCompile(regexp.QuoteMeta(term) + `[^%\d]{0,20}?(\d{1,3}(?:\.\d+)?)\s*(?:%|percent\b|퍼센트)`)
		m := re.FindStringSubmatch(comp)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil && v <= 100 {
			return v, true
		}
	}
	return 0, false
}
