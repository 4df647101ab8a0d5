package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HSCode-Intelligence/internal/nlp"
)

// chapterStage applies the legal notes of each chapter still in play, in
// order: preamble relevance boost, exclusion clauses (with exception
// carve-backs and cross-chapter redirects), definition matches, and inclusion
// boosts.  Exclusions follow first-match-wins: once a clause eliminates a
// chapter's candidates, the remaining clauses of that chapter are not
// evaluated.
func (r *run) chapterStage() {
	byChapter := map[string][]*tariff.Candidate{}
	for _, c := range r.alive() {
		byChapter[c.Chapter] = append(byChapter[c.Chapter], c)
	}
	chapters := make([]string, 0, len(byChapter))
	for ch := range byChapter {
		chapters = append(chapters, ch)
	}
	sort.Strings(chapters)

	for _, ch := range chapters {
		notes := r.cache.ChapterNotes(r.ctx, ch)
		if !notes.Found {
			r.logger.Debug("no chapter notes; candidates pass through",
				logging.String("chapter", ch))
			continue
		}
		r.applyPreamble(ch, notes, byChapter[ch])
		if r.applyExclusions(ch, notes, byChapter, chapters) {
			continue
		}
		r.applyDefinitions(ch, notes, byChapter[ch])
		r.applyInclusions(ch, notes, byChapter[ch])
	}
}

// applyPreamble boosts a chapter's candidates when the chapter's own scope
// text overlaps the product strongly: at least two shared keywords covering
// at least 30% of the product's keywords.
func (r *run) applyPreamble(ch string, notes *tariff.ChapterNotes, cands []*tariff.Candidate) {
	if notes.Preamble == "" && len(notes.Keywords) == 0 {
		return
	}
	if len(r.product.Keywords) == 0 {
		return
	}
	text := notes.Preamble + " " + strings.Join(notes.Keywords, " ")
	overlap := nlp.Overlap(r.product.Keywords, r.e.tok.Keywords(text))
	ratio := float64(overlap) / float64(len(r.product.Keywords))
	if overlap >= 2 && ratio >= 0.3 {
		r.boostGroup(tariff.StageChapter, tariff.RuleChapterPreamble,
			fmt.Sprintf("chapter %s preamble", ch), aliveOf(cands), 10,
			fmt.Sprintf("chapter %s scope matches %d of %d product keywords", ch, overlap, len(r.product.Keywords)))
	}
}

// applyExclusions evaluates a chapter's exclusion clauses against the
// product.  A clause matches on two shared keywords, or on one shared
// keyword when that keyword covers more than half of the clause.  A matching
// clause whose exception carve-back also matches the product is skipped.
// Returns true when an exclusion fired.
func (r *run) applyExclusions(ch string, notes *tariff.ChapterNotes, byChapter map[string][]*tariff.Candidate, chapters []string) bool {
	for i, ex := range notes.Exclusions {
		exKw := r.e.tok.Keywords(ex)
		if len(exKw) == 0 {
			continue
		}
		overlap := nlp.Overlap(r.product.Keywords, exKw)
		ratio := float64(overlap) / float64(len(exKw))
		if !(overlap >= 2 || (overlap == 1 && ratio > 0.5)) {
			continue
		}
		if carve := exceptionClause(ex); carve != "" {
			if nlp.Overlap(r.product.Keywords, r.e.tok.Keywords(carve)) >= 1 {
				before := r.aliveCount()
				r.addStep(tariff.StageChapter, tariff.ActionKeep, tariff.RuleChapterExclusion,
					fmt.Sprintf("chapter %s note %d", ch, i+1), before, nil,
					fmt.Sprintf("exclusion matched but its exception clause covers the product; chapter %s retained", ch))
				continue
			}
		}
		ref := fmt.Sprintf("chapter %s note %d", ch, i+1)
		r.eliminateGroup(tariff.StageChapter, tariff.RuleChapterExclusion, ref,
			byChapter[ch],
			fmt.Sprintf("excluded by chapter %s note %d (%d keyword matches)", ch, i+1, overlap))

		// A clause that names other chapters is a redirect: the product
		// belongs there, so candidates in the referenced chapters gain
		// confidence.
		for _, target := range chapterRefs(ex, ch) {
			if targets := aliveOf(byChapter[target]); len(targets) > 0 {
				r.boostGroup(tariff.StageChapter, tariff.RuleChapterRedirect, ref,
					targets, 15,
					fmt.Sprintf("chapter %s exclusion redirects this product to chapter %s", ch, target))
			}
		}
		return true
	}
	return false
}

// applyDefinitions boosts a chapter's candidates when a legal definition in
// its notes covers the product (two or more shared keywords).  Only the
// first matching definition counts.
func (r *run) applyDefinitions(ch string, notes *tariff.ChapterNotes, cands []*tariff.Candidate) {
	for i, note := range notes.Notes {
		if !strings.Contains(strings.ToLower(note), " means ") && !strings.Contains(note, "라 함은") {
			continue
		}
		if nlp.Overlap(r.product.Keywords, r.e.tok.Keywords(note)) >= 2 {
			r.boostGroup(tariff.StageChapter, tariff.RuleChapterDefinition,
				fmt.Sprintf("chapter %s note %d", ch, i+1), aliveOf(cands), 8,
				fmt.Sprintf("product falls under a term defined in chapter %s notes", ch))
			return
		}
	}
}

// applyInclusions boosts on the first inclusion note that covers the product.
// Inclusions never eliminate; a note saying what a chapter covers says
// nothing about what other chapters cover.
func (r *run) applyInclusions(ch string, notes *tariff.ChapterNotes, cands []*tariff.Candidate) {
	for i, inc := range notes.Inclusions {
		incKw := r.e.tok.Keywords(inc)
		if len(incKw) == 0 {
			continue
		}
		overlap := nlp.Overlap(r.product.Keywords, incKw)
		ratio := float64(overlap) / float64(len(incKw))
		if overlap >= 2 || (overlap == 1 && ratio > 0.5) {
			r.boostGroup(tariff.StageChapter, tariff.RuleChapterInclusion,
				fmt.Sprintf("chapter %s inclusion %d", ch, i+1), aliveOf(cands), 10,
				fmt.Sprintf("chapter %s inclusion note covers the product", ch))
			return
		}
	}
}

func aliveOf(cands []*tariff.Candidate) []*tariff.Candidate {
	var out []*tariff.Candidate
	for _, c := range cands {
		if c.Alive {
			out = append(out, c)
		}
	}
	return out
}
