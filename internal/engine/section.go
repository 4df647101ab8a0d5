package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HSCode-Intelligence/internal/nlp"
)

// enrichStage resolves each candidate's chapter to its HS section and records
// one keep step summarizing the sections in play.  Unresolvable chapters are
// left at section zero and simply carry no section signal downstream.
func (r *run) enrichStage() {
	before := r.aliveCount()
	sections := map[int]bool{}
	for _, c := range r.cands {
		c.SectionID = r.cache.ChapterSection(r.ctx, c.Chapter)
		if c.SectionID > 0 {
			sections[c.SectionID] = true
		}
	}
	ids := make([]int, 0, len(sections))
	for id := range sections {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	r.addStep(tariff.StageEnrich, tariff.ActionKeep, tariff.RuleNone, "", before, nil,
		fmt.Sprintf("resolved candidate chapters to sections [%s]", strings.Join(parts, " ")))
}

// sectionStage eliminates whole sections whose scope text shares no keyword
// with the product.  The filter only fires when both sides carry real signal:
// the section text must yield at least five keywords and the product at least
// two, otherwise the section is kept without judgment.
func (r *run) sectionStage() {
	if len(r.product.Keywords) < 2 {
		r.logger.Debug("section filter skipped: too few product keywords")
		return
	}
	bySection := map[int][]*tariff.Candidate{}
	for _, c := range r.alive() {
		if c.SectionID > 0 {
			bySection[c.SectionID] = append(bySection[c.SectionID], c)
		}
	}
	ids := make([]int, 0, len(bySection))
	for id := range bySection {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		sd := r.cache.SectionData(r.ctx, id)
		if !sd.Found {
			continue
		}
		texts := []string{sd.Name}
		for _, ch := range sd.Chapters {
			if name, ok := sd.ChapterNames[ch]; ok {
				texts = append(texts, name)
			}
		}
		// Chapters that actually hold candidates contribute their note
		// keywords as well; fetching notes for every chapter of every
		// section would be pure lookup noise.
		for _, c := range bySection[id] {
			notes := r.cache.ChapterNotes(r.ctx, c.Chapter)
			if notes.Found {
				texts = append(texts, strings.Join(notes.Keywords, " "))
			}
		}
		sectionKw := r.e.tok.Keywords(texts...)
		if len(sectionKw) < 5 {
			r.logger.Debug("section text too thin for scope filter",
				logging.Int("section", id), logging.Int("keywords", len(sectionKw)))
			continue
		}
		if nlp.Overlap(r.product.Keywords, sectionKw) > 0 {
			continue
		}
		r.eliminateGroup(tariff.StageSection, tariff.RuleSectionScope,
			fmt.Sprintf("section %d", id), bySection[id],
			fmt.Sprintf("section %d (%s) shares no keywords with the declared product", id, sd.Name))
	}
}
