// Package engine implements the deterministic tariff-code elimination
// pipeline: an ordered sequence of stages that narrows a candidate set to the
// most specific legally-correct classification, consulting AI only when the
// deterministic rules cannot reduce ambiguity.
package engine

import (
	"context"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

// RuleCache is a per-run memoizing façade over the external rule store.
// Every lookup is cached by key for the lifetime of one run, and a store
// failure degrades to "not found" so dependent stages treat it as no signal
// instead of aborting.  A RuleCache is never shared between runs.
type RuleCache struct {
	store  tariff.RuleStore
	logger logging.Logger

	chapterNotes    map[string]*tariff.ChapterNotes
	sectionData     map[int]*tariff.SectionData
	chapterSections map[string]int
	headingDocs     map[string][]tariff.HeadingDoc
}

// NewRuleCache constructs an empty cache over store.
func NewRuleCache(store tariff.RuleStore, logger logging.Logger) *RuleCache {
	return &RuleCache{
		store:           store,
		logger:          logger,
		chapterNotes:    make(map[string]*tariff.ChapterNotes),
		sectionData:     make(map[int]*tariff.SectionData),
		chapterSections: make(map[string]int),
		headingDocs:     make(map[string][]tariff.HeadingDoc),
	}
}

// ChapterNotes returns the notes for a chapter, memoized.  On store failure
// the returned notes have Found=false and the failure is logged once.
func (rc *RuleCache) ChapterNotes(ctx context.Context, chapter string) *tariff.ChapterNotes {
	if notes, ok := rc.chapterNotes[chapter]; ok {
		return notes
	}
	notes, err := rc.store.GetChapterNotes(ctx, chapter)
	if err != nil || notes == nil {
		if err != nil && !pkgerrors.IsNotFound(err) {
			rc.logger.Warn("chapter notes lookup failed; treating as not found",
				logging.String("chapter", chapter), logging.Err(err))
		}
		notes = &tariff.ChapterNotes{Chapter: chapter, Found: false}
	}
	rc.chapterNotes[chapter] = notes
	return notes
}

// SectionData returns the section definition, memoized, degrading failures to
// Found=false.
func (rc *RuleCache) SectionData(ctx context.Context, section int) *tariff.SectionData {
	if sd, ok := rc.sectionData[section]; ok {
		return sd
	}
	sd, err := rc.store.GetSectionData(ctx, section)
	if err != nil || sd == nil {
		if err != nil && !pkgerrors.IsNotFound(err) {
			rc.logger.Warn("section data lookup failed; treating as not found",
				logging.Int("section", section), logging.Err(err))
		}
		sd = &tariff.SectionData{ID: section, Found: false}
	}
	rc.sectionData[section] = sd
	return sd
}

// ChapterSection resolves a chapter to its section id, memoized.  Zero means
// unknown.
func (rc *RuleCache) ChapterSection(ctx context.Context, chapter string) int {
	if id, ok := rc.chapterSections[chapter]; ok {
		return id
	}
	id, err := rc.store.GetChapterSection(ctx, chapter)
	if err != nil {
		rc.logger.Warn("chapter section lookup failed; treating as unknown",
			logging.String("chapter", chapter), logging.Err(err))
		id = 0
	}
	rc.chapterSections[chapter] = id
	return id
}

// HeadingDocs returns up to tariff.MaxHeadingDocs documents for a heading,
// memoized, degrading failures to an empty slice.
func (rc *RuleCache) HeadingDocs(ctx context.Context, heading string) []tariff.HeadingDoc {
	if docs, ok := rc.headingDocs[heading]; ok {
		return docs
	}
	docs, err := rc.store.GetHeadingDocs(ctx, heading)
	if err != nil {
		rc.logger.Warn("heading docs lookup failed; treating as empty",
			logging.String("heading", heading), logging.Err(err))
		docs = nil
	}
	if len(docs) > tariff.MaxHeadingDocs {
		docs = docs[:tariff.MaxHeadingDocs]
	}
	rc.headingDocs[heading] = docs
	return docs
}
