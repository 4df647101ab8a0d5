package rulestore

import (
	"context"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
)

// HeadingSearcher is the full-text side of the rule store.
type HeadingSearcher interface {
	GetHeadingDocs(ctx context.Context, heading string) ([]tariff.HeadingDoc, error)
}

// Composite serves chapter notes and sections from the relational store and
// heading documents from the search index, falling back to the relational
// store when the index is unavailable or empty.  It is the tariff.RuleStore
// handed to the engine in production.
type Composite struct {
	relational tariff.RuleStore
	search     HeadingSearcher
	logger     logging.Logger
}

// NewComposite builds the production rule store.  search may be nil, in
// which case heading lookups go straight to the relational store.
func NewComposite(relational tariff.RuleStore, search HeadingSearcher, log logging.Logger) *Composite {
	return &Composite{relational: relational, search: search, logger: log}
}

func (c *Composite) GetChapterNotes(ctx context.Context, chapter string) (*tariff.ChapterNotes, error) {
	return c.relational.GetChapterNotes(ctx, chapter)
}

func (c *Composite) GetSectionData(ctx context.Context, section int) (*tariff.SectionData, error) {
	return c.relational.GetSectionData(ctx, section)
}

func (c *Composite) GetChapterSection(ctx context.Context, chapter string) (int, error) {
	return c.relational.GetChapterSection(ctx, chapter)
}

func (c *Composite) GetHeadingDocs(ctx context.Context, heading string) ([]tariff.HeadingDoc, error) {
	if c.search != nil {
		docs, err := c.search.GetHeadingDocs(ctx, heading)
		if err == nil && len(docs) > 0 {
			return docs, nil
		}
		if err != nil {
			c.logger.Warn("heading index unavailable; falling back to relational store",
				logging.String("heading", heading), logging.Err(err))
		}
	}
	return c.relational.GetHeadingDocs(ctx, heading)
}
