package rulestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/testutil"
	pkgerrors "github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

type stubSearcher struct {
	docs []tariff.HeadingDoc
	err  error
}

func (s *stubSearcher) GetHeadingDocs(ctx context.Context, heading string) ([]tariff.HeadingDoc, error) {
	return s.docs, s.err
}

func TestComposite_PrefersSearchIndexForHeadings(t *testing.T) {
	relational := testutil.NewFakeRuleStore()
	relational.AddHeadingDoc("8471", tariff.HeadingDoc{Code: "84713000", Description: "from postgres"})
	search := &stubSearcher{docs: []tariff.HeadingDoc{{Code: "84713000", Description: "from index"}}}

	c := NewComposite(relational, search, testutil.NewMockLogger())
	docs, err := c.GetHeadingDocs(context.Background(), "8471")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "from index", docs[0].Description)
}

func TestComposite_FallsBackWhenIndexFails(t *testing.T) {
	relational := testutil.NewFakeRuleStore()
	relational.AddHeadingDoc("8471", tariff.HeadingDoc{Code: "84713000", Description: "from postgres"})
	search := &stubSearcher{err: pkgerrors.New(pkgerrors.ErrCodeRuleStoreUnavailable, "cluster down")}

	log := testutil.NewMockLogger()
	c := NewComposite(relational, search, log)
	docs, err := c.GetHeadingDocs(context.Background(), "8471")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "from postgres", docs[0].Description)
	assert.True(t, log.HasMessage("warn", "heading index unavailable; falling back to relational store"))
}

func TestComposite_FallsBackWhenIndexEmpty(t *testing.T) {
	relational := testutil.NewFakeRuleStore()
	relational.AddHeadingDoc("7310", tariff.HeadingDoc{Code: "73102100", Description: "boxes"})

	c := NewComposite(relational, &stubSearcher{}, testutil.NewMockLogger())
	docs, err := c.GetHeadingDocs(context.Background(), "7310")
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestComposite_DelegatesRelationalLookups(t *testing.T) {
	relational := testutil.NewFakeRuleStore()
	relational.AddChapter(16, &tariff.ChapterNotes{Chapter: "84"})

	c := NewComposite(relational, nil, testutil.NewMockLogger())
	notes, err := c.GetChapterNotes(context.Background(), "84")
	require.NoError(t, err)
	assert.True(t, notes.Found)

	id, err := c.GetChapterSection(context.Background(), "84")
	require.NoError(t, err)
	assert.Equal(t, 16, id)
}
