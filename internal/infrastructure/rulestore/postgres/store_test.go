package postgres

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/testutil"
	pkgerrors "github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Querier fake
// ─────────────────────────────────────────────────────────────────────────────

// fakeRow satisfies pgx.Row for single-value lookups.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

// fakeRows satisfies pgx.Rows over a scripted result set.
type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error { return assign(dest, r.rows[r.idx-1]) }
func (r *fakeRows) Close()                 {}
func (r *fakeRows) Err() error             { return r.err }

func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func assign(dest, values []any) error {
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = values[i].(string)
		case *int:
			*p = values[i].(int)
		}
	}
	return nil
}

// fakeQuerier routes queries by the table they target.
type fakeQuerier struct {
	preamble    *string
	noteRows    [][]any
	subRows     [][]any
	sectionName *string
	chapterRows [][]any
	sectionID   *int
	headingRows [][]any
	headingErr  error

	headingLimit any
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "preamble"):
		if q.preamble == nil {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{values: []any{*q.preamble}}
	case strings.Contains(sql, "FROM sections"):
		if q.sectionName == nil {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{values: []any{*q.sectionName}}
	case strings.Contains(sql, "section_id"):
		if q.sectionID == nil {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{values: []any{*q.sectionID}}
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	switch {
	case strings.Contains(sql, "FROM chapter_notes"):
		return &fakeRows{rows: q.noteRows}, nil
	case strings.Contains(sql, "FROM subheading_notes"):
		return &fakeRows{rows: q.subRows}, nil
	case strings.Contains(sql, "FROM chapters WHERE section_id"):
		return &fakeRows{rows: q.chapterRows}, nil
	case strings.Contains(sql, "FROM headings"):
		if len(args) == 2 {
			q.headingLimit = args[1]
		}
		if q.headingErr != nil {
			return nil, q.headingErr
		}
		return &fakeRows{rows: q.headingRows}, nil
	}
	return &fakeRows{}, nil
}

func str(s string) *string { return &s }

// ─────────────────────────────────────────────────────────────────────────────
// Store behavior
// ─────────────────────────────────────────────────────────────────────────────

func TestGetChapterNotes_BucketsNoteKinds(t *testing.T) {
	db := &fakeQuerier{
		preamble: str("Machinery and mechanical appliances"),
		noteRows: [][]any{
			{"exclusion", "This chapter does not cover millstones of chapter 68"},
			{"inclusion", "This chapter covers machine parts"},
			{"keyword", "machinery"},
			{"legal", "Heading 8401 covers reactors"},
		},
		subRows: [][]any{
			{"847130", "portable machines weighing not more than 10 kg"},
		},
	}
	store := newStoreWithQuerier(db, testutil.NewMockLogger())

	notes, err := store.GetChapterNotes(context.Background(), "84")
	require.NoError(t, err)
	assert.True(t, notes.Found)
	assert.Equal(t, "Machinery and mechanical appliances", notes.Preamble)
	assert.Equal(t, []string{"This chapter does not cover millstones of chapter 68"}, notes.Exclusions)
	assert.Equal(t, []string{"This chapter covers machine parts"}, notes.Inclusions)
	assert.Equal(t, []string{"machinery"}, notes.Keywords)
	assert.Equal(t, []string{"Heading 8401 covers reactors"}, notes.Notes)
	require.Len(t, notes.SubheadingRules, 1)
	assert.Equal(t, "847130", notes.SubheadingRules[0].Prefix)
}

func TestGetChapterNotes_UnknownChapter(t *testing.T) {
	store := newStoreWithQuerier(&fakeQuerier{}, testutil.NewMockLogger())

	_, err := store.GetChapterNotes(context.Background(), "99")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ErrCodeChapterNotesNotFound, pkgerrors.GetCode(err))
}

func TestGetSectionData_CollectsChapters(t *testing.T) {
	db := &fakeQuerier{
		sectionName: str("Machinery and appliances"),
		chapterRows: [][]any{
			{"84", "Machinery"},
			{"85", "Electrical machinery"},
		},
	}
	store := newStoreWithQuerier(db, testutil.NewMockLogger())

	sd, err := store.GetSectionData(context.Background(), 16)
	require.NoError(t, err)
	assert.True(t, sd.Found)
	assert.Equal(t, []string{"84", "85"}, sd.Chapters)
	assert.Equal(t, "Electrical machinery", sd.ChapterNames["85"])
}

func TestGetSectionData_UnknownSection(t *testing.T) {
	store := newStoreWithQuerier(&fakeQuerier{}, testutil.NewMockLogger())

	_, err := store.GetSectionData(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ErrCodeSectionNotFound, pkgerrors.GetCode(err))
}

func TestGetChapterSection(t *testing.T) {
	id := 16
	store := newStoreWithQuerier(&fakeQuerier{sectionID: &id}, testutil.NewMockLogger())

	got, err := store.GetChapterSection(context.Background(), "84")
	require.NoError(t, err)
	assert.Equal(t, 16, got)
}

func TestGetChapterSection_UnknownChapter(t *testing.T) {
	store := newStoreWithQuerier(&fakeQuerier{}, testutil.NewMockLogger())

	_, err := store.GetChapterSection(context.Background(), "00")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ErrCodeChapterNotesNotFound, pkgerrors.GetCode(err))
}

func TestGetHeadingDocs_AppliesDocLimit(t *testing.T) {
	db := &fakeQuerier{
		headingRows: [][]any{
			{"8471.30", "Portable automatic data processing machines", "0%"},
			{"8471.41", "Computer systems", "0%"},
		},
	}
	store := newStoreWithQuerier(db, testutil.NewMockLogger())

	docs, err := store.GetHeadingDocs(context.Background(), "8471")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "8471.30", docs[0].Code)
	assert.Equal(t, "0%", docs[0].DutyRate)
	assert.Equal(t, tariff.MaxHeadingDocs, db.headingLimit)
}

func TestGetHeadingDocs_QueryFailureWraps(t *testing.T) {
	db := &fakeQuerier{headingErr: assert.AnError}
	store := newStoreWithQuerier(db, testutil.NewMockLogger())

	_, err := store.GetHeadingDocs(context.Background(), "8471")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ErrCodeRuleStoreQuery, pkgerrors.GetCode(err))
}
