package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

// querier is the subset of pgxpool.Pool the store needs; it exists so tests
// can substitute a mock connection.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL-backed tariff.RuleStore.
type Store struct {
	db     querier
	logger logging.Logger
}

// NewStore wraps a pgx pool as a rule store.
func NewStore(pool *pgxpool.Pool, log logging.Logger) *Store {
	return &Store{db: pool, logger: log}
}

// newStoreWithQuerier is a test seam.
func newStoreWithQuerier(db querier, log logging.Logger) *Store {
	return &Store{db: db, logger: log}
}

// GetChapterNotes loads a chapter's preamble, legal notes, and subheading
// rules.  A chapter with no row in chapters is reported as not found.
func (s *Store) GetChapterNotes(ctx context.Context, chapter string) (*tariff.ChapterNotes, error) {
	notes := &tariff.ChapterNotes{Chapter: chapter}

	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(preamble, '') FROM chapters WHERE chapter = $1`,
		chapter,
	).Scan(&notes.Preamble)
	if err == pgx.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeChapterNotesNotFound, "chapter %s has no notes", chapter)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRuleStoreQuery, "chapter lookup failed")
	}
	notes.Found = true

	rows, err := s.db.Query(ctx,
		`SELECT kind, body FROM chapter_notes WHERE chapter = $1 ORDER BY position, id`,
		chapter)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRuleStoreQuery, "chapter notes query failed")
	}
	defer rows.Close()
	for rows.Next() {
		var kind, body string
		if err := rows.Scan(&kind, &body); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeRuleStoreQuery, "chapter notes scan failed")
		}
		switch kind {
		case "exclusion":
			notes.Exclusions = append(notes.Exclusions, body)
		case "inclusion":
			notes.Inclusions = append(notes.Inclusions, body)
		case "keyword":
			notes.Keywords = append(notes.Keywords, body)
		default:
			notes.Notes = append(notes.Notes, body)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRuleStoreQuery, "chapter notes iteration failed")
	}

	subRows, err := s.db.Query(ctx,
		`SELECT prefix, note FROM subheading_notes WHERE chapter = $1 ORDER BY prefix`,
		chapter)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRuleStoreQuery, "subheading notes query failed")
	}
	defer subRows.Close()
	for subRows.Next() {
		var sr tariff.SubheadingRule
		if err := subRows.Scan(&sr.Prefix, &sr.Note); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeRuleStoreQuery, "subheading notes scan failed")
		}
		notes.SubheadingRules = append(notes.SubheadingRules, sr)
	}
	if err := subRows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRuleStoreQuery, "subheading notes iteration failed")
	}
	return notes, nil
}

// GetSectionData loads a section and its constituent chapters.
func (s *Store) GetSectionData(ctx context.Context, section int) (*tariff.SectionData, error) {
	sd := &tariff.SectionData{ID: section, ChapterNames: map[string]string{}}

	err := s.db.QueryRow(ctx,
		`SELECT name FROM sections WHERE id = $1`, section,
	).Scan(&sd.Name)
	if err == pgx.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeSectionNotFound, "section %d not found", section)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRuleStoreQuery, "section lookup failed")
	}
	sd.Found = true

	rows, err := s.db.Query(ctx,
		`SELECT chapter, COALESCE(name, '') FROM chapters WHERE section_id = $1 ORDER BY chapter`,
		section)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRuleStoreQuery, "section chapters query failed")
	}
	defer rows.Close()
	for rows.Next() {
		var chapter, name string
		if err := rows.Scan(&chapter, &name); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeRuleStoreQuery, "section chapters scan failed")
		}
		sd.Chapters = append(sd.Chapters, chapter)
		sd.ChapterNames[chapter] = name
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRuleStoreQuery, "section chapters iteration failed")
	}
	return sd, nil
}

// GetChapterSection resolves a chapter to its section id.
func (s *Store) GetChapterSection(ctx context.Context, chapter string) (int, error) {
	var id int
	err := s.db.QueryRow(ctx,
		`SELECT section_id FROM chapters WHERE chapter = $1`, chapter,
	).Scan(&id)
	if err == pgx.ErrNoRows {
		return 0, errors.Newf(errors.ErrCodeChapterNotesNotFound, "chapter %s not found", chapter)
	}
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeRuleStoreQuery, "chapter section lookup failed")
	}
	return id, nil
}

// GetHeadingDocs returns up to tariff.MaxHeadingDocs code entries under a
// four-digit heading, ordered by code.
func (s *Store) GetHeadingDocs(ctx context.Context, heading string) ([]tariff.HeadingDoc, error) {
	rows, err := s.db.Query(ctx,
		`SELECT code, COALESCE(description, ''), COALESCE(duty_rate, '')
		   FROM headings WHERE heading = $1 ORDER BY code LIMIT $2`,
		heading, tariff.MaxHeadingDocs)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRuleStoreQuery, "heading docs query failed")
	}
	defer rows.Close()

	var docs []tariff.HeadingDoc
	for rows.Next() {
		var doc tariff.HeadingDoc
		if err := rows.Scan(&doc.Code, &doc.Description, &doc.DutyRate); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeRuleStoreQuery, "heading docs scan failed")
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRuleStoreQuery, "heading docs iteration failed")
	}
	return docs, nil
}
