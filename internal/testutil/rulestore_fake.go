package testutil

import (
	"context"
	"sync"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

// FakeRuleStore is an in-memory tariff.RuleStore for tests.  Fixtures are
// registered per chapter, section and heading; anything unregistered returns
// a not-found error, and Fail* switches force errors to exercise the
// degrade-to-no-signal paths.  Lookup counts are recorded so tests can
// assert memoization.
type FakeRuleStore struct {
	mu sync.Mutex

	ChapterNotes map[string]*tariff.ChapterNotes
	Sections     map[int]*tariff.SectionData
	ChapterToSec map[string]int
	HeadingDocs  map[string][]tariff.HeadingDoc

	FailChapterNotes bool
	FailSections     bool
	FailHeadingDocs  bool

	NotesCalls   map[string]int
	SectionCalls map[int]int
	HeadingCalls map[string]int
}

// NewFakeRuleStore returns an empty store ready for fixture registration.
func NewFakeRuleStore() *FakeRuleStore {
	return &FakeRuleStore{
		ChapterNotes: make(map[string]*tariff.ChapterNotes),
		Sections:     make(map[int]*tariff.SectionData),
		ChapterToSec: make(map[string]int),
		HeadingDocs:  make(map[string][]tariff.HeadingDoc),
		NotesCalls:   make(map[string]int),
		SectionCalls: make(map[int]int),
		HeadingCalls: make(map[string]int),
	}
}

// AddChapter registers chapter notes and the chapter's section mapping.
func (f *FakeRuleStore) AddChapter(section int, notes *tariff.ChapterNotes) *FakeRuleStore {
	notes.Found = true
	f.ChapterNotes[notes.Chapter] = notes
	f.ChapterToSec[notes.Chapter] = section
	return f
}

// AddSection registers a section definition.
func (f *FakeRuleStore) AddSection(sd *tariff.SectionData) *FakeRuleStore {
	sd.Found = true
	f.Sections[sd.ID] = sd
	for _, ch := range sd.Chapters {
		if _, ok := f.ChapterToSec[ch]; !ok {
			f.ChapterToSec[ch] = sd.ID
		}
	}
	return f
}

// AddHeadingDoc registers one heading document.
func (f *FakeRuleStore) AddHeadingDoc(heading string, doc tariff.HeadingDoc) *FakeRuleStore {
	f.HeadingDocs[heading] = append(f.HeadingDocs[heading], doc)
	return f
}

func (f *FakeRuleStore) GetChapterNotes(ctx context.Context, chapter string) (*tariff.ChapterNotes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.NotesCalls[chapter]++
	if f.FailChapterNotes {
		return nil, errors.New(errors.ErrCodeRuleStoreQuery, "fake chapter notes failure")
	}
	notes, ok := f.ChapterNotes[chapter]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeChapterNotesNotFound, "no notes for chapter %s", chapter)
	}
	return notes, nil
}

func (f *FakeRuleStore) GetSectionData(ctx context.Context, section int) (*tariff.SectionData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SectionCalls[section]++
	if f.FailSections {
		return nil, errors.New(errors.ErrCodeRuleStoreQuery, "fake section failure")
	}
	sd, ok := f.Sections[section]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeSectionNotFound, "no section %d", section)
	}
	return sd, nil
}

func (f *FakeRuleStore) GetChapterSection(ctx context.Context, chapter string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ChapterToSec[chapter], nil
}

func (f *FakeRuleStore) GetHeadingDocs(ctx context.Context, heading string) ([]tariff.HeadingDoc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.HeadingCalls[heading]++
	if f.FailHeadingDocs {
		return nil, errors.New(errors.ErrCodeRuleStoreQuery, "fake heading docs failure")
	}
	return f.HeadingDocs[heading], nil
}
