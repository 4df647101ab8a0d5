package tariff

import "context"

// ChapterNotes is the structured legal text scoped to one nomenclature
// chapter.  Found=false is a valid, non-exceptional response meaning the
// store has no notes for the chapter; dependent stages treat it as "no
// signal" and skip their analysis.
type ChapterNotes struct {
	Chapter    string   `json:"chapter"`
	Preamble   string   `json:"preamble"`
	Notes      []string `json:"notes"`
	Exclusions []string `json:"exclusions"`
	Inclusions []string `json:"inclusions"`
	Keywords   []string `json:"keywords"`

	SubheadingRules []SubheadingRule `json:"subheading_rules"`

	Found bool `json:"found"`
}

// SubheadingRule scopes a note to a subheading prefix within its chapter.
type SubheadingRule struct {
	Prefix string `json:"prefix"`
	Note   string `json:"note"`
}

// SectionData describes one top-level section of the nomenclature.
type SectionData struct {
	ID           int               `json:"id"`
	Name         string            `json:"name"`
	Chapters     []string          `json:"chapters"`
	ChapterNames map[string]string `json:"chapter_names"`
	Found        bool              `json:"found"`
}

// HeadingDoc is one heading-level document: code, description text and duty
// rate.
type HeadingDoc struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	DutyRate    string `json:"duty_rate"`
}

// RuleStore is the read-only contract to the external tariff rule data.
// Implementations must tolerate "not found" as a valid response (Found=false
// or an empty slice) rather than an error; errors are reserved for the store
// itself misbehaving.  The engine wraps every call so that a store failure
// degrades the dependent stage to a no-op.
type RuleStore interface {
	// GetChapterNotes returns the notes for a two-digit chapter.
	GetChapterNotes(ctx context.Context, chapter string) (*ChapterNotes, error)

	// GetSectionData returns the section definition for a section id.
	GetSectionData(ctx context.Context, section int) (*SectionData, error)

	// GetChapterSection resolves a two-digit chapter to its section id;
	// zero means unknown.
	GetChapterSection(ctx context.Context, chapter string) (int, error)

	// GetHeadingDocs returns up to ten documents for a four-digit heading.
	GetHeadingDocs(ctx context.Context, heading string) ([]HeadingDoc, error)
}

// MaxHeadingDocs bounds GetHeadingDocs results across every implementation.
const MaxHeadingDocs = 10
