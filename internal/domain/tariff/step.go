package tariff

import (
	"encoding/json"
	"time"
)

// Stage identifies one stage of the elimination pipeline.  Stages execute in
// the numeric order defined here.
type Stage uint8

const (
	StageUnknown Stage = iota
	StageEnrich
	StageSection
	StageChapter
	StageHeading
	StageSubheading
	StageTieBreak
	StageCatchAll
	StageConsult
)

var stageNames = map[Stage]string{
	StageUnknown:    "Unknown",
	StageEnrich:     "Enrich",
	StageSection:    "SectionScope",
	StageChapter:    "ChapterNotes",
	StageHeading:    "HeadingMatch",
	StageSubheading: "SubheadingNote",
	StageTieBreak:   "CompositeTieBreak",
	StageCatchAll:   "CatchAllGate",
	StageConsult:    "AIConsult",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "Unknown"
}

// IsValid reports whether s is a defined pipeline stage.
func (s Stage) IsValid() bool {
	return s > StageUnknown && s <= StageConsult
}

// MarshalJSON encodes the stage by name for audit readability.
func (s Stage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Action is what a step did to the candidate set.
type Action uint8

const (
	ActionKeep Action = iota
	ActionEliminate
	ActionBoost
)

func (a Action) String() string {
	switch a {
	case ActionEliminate:
		return "eliminate"
	case ActionBoost:
		return "boost"
	default:
		return "keep"
	}
}

// MarshalJSON encodes the action by name.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// RuleCategory names the class of nomenclature rule a step applied.
type RuleCategory uint8

const (
	RuleNone RuleCategory = iota
	RuleSectionScope
	RuleChapterPreamble
	RuleChapterExclusion
	RuleChapterInclusion
	RuleChapterDefinition
	RuleChapterRedirect
	RuleHeadingSpecificity
	RuleSubheadingNote
	RuleGIR3A
	RuleGIR3B
	RuleGIR3C
	RuleCatchAll
	RulePrincipally
	RuleAIOpinion
)

var ruleCategoryNames = map[RuleCategory]string{
	RuleNone:               "none",
	RuleSectionScope:       "section_scope",
	RuleChapterPreamble:    "chapter_preamble",
	RuleChapterExclusion:   "chapter_exclusion",
	RuleChapterInclusion:   "chapter_inclusion",
	RuleChapterDefinition:  "chapter_definition",
	RuleChapterRedirect:    "chapter_redirect",
	RuleHeadingSpecificity: "heading_specificity",
	RuleSubheadingNote:     "subheading_note",
	RuleGIR3A:              "gir_3a",
	RuleGIR3B:              "gir_3b",
	RuleGIR3C:              "gir_3c",
	RuleCatchAll:           "catch_all",
	RulePrincipally:        "principally",
	RuleAIOpinion:          "ai_opinion",
}

func (r RuleCategory) String() string {
	if name, ok := ruleCategoryNames[r]; ok {
		return name
	}
	return "none"
}

// MarshalJSON encodes the rule category by name.
func (r RuleCategory) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// EliminationStep is one append-only entry of the run's audit trail.  Steps
// are never edited after append; the ordered list is the complete, replayable
// record of the run.
type EliminationStep struct {
	Stage     Stage        `json:"stage"`
	Action    Action       `json:"action"`
	Rule      RuleCategory `json:"rule"`
	RuleRef   string       `json:"rule_ref,omitempty"`
	Before    int          `json:"before"`
	After     int          `json:"after"`
	Affected  []string     `json:"affected,omitempty"`
	Rationale string       `json:"rationale"`
}

// Challenge is one devil's-advocate counter-argument for a surviving
// candidate.
type Challenge struct {
	Code            string `json:"code"`
	CounterArgument string `json:"counter_argument"`
	AlternativeCode string `json:"alternative_code,omitempty"`
	Severity        string `json:"severity"`
}

// RunResult is the caller-facing outcome of one elimination run.  Ambiguity
// and partial failure are communicated exclusively through the flags and the
// step list; Eliminate never raises for them.
type RunResult struct {
	RunID string `json:"run_id"`

	Survivors  []*Candidate `json:"survivors"`
	Eliminated []*Candidate `json:"eliminated"`

	Steps []EliminationStep `json:"steps"`

	SectionsExamined []int    `json:"sections_examined"`
	ChaptersExamined []string `json:"chapters_examined"`

	SurvivorCount   int `json:"survivor_count"`
	EliminatedCount int `json:"eliminated_count"`

	// NeedsAI is true when more than one candidate survived the
	// deterministic stages, whether or not a consultation then ran.
	NeedsAI bool `json:"needs_ai"`

	// NeedsQuestions is true when more than three candidates survived,
	// signalling that clarifying questions to the customer are warranted.
	NeedsQuestions bool `json:"needs_questions"`

	Timestamp time.Time `json:"timestamp"`

	Challenges []Challenge `json:"challenges,omitempty"`
}
