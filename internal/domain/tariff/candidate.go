// Package tariff defines the classification-side data model of the platform:
// candidates under evaluation, the elimination audit trail, run results, and
// the read-only rule-store contract.
package tariff

import (
	"strings"
	"unicode"

	"github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

// Candidate is one still-possible classification code within a single
// elimination run.  It is owned exclusively by the pipeline for the duration
// of the run: stages mutate Confidence and flip Alive in place, and the
// struct is discarded (or persisted as audit data) when the run ends.
type Candidate struct {
	// Code is the full classification code (6, 8 or 10 digits).
	Code string `json:"code"`

	// Chapter, Heading and Subheading are the 2-, 4- and 6-digit prefixes
	// derived from Code at construction time.
	Chapter    string `json:"chapter"`
	Heading    string `json:"heading"`
	Subheading string `json:"subheading"`

	// SectionID is resolved by the enrich stage; zero means unresolved.
	SectionID int `json:"section_id"`

	// Confidence is a 0–100 score.  Stages adjust it; it never decides
	// elimination on its own.
	Confidence float64 `json:"confidence"`

	// Source tags the provenance of the candidate (e.g. "preclassify",
	// "manual").
	Source string `json:"source"`

	// Descriptions holds human-readable heading text keyed by language tag
	// ("en", "ko").
	Descriptions map[string]string `json:"descriptions,omitempty"`

	// DutyRate is free-text duty-rate information for reporting.
	DutyRate string `json:"duty_rate,omitempty"`

	// Alive is flipped to false exactly once per run, except via the
	// documented zero-survivor rollback of the eliminating stage.
	Alive bool `json:"alive"`

	// EliminationReason and EliminatedAt record why and where a candidate
	// was removed; both are empty while Alive.
	EliminationReason string `json:"elimination_reason,omitempty"`
	EliminatedAt      Stage  `json:"eliminated_at,omitempty"`
}

// DescriptionText returns the candidate's description in lookup order
// English first, then Korean, then any remaining language.
func (c *Candidate) DescriptionText() string {
	if c.Descriptions == nil {
		return ""
	}
	if d, ok := c.Descriptions["en"]; ok && d != "" {
		return d
	}
	if d, ok := c.Descriptions["ko"]; ok && d != "" {
		return d
	}
	for _, d := range c.Descriptions {
		if d != "" {
			return d
		}
	}
	return ""
}

// Eliminate marks the candidate dead with the given stage and reason.
// Calling Eliminate on a dead candidate is a no-op.
func (c *Candidate) Eliminate(stage Stage, reason string) {
	if !c.Alive {
		return
	}
	c.Alive = false
	c.EliminationReason = reason
	c.EliminatedAt = stage
}

// Revive undoes an elimination performed in the current stage.  Used only by
// the zero-survivor rollback.
func (c *Candidate) Revive() {
	c.Alive = true
	c.EliminationReason = ""
	c.EliminatedAt = 0
}

// Boost raises Confidence by delta, clamped to 100.
func (c *Candidate) Boost(delta float64) {
	c.Confidence += delta
	if c.Confidence > 100 {
		c.Confidence = 100
	}
}

// NewCandidate builds a Candidate from a classification code, normalizing the
// chapter/heading/subheading prefixes.  The code may contain dots or spaces
// ("8471.30 00"); it must reduce to at least six digits.
func NewCandidate(code, source string) (*Candidate, error) {
	digits := normalizeCode(code)
	if len(digits) < 6 {
		return nil, errors.Newf(errors.ErrCodeCandidateInvalid, "code %q has fewer than six digits", code)
	}
	return &Candidate{
		Code:         digits,
		Chapter:      digits[:2],
		Heading:      digits[:4],
		Subheading:   digits[:6],
		Source:       source,
		Alive:        true,
		Descriptions: map[string]string{},
	}, nil
}

// normalizeCode strips every non-digit rune from a classification code.
func normalizeCode(code string) string {
	var sb strings.Builder
	for _, r := range code {
		if unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// PreClassifyCandidate is one entry of the upstream pre-classification
// payload.
type PreClassifyCandidate struct {
	Code          string  `json:"code"`
	Description   string  `json:"description"`
	DescriptionKo string  `json:"description_ko"`
	DutyRate      string  `json:"duty_rate"`
	Confidence    float64 `json:"confidence"`
	Source        string  `json:"source"`
}

// PreClassifyResult is the upstream pre-classification output consumed by the
// candidate builder.
type PreClassifyResult struct {
	Candidates []PreClassifyCandidate `json:"candidates"`
}

// CandidatesFromPreClassify converts upstream pre-classification output into
// pipeline candidates.  Malformed codes are skipped rather than failing the
// batch; the caller decides whether an empty result is acceptable.
func CandidatesFromPreClassify(res PreClassifyResult) []*Candidate {
	out := make([]*Candidate, 0, len(res.Candidates))
	for _, pc := range res.Candidates {
		source := pc.Source
		if source == "" {
			source = "preclassify"
		}
		c, err := NewCandidate(pc.Code, source)
		if err != nil {
			continue
		}
		c.Confidence = clampConfidence(pc.Confidence)
		c.DutyRate = pc.DutyRate
		if pc.Description != "" {
			c.Descriptions["en"] = pc.Description
		}
		if pc.DescriptionKo != "" {
			c.Descriptions["ko"] = pc.DescriptionKo
		}
		out = append(out, c)
	}
	return out
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
