package tariff

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

func TestNewCandidate_NormalizesPrefixes(t *testing.T) {
	c, err := NewCandidate("8471.30.00", "preclassify")
	require.NoError(t, err)
	assert.Equal(t, "84713000", c.Code)
	assert.Equal(t, "84", c.Chapter)
	assert.Equal(t, "8471", c.Heading)
	assert.Equal(t, "847130", c.Subheading)
	assert.True(t, c.Alive)
}

func TestNewCandidate_TooShortRejected(t *testing.T) {
	_, err := NewCandidate("8471", "preclassify")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCandidateInvalid))
}

func TestCandidate_EliminateIsIdempotent(t *testing.T) {
	c, err := NewCandidate("84713000", "manual")
	require.NoError(t, err)

	c.Eliminate(StageSection, "no section overlap")
	assert.False(t, c.Alive)
	assert.Equal(t, StageSection, c.EliminatedAt)

	// Second elimination must not overwrite the original reason.
	c.Eliminate(StageHeading, "weak score")
	assert.Equal(t, "no section overlap", c.EliminationReason)
	assert.Equal(t, StageSection, c.EliminatedAt)
}

func TestCandidate_Revive(t *testing.T) {
	c, err := NewCandidate("84713000", "manual")
	require.NoError(t, err)
	c.Eliminate(StageCatchAll, "catch-all")
	c.Revive()
	assert.True(t, c.Alive)
	assert.Empty(t, c.EliminationReason)
}

func TestCandidate_BoostClampsAt100(t *testing.T) {
	c, err := NewCandidate("84713000", "manual")
	require.NoError(t, err)
	c.Confidence = 95
	c.Boost(20)
	assert.Equal(t, 100.0, c.Confidence)
}

func TestDescriptionText_LanguageOrder(t *testing.T) {
	c, err := NewCandidate("84713000", "manual")
	require.NoError(t, err)
	c.Descriptions["ko"] = "휴대용 컴퓨터"
	assert.Equal(t, "휴대용 컴퓨터", c.DescriptionText())
	c.Descriptions["en"] = "Portable computers"
	assert.Equal(t, "Portable computers", c.DescriptionText())
}

func TestCandidatesFromPreClassify(t *testing.T) {
	got := CandidatesFromPreClassify(PreClassifyResult{Candidates: []PreClassifyCandidate{
		{Code: "8471.30.00", Description: "Portable computers", Confidence: 80, DutyRate: "0%"},
		{Code: "bad", Description: "skipped"},
		{Code: "85171200", DescriptionKo: "휴대전화", Confidence: 140},
	}})
	require.Len(t, got, 2)
	assert.Equal(t, "84713000", got[0].Code)
	assert.Equal(t, 80.0, got[0].Confidence)
	assert.Equal(t, "preclassify", got[0].Source)
	assert.Equal(t, "0%", got[0].DutyRate)
	// Confidence is clamped.
	assert.Equal(t, 100.0, got[1].Confidence)
	assert.Equal(t, "휴대전화", got[1].Descriptions["ko"])
}

func TestStageAndActionJSONNames(t *testing.T) {
	b, err := json.Marshal(EliminationStep{
		Stage:  StageCatchAll,
		Action: ActionEliminate,
		Rule:   RuleCatchAll,
	})
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, `"stage":"CatchAllGate"`)
	assert.Contains(t, s, `"action":"eliminate"`)
	assert.Contains(t, s, `"rule":"catch_all"`)
}

func TestStageValidity(t *testing.T) {
	assert.True(t, StageSection.IsValid())
	assert.True(t, StageConsult.IsValid())
	assert.False(t, StageUnknown.IsValid())
	assert.False(t, Stage(99).IsValid())
	assert.Equal(t, "Unknown", Stage(99).String())
}
