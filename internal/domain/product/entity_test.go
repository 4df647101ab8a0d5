package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/HSCode-Intelligence/internal/nlp"
	"github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

func TestNewInfo_DerivesKeywords(t *testing.T) {
	info, err := NewInfo(RawItem{
		Description: "Stainless steel lunch box",
		Material:    "stainless steel",
		Form:        "rectangular box",
		IntendedUse: "food storage",
	}, nlp.NewTokenizer())
	require.NoError(t, err)

	assert.Contains(t, info.Keywords, "stainless")
	assert.Contains(t, info.Keywords, "steel")
	assert.Contains(t, info.Keywords, "lunch")
	assert.Contains(t, info.Keywords, "box")
	assert.Contains(t, info.Keywords, "food")
}

func TestNewInfo_LocalDescriptionOnly(t *testing.T) {
	info, err := NewInfo(RawItem{DescriptionLocal: "스테인리스 도시락 상자"}, nlp.NewTokenizer())
	require.NoError(t, err)
	assert.Contains(t, info.Keywords, "도시락")
}

func TestNewInfo_EmptyDescriptionsRejected(t *testing.T) {
	_, err := NewInfo(RawItem{Material: "steel"}, nlp.NewTokenizer())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeProductIncomplete))
}

func TestNewInfo_TrimsFields(t *testing.T) {
	info, err := NewInfo(RawItem{
		Description:   "  cotton shirt  ",
		OriginCountry: " KR ",
	}, nlp.NewTokenizer())
	require.NoError(t, err)
	assert.Equal(t, "cotton shirt", info.Description)
	assert.Equal(t, "KR", info.OriginCountry)
}

func TestCompositionText_CarriesPercentages(t *testing.T) {
	info, err := NewInfo(RawItem{
		Description: "blended fabric shirt",
		Material:    "60% cotton, 40% polyester",
	}, nlp.NewTokenizer())
	require.NoError(t, err)
	assert.Equal(t, []float64{60, 40}, nlp.ExtractPercentages(info.CompositionText()))
}
