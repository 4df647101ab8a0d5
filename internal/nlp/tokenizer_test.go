package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywords_LowercasesAndDedupes(t *testing.T) {
	tok := NewTokenizer()
	got := tok.Keywords("Laptop Computer, laptop COMPUTER")
	assert.Equal(t, []string{"laptop", "computer"}, got)
}

func TestKeywords_DropsStopWordsAndNumbers(t *testing.T) {
	tok := NewTokenizer()
	got := tok.Keywords("a laptop of the year 2024 for items")
	assert.Equal(t, []string{"laptop", "year"}, got)
}

func TestKeywords_DropsShortTokens(t *testing.T) {
	tok := NewTokenizer()
	got := tok.Keywords("x y steel z")
	assert.Equal(t, []string{"steel"}, got)
}

func TestKeywords_Korean(t *testing.T) {
	tok := NewTokenizer()
	got := tok.Keywords("스테인리스 강철 상자 및 기타 제품")
	assert.Equal(t, []string{"스테인리스", "강철", "상자"}, got)
}

func TestKeywords_MultipleTexts(t *testing.T) {
	tok := NewTokenizer()
	got := tok.Keywords("cotton shirt", "woven cotton")
	assert.Equal(t, []string{"cotton", "shirt", "woven"}, got)
}

func TestWithStopWords_ReplacesDefaults(t *testing.T) {
	tok := NewTokenizer(WithStopWords([]string{"laptop"}))
	got := tok.Keywords("the laptop computer")
	// "the" is no longer filtered; "laptop" now is.
	assert.Equal(t, []string{"the", "computer"}, got)
}

func TestWithExtraStopWords(t *testing.T) {
	tok := NewTokenizer(WithExtraStopWords([]string{"computer"}))
	got := tok.Keywords("the laptop computer")
	assert.Equal(t, []string{"laptop"}, got)
}

func TestOverlap(t *testing.T) {
	assert.Equal(t, 2, Overlap([]string{"laptop", "computer", "bag"}, []string{"computer", "laptop", "case"}))
	assert.Equal(t, 0, Overlap(nil, []string{"a"}))
	assert.Equal(t, 0, Overlap([]string{"a"}, nil))
	// Duplicates in the second slice count once.
	assert.Equal(t, 1, Overlap([]string{"steel"}, []string{"steel", "steel"}))
}

func TestContainsAny(t *testing.T) {
	assert.True(t, ContainsAny("Other articles of Iron or steel", "iron", "copper"))
	assert.False(t, ContainsAny("cotton shirts", "iron", "copper"))
}

func TestExtractPercentages(t *testing.T) {
	assert.Equal(t, []float64{60, 40}, ExtractPercentages("60% cotton, 40% polyester"))
	assert.Equal(t, []float64{85.5}, ExtractPercentages("approximately 85.5 percent wool"))
	assert.Equal(t, []float64{70}, ExtractPercentages("면 70퍼센트 혼방"))
	assert.Nil(t, ExtractPercentages("no figures here"))
	// Values over 100 are discarded.
	assert.Empty(t, ExtractPercentages("450% markup"))
}
