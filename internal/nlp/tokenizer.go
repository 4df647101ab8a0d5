// Package nlp provides the bilingual keyword extraction used by every scoring
// stage of the elimination engine.  It is deliberately free of business logic:
// the engine owns thresholds and scoring, this package owns text.
package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Tokenizer extracts normalized keywords from free text.  Stop-word sets are
// injectable so tests and non-default deployments can control filtering.
// A Tokenizer is immutable after construction and safe for concurrent use.
type Tokenizer struct {
	folder cases.Caser
	stop   map[string]struct{}
}

// Option customises Tokenizer construction.
type Option func(*Tokenizer)

// WithStopWords replaces the default bilingual stop-word sets entirely.
func WithStopWords(words []string) Option {
	return func(t *Tokenizer) {
		t.stop = make(map[string]struct{}, len(words))
		for _, w := range words {
			t.stop[strings.ToLower(w)] = struct{}{}
		}
	}
}

// WithExtraStopWords adds words on top of the default sets.
func WithExtraStopWords(words []string) Option {
	return func(t *Tokenizer) {
		for _, w := range words {
			t.stop[strings.ToLower(w)] = struct{}{}
		}
	}
}

// NewTokenizer constructs a Tokenizer with the default English and Korean
// stop-word sets.
func NewTokenizer(opts ...Option) *Tokenizer {
	t := &Tokenizer{
		folder: cases.Fold(),
		stop:   make(map[string]struct{}, len(englishStopWords)+len(koreanStopWords)),
	}
	for _, w := range englishStopWords {
		t.stop[w] = struct{}{}
	}
	for _, w := range koreanStopWords {
		t.stop[w] = struct{}{}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Keywords tokenizes the given texts and returns the unique keywords in
// first-seen order.  Tokens are case-folded, stop-words and pure numbers are
// dropped, and tokens shorter than two runes are ignored.
func (t *Tokenizer) Keywords(texts ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, text := range texts {
		for _, tok := range t.tokenize(text) {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, tok)
		}
	}
	return out
}

// tokenize splits text into case-folded tokens of consecutive letters or
// digits, then filters stop-words, pure numbers, and sub-two-rune tokens.
func (t *Tokenizer) tokenize(text string) []string {
	folded := t.folder.String(text)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if isNumeric(f) {
			continue
		}
		if _, stopped := t.stop[f]; stopped {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Overlap returns the number of distinct keywords present in both slices.
func Overlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, k := range a {
		set[k] = struct{}{}
	}
	n := 0
	seen := make(map[string]struct{}, len(b))
	for _, k := range b {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := set[k]; ok {
			n++
		}
	}
	return n
}

// ContainsAny reports whether text contains any of the given terms,
// case-insensitively.
func ContainsAny(text string, terms ...string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// percentPattern matches percentage figures in English and Korean text
// ("60%", "60 percent", "60퍼센트").
var percentPattern = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)\s*(?:%|percent\b|퍼센트)`)

// ExtractPercentages returns every percentage figure found in text, in order
// of appearance.  Values above 100 are discarded.
func ExtractPercentages(text string) []float64 {
	matches := percentPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || v > 100 {
			continue
		}
		out = append(out, v)
	}
	return out
}
