package engine

import (
	"regexp"
	"strings"
)

// Material and form vocabularies used by attribute scoring and the GIR 3(b)
// essential-character tie-break.  Terms are lower-case; Korean terms are
// included because heading texts and declarations arrive in either language.
var materialTerms = []string{
	"cotton", "wool", "silk", "linen", "polyester", "nylon", "acrylic",
	"leather", "rubber", "plastic", "plastics", "wood", "wooden", "bamboo",
	"paper", "paperboard", "glass", "ceramic", "porcelain", "stone",
	"iron", "steel", "stainless", "aluminium", "aluminum", "copper",
	"brass", "zinc", "nickel", "tin", "lead", "gold", "silver", "titanium",
	"면", "양모", "모직", "실크", "마", "폴리에스터", "나일론", "가죽",
	"고무", "플라스틱", "나무", "목재", "대나무", "종이", "유리", "도자기",
	"철", "강철", "스테인리스", "알루미늄", "구리", "황동", "아연", "주석",
	"금", "은", "티타늄",
}

var formTerms = []string{
	"sheet", "sheets", "plate", "plates", "rod", "rods", "bar", "bars",
	"wire", "wires", "tube", "tubes", "pipe", "pipes", "coil", "coils",
	"powder", "powders", "granule", "granules", "pellet", "pellets",
	"film", "films", "foil", "box", "boxes", "bottle", "bottles",
	"container", "containers", "roll", "rolls",
	"판", "봉", "선", "관", "코일", "분말", "과립", "펠릿", "필름", "박",
	"상자", "병", "용기", "롤",
}

var (
	// Catch-all residual headings: "other", "others", "n.e.s.",
	// "not elsewhere specified", and the Korean "기타".
	catchAllPattern = regexp.MustCompile(`(?i)(\bothers?\b|\bn\.?\s?e\.?\s?s\.?|\bnot elsewhere specified\b|기타)`)

	// "Principally used" style qualifications in heading text.
	principallyPattern = regexp.MustCompile(`(?i)(\bprincipally\b|\bmainly\b|\bchiefly\b|주로)`)

	// Exception clauses inside exclusion notes that carve products back in.
	exceptionPattern = regexp.MustCompile(`(?i)(except for|except|other than|단\s*,|제외하고)`)

	// Cross-references to another chapter inside a note.
	chapterRefPattern = regexp.MustCompile(`(?i)(?:chapter\s*|제\s*)(\d{1,2})\s*장?`)
)

// firstVocabTerm returns the first term from vocab found in any of the given
// lower-cased texts, or "".
func firstVocabTerm(vocab []string, texts ...string) string {
	for _, term := range vocab {
		for _, t := range texts {
			if strings.Contains(t, term) {
				return term
			}
		}
	}
	return ""
}

// containsVocabTerm reports whether text contains any term from vocab.
func containsVocabTerm(vocab []string, text string) bool {
	return firstVocabTerm(vocab, text) != ""
}

// isCatchAllText reports whether a heading text is a residual catch-all
// bucket.  A text qualifies when it opens with the residual phrase, or when
// it is short (<30 characters) and the phrase dominates it.
func isCatchAllText(text string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	if trimmed == "" {
		return false
	}
	loc := catchAllPattern.FindStringIndex(trimmed)
	if loc == nil {
		return false
	}
	if strings.HasPrefix(trimmed, "other") || strings.HasPrefix(trimmed, "기타") {
		return true
	}
	return len(trimmed) < 30
}

// exceptionClause splits an exclusion note around its first exception marker
// and returns the carve-back text, or "" when the note has none.
func exceptionClause(note string) string {
	loc := exceptionPattern.FindStringIndex(note)
	if loc == nil {
		return ""
	}
	return note[loc[1]:]
}

// chapterRefs extracts distinct two-digit chapter references from a note,
// excluding the chapter the note belongs to.
func chapterRefs(note, ownChapter string) []string {
	var refs []string
	seen := map[string]bool{ownChapter: true}
	for _, m := range chapterRefPattern.FindAllStringSubmatch(note, -1) {
		ch := m[1]
		if len(ch) == 1 {
			ch = "0" + ch
		}
		if !seen[ch] {
			seen[ch] = true
			refs = append(refs, ch)
		}
	}
	return refs
}
