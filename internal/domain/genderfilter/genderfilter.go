// Package genderfilter implements the Gender Filter (C4): a pure classifier
// mapping (username, display_name) -> {male, female, unknown}, and the
// inclusive filter built on top of it. Treated as a pluggable, side-effect
// free component per spec.md §1's explicit "describe only the interface"
// stance on gender classification.
package genderfilter

import (
	"regexp"
	"strings"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
)

var (
	maleKeywords   = []string{"king", "prince", "sir", "mr", "lord", "duke"}
	femaleKeywords = []string{"queen", "princess", "lady", "mrs", "ms", "miss", "duchess"}

	titlePrefix  = regexp.MustCompile(`(?i)^(mrs?|ms|dr|prof|sir|lady|miss)\.?\s+`)
	nonNameChars = regexp.MustCompile(`\d+|_+|\.+`)
	separators   = regexp.MustCompile(`[_.\-\s\d]+`)
	nameRun      = regexp.MustCompile(`[A-Za-z]{2,20}`)

	stoplist = map[string]struct{}{
		"the": {}, "and": {}, "official": {}, "real": {}, "true": {}, "page": {},
		"account": {}, "profile": {}, "fitness": {}, "gym": {}, "workout": {},
		"life": {}, "love": {}, "style": {}, "blog": {}, "shop": {},
	}
)

// Classifier maps a single extracted name token to a gender, standing in
// for the original's gender_guesser name-corpus lookup. Pluggable per
// spec.md §9 so a fuller table can replace nameTable without touching
// Classify's call sites.
type Classifier interface {
	ClassifyName(name string) valueobject.Gender
}

// tableClassifier looks up a name in an in-memory table.
type tableClassifier struct {
	table map[string]valueobject.Gender
}

func (c *tableClassifier) ClassifyName(name string) valueobject.Gender {
	if g, ok := c.table[strings.ToLower(name)]; ok {
		return g
	}
	return valueobject.GenderUnknown
}

// DefaultClassifier returns a Classifier backed by a small embedded table of
// common first names. It supplements, rather than reproduces, the
// original's full gender_guesser corpus (out of scope here; see DESIGN.md).
func DefaultClassifier() Classifier {
	return &tableClassifier{table: builtinNameTable}
}

// ExtractNames mirrors the original's extract_names: strip a leading title,
// replace digits/underscores/dots with spaces, split on separators, keep
// alphabetic runs of 2-20 chars, and drop stoplisted generic words.
func ExtractNames(text string) []string {
	if text == "" {
		return nil
	}
	cleaned := titlePrefix.ReplaceAllString(text, "")
	cleaned = nonNameChars.ReplaceAllString(cleaned, " ")

	var names []string
	for _, part := range separators.Split(cleaned, -1) {
		for _, match := range nameRun.FindAllString(part, -1) {
			lower := strings.ToLower(match)
			if _, excluded := stoplist[lower]; excluded {
				continue
			}
			if len(match) >= 2 {
				names = append(names, match)
			}
		}
	}
	return names
}

// CheckKeywords mirrors check_gender_keywords: a case-insensitive substring
// scan for title words, male checked before female.
func CheckKeywords(text string) valueobject.Gender {
	if text == "" {
		return valueobject.GenderUnknown
	}
	lower := strings.ToLower(text)
	for _, kw := range maleKeywords {
		if strings.Contains(lower, kw) {
			return valueobject.GenderMale
		}
	}
	for _, kw := range femaleKeywords {
		if strings.Contains(lower, kw) {
			return valueobject.GenderFemale
		}
	}
	return valueobject.GenderUnknown
}

// Classify implements the three-strategy cascade from spec.md §4.4: keyword
// check on both strings, then name-table lookup on display_name, then on
// username. The first decisive result wins; otherwise unknown.
func Classify(c Classifier, username, displayName string) valueobject.Gender {
	if c == nil {
		c = DefaultClassifier()
	}

	if g := CheckKeywords(displayName); g != valueobject.GenderUnknown {
		return g
	}
	if g := CheckKeywords(username); g != valueobject.GenderUnknown {
		return g
	}

	for _, name := range ExtractNames(displayName) {
		if g := c.ClassifyName(name); g != valueobject.GenderUnknown {
			return g
		}
	}
	for _, name := range ExtractNames(username) {
		if g := c.ClassifyName(name); g != valueobject.GenderUnknown {
			return g
		}
	}

	return valueobject.GenderUnknown
}

// FilterInclusive implements the inclusive filtering rule: target=male
// keeps male ∪ unknown, target=female keeps female ∪ unknown.
func FilterInclusive(genders map[string]valueobject.Gender, target valueobject.Gender) map[string]valueobject.Gender {
	out := make(map[string]valueobject.Gender, len(genders))
	for key, g := range genders {
		switch target {
		case valueobject.GenderMale:
			if g == valueobject.GenderMale || g == valueobject.GenderUnknown {
				out[key] = g
			}
		case valueobject.GenderFemale:
			if g == valueobject.GenderFemale || g == valueobject.GenderUnknown {
				out[key] = g
			}
		}
	}
	return out
}
