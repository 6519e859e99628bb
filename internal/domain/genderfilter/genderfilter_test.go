package genderfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
)

func TestCheckKeywordsMaleBeatsNoMatch(t *testing.T) {
	assert.Equal(t, valueobject.GenderMale, CheckKeywords("The King James"))
	assert.Equal(t, valueobject.GenderFemale, CheckKeywords("Queen Bee Fitness"))
	assert.Equal(t, valueobject.GenderUnknown, CheckKeywords("random_handle_99"))
}

func TestExtractNamesStripsTitleDigitsAndStoplist(t *testing.T) {
	names := ExtractNames("Mrs. Official_Jessica123")
	assert.Equal(t, []string{"Jessica"}, names)
}

func TestClassifyKeywordTakesPriorityOverNameTable(t *testing.T) {
	g := Classify(nil, "mary_travels", "Queen Mary")
	assert.Equal(t, valueobject.GenderFemale, g)
}

func TestClassifyFallsBackToUsernameNameTable(t *testing.T) {
	g := Classify(nil, "james_adventures", "xx_unlisted_xx")
	assert.Equal(t, valueobject.GenderMale, g)
}

func TestClassifyUnknownWhenNothingMatches(t *testing.T) {
	g := Classify(nil, "zzqqxx", "zzqqxx")
	assert.Equal(t, valueobject.GenderUnknown, g)
}

// TestInclusiveGenderFilter is invariant 7 from spec.md §8: for
// target=male, the output set equals {u : classify(u) in {male, unknown}}.
func TestInclusiveGenderFilter(t *testing.T) {
	genders := map[string]valueobject.Gender{
		"a": valueobject.GenderMale,
		"b": valueobject.GenderFemale,
		"c": valueobject.GenderUnknown,
	}
	filtered := FilterInclusive(genders, valueobject.GenderMale)
	assert.Equal(t, map[string]valueobject.Gender{
		"a": valueobject.GenderMale,
		"c": valueobject.GenderUnknown,
	}, filtered)

	filteredFemale := FilterInclusive(genders, valueobject.GenderFemale)
	assert.Equal(t, map[string]valueobject.Gender{
		"b": valueobject.GenderFemale,
		"c": valueobject.GenderUnknown,
	}, filteredFemale)
}
