package genderfilter

import "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"

// builtinNameTable is a small supplementary name->gender table standing in
// for the original's gender_guesser corpus. It is deliberately short: it
// exists to make Classify exercisable end-to-end, not to be exhaustive.
// Swap DefaultClassifier for a larger corpus-backed Classifier without
// touching any caller.
var builtinNameTable = map[string]valueobject.Gender{
	"james": valueobject.GenderMale, "john": valueobject.GenderMale, "robert": valueobject.GenderMale,
	"michael": valueobject.GenderMale, "david": valueobject.GenderMale, "william": valueobject.GenderMale,
	"richard": valueobject.GenderMale, "joseph": valueobject.GenderMale, "thomas": valueobject.GenderMale,
	"charles": valueobject.GenderMale, "daniel": valueobject.GenderMale, "matthew": valueobject.GenderMale,
	"anthony": valueobject.GenderMale, "kevin": valueobject.GenderMale, "jason": valueobject.GenderMale,
	"ryan": valueobject.GenderMale, "jacob": valueobject.GenderMale, "tyler": valueobject.GenderMale,
	"brandon": valueobject.GenderMale, "justin": valueobject.GenderMale, "alex": valueobject.GenderMale,
	"andrew": valueobject.GenderMale, "joshua": valueobject.GenderMale, "marcus": valueobject.GenderMale,
	"mary": valueobject.GenderFemale, "patricia": valueobject.GenderFemale, "jennifer": valueobject.GenderFemale,
	"linda": valueobject.GenderFemale, "elizabeth": valueobject.GenderFemale, "barbara": valueobject.GenderFemale,
	"susan": valueobject.GenderFemale, "jessica": valueobject.GenderFemale, "sarah": valueobject.GenderFemale,
	"karen": valueobject.GenderFemale, "nancy": valueobject.GenderFemale, "lisa": valueobject.GenderFemale,
	"emily": valueobject.GenderFemale, "amanda": valueobject.GenderFemale, "melissa": valueobject.GenderFemale,
	"michelle": valueobject.GenderFemale, "ashley": valueobject.GenderFemale, "stephanie": valueobject.GenderFemale,
	"jasmine": valueobject.GenderFemale, "olivia": valueobject.GenderFemale, "sophia": valueobject.GenderFemale,
	"emma": valueobject.GenderFemale, "chloe": valueobject.GenderFemale, "natalie": valueobject.GenderFemale,
}
