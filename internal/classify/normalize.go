package classify

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Pair is one (label, amount) token extracted from a shift description.
type Pair struct {
	Label  string
	Amount decimal.Decimal
}

// foldAccents maps Portuguese accented characters to their base letters so
// that keyword matching treats "almoço" and "almoco" as the same word.
var foldAccents = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

// A pair is a run of letters/accented characters/digits, optional whitespace,
// then a numeric literal with an optional single decimal point.
var rePair = regexp.MustCompile(`([a-z1-9á-ú]+)\s*(\d+(?:\.\d+)?)`)

// Tokenize normalizes a free-text shift description into ordered
// (label, amount) pairs: lowercases, unifies the decimal separator, then
// scans for label/number runs. Input with no numeric token yields an empty
// slice, not an error.
func Tokenize(raw string) []Pair {
	s := strings.ToLower(raw)
	s = strings.ReplaceAll(s, ",", ".")

	matches := rePair.FindAllStringSubmatch(s, -1)
	pairs := make([]Pair, 0, len(matches))
	for _, m := range matches {
		amount, err := decimal.NewFromString(m[2])
		if err != nil {
			continue
		}
		pairs = append(pairs, Pair{Label: m[1], Amount: amount})
	}
	return pairs
}
