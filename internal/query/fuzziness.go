package query

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Fuzziness is a length-banded edit-distance tolerance: no edits below Low
// runes, one edit below High, two from High upwards.
type Fuzziness struct {
	Low  int
	High int
}

// DefaultFuzziness allows no edits for 1-2 rune terms, one edit for 3-5 and
// two for 6 or more.
var DefaultFuzziness = Fuzziness{Low: 3, High: 6}

// Distance returns the edit distance allowed for term.
func (f Fuzziness) Distance(term string) int {
	n := utf8.RuneCountInString(term)
	switch {
	case n < f.Low:
		return 0
	case n < f.High:
		return 1
	default:
		return 2
	}
}

// String renders the OpenSearch AUTO form so the engine applies the same
// bands to each analysed term.
func (f Fuzziness) String() string {
	return fmt.Sprintf("AUTO:%d,%d", f.Low, f.High)
}

// forToken returns the fuzziness parameter and the edit distance for a query
// token. Tokens containing digits (years, reference numbers) are matched
// with zero edits: 2023 must never match 2024.
func (f Fuzziness) forToken(token string) (string, int) {
	if hasDigit(token) {
		return "0", 0
	}
	return f.String(), f.Distance(token)
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
