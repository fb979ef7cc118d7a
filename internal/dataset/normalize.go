package dataset

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/onoma/internal/encode"
)

// NormalizeName maps a raw name onto the alphabet: decompose to NFD, drop
// combining marks, then keep only characters the alphabet recognizes.
// "Gonzáles" becomes "Gonzales"; characters with no ASCII base are dropped.
func NormalizeName(a *encode.Alphabet, name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range norm.NFD.String(name) {
		if unicode.In(r, unicode.Mn) {
			continue
		}
		if !a.Contains(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
