package encode

import (
	"github.com/pkg/errors"
)

// DefaultLetters is the character set recognized by the surname corpus after
// normalization: ASCII letters plus the punctuation that survives it.
const DefaultLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ .,;'#"

// PadRune is the printable stand-in for the reserved pad position when
// decoding. It is never a member of the alphabet itself.
const PadRune = '_'

// ErrUnknownRune reports a character with no alphabet index. Encoding rejects
// such input outright rather than aliasing it to the pad index.
var ErrUnknownRune = errors.New("encode: rune not in alphabet")

// Alphabet maps characters to dense indices. Indices are determined by
// position in the constructor string; the reserved pad index sits one past
// the last character.
type Alphabet struct {
	runes    []rune
	index    map[rune]int
	padIndex int
}

// NewAlphabet builds an Alphabet from the given characters, in order.
func NewAlphabet(letters string) (*Alphabet, error) {
	runes := []rune(letters)
	if len(runes) == 0 {
		return nil, errors.New("encode: empty alphabet")
	}
	index := make(map[rune]int, len(runes))
	for i, r := range runes {
		if _, dup := index[r]; dup {
			return nil, errors.Errorf("encode: duplicate rune %q in alphabet", r)
		}
		if r == PadRune {
			return nil, errors.Errorf("encode: alphabet must not contain the pad rune %q", PadRune)
		}
		index[r] = i
	}
	return &Alphabet{
		runes:    runes,
		index:    index,
		padIndex: len(runes),
	}, nil
}

// Default returns the alphabet for the surname corpus.
func Default() *Alphabet {
	a, err := NewAlphabet(DefaultLetters)
	if err != nil {
		panic(err) // DefaultLetters is a valid constant
	}
	return a
}

// Size returns the number of indices, including the pad index.
func (a *Alphabet) Size() int {
	return len(a.runes) + 1
}

// PadIndex returns the reserved pad index.
func (a *Alphabet) PadIndex() int {
	return a.padIndex
}

// Index returns the index for r, or ErrUnknownRune if r is not in the
// alphabet.
func (a *Alphabet) Index(r rune) (int, error) {
	i, ok := a.index[r]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownRune, "%q", r)
	}
	return i, nil
}

// Contains reports whether r has an alphabet index.
func (a *Alphabet) Contains(r rune) bool {
	_, ok := a.index[r]
	return ok
}

// Rune returns the character at index i. The pad index decodes to PadRune.
func (a *Alphabet) Rune(i int) (rune, error) {
	if i == a.padIndex {
		return PadRune, nil
	}
	if i < 0 || i >= len(a.runes) {
		return 0, errors.Errorf("encode: index %d out of range [0,%d]", i, a.padIndex)
	}
	return a.runes[i], nil
}
