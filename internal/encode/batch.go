package encode

import (
	"strings"

	"github.com/pkg/errors"
)

// Names converts a batch of name strings into a time-major index matrix of
// shape [maxLength][len(names)]: row t holds the index of character t of each
// name. Names longer than maxLength are truncated; shorter names are padded
// with the pad index. The matrix always has exactly maxLength rows, whatever
// the actual name lengths.
func Names(a *Alphabet, names []string, maxLength int) ([][]int, error) {
	if maxLength <= 0 {
		return nil, errors.Errorf("encode: maxLength must be positive, got %d", maxLength)
	}
	if len(names) == 0 {
		return nil, errors.New("encode: empty batch")
	}

	m := make([][]int, maxLength)
	for t := range m {
		m[t] = make([]int, len(names))
	}

	for b, name := range names {
		runes := []rune(name)
		if len(runes) > maxLength {
			runes = runes[:maxLength]
		}
		for t := 0; t < maxLength; t++ {
			if t < len(runes) {
				idx, err := a.Index(runes[t])
				if err != nil {
					return nil, errors.Wrapf(err, "name %q position %d", name, t)
				}
				m[t][b] = idx
			} else {
				m[t][b] = a.padIndex
			}
		}
	}
	return m, nil
}

// Decode reconstructs the padded/truncated string for column b of a matrix
// produced by Names. Pad positions decode to PadRune.
func Decode(a *Alphabet, m [][]int, b int) (string, error) {
	if len(m) == 0 {
		return "", errors.New("encode: empty matrix")
	}
	if b < 0 || b >= len(m[0]) {
		return "", errors.Errorf("encode: column %d out of range [0,%d)", b, len(m[0]))
	}
	var sb strings.Builder
	sb.Grow(len(m))
	for t := range m {
		r, err := a.Rune(m[t][b])
		if err != nil {
			return "", errors.Wrapf(err, "row %d", t)
		}
		sb.WriteRune(r)
	}
	return sb.String(), nil
}
