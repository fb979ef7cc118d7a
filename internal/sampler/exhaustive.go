package sampler

import (
	"github.com/pkg/errors"

	"github.com/crimson-sun/onoma/internal/encode"
)

// Exhaustive walks one side of a split exactly once: all (category, name)
// pairs are flattened in catalog order and chunked into fixed-size batches.
// The final batch may be shorter than batchSize; its encoded matrix is sized
// to the actual batch so labels and columns always align.
type Exhaustive struct {
	alphabet  *encode.Alphabet
	maxLength int
	batchSize int

	categories []string
	names      []string
	labels     []int
	pos        int
}

// NewExhaustive builds an Exhaustive sampler over one side of a split.
// Categories with no names on this side contribute nothing.
func NewExhaustive(a *encode.Alphabet, maxLength, batchSize int, catalog []string, names map[string][]string) (*Exhaustive, error) {
	if batchSize <= 0 {
		return nil, errors.Errorf("sampler: batch size must be positive, got %d", batchSize)
	}
	s := &Exhaustive{
		alphabet:  a,
		maxLength: maxLength,
		batchSize: batchSize,
	}
	for label, category := range catalog {
		for _, name := range names[category] {
			s.categories = append(s.categories, category)
			s.names = append(s.names, name)
			s.labels = append(s.labels, label)
		}
	}
	return s, nil
}

// Next yields the next chunk, or ok=false after the single pass completes.
func (s *Exhaustive) Next() (Batch, bool, error) {
	if s.pos >= len(s.names) {
		return Batch{}, false, nil
	}
	end := s.pos + s.batchSize
	if end > len(s.names) {
		end = len(s.names)
	}

	b, err := encodeBatch(s.alphabet, s.maxLength,
		s.categories[s.pos:end], s.names[s.pos:end], s.labels[s.pos:end])
	if err != nil {
		return Batch{}, false, err
	}
	s.pos = end
	return b, true, nil
}

// Reset rewinds the sampler for another full pass.
func (s *Exhaustive) Reset() {
	s.pos = 0
}
