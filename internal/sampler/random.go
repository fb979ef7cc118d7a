package sampler

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/crimson-sun/onoma/internal/encode"
)

// Random samples batches with replacement: each slot picks a category
// uniformly from the catalog, then a name uniformly from that category's
// list. It never exhausts; the training loop bounds the iteration count.
type Random struct {
	alphabet  *encode.Alphabet
	maxLength int
	batchSize int
	catalog   []string
	names     map[string][]string
	rng       *rand.Rand
}

// NewRandom builds a Random sampler over one side of a split. Every catalog
// category must have at least one name on that side.
func NewRandom(a *encode.Alphabet, maxLength, batchSize int, catalog []string, names map[string][]string, rng *rand.Rand) (*Random, error) {
	if batchSize <= 0 {
		return nil, errors.Errorf("sampler: batch size must be positive, got %d", batchSize)
	}
	if len(catalog) == 0 {
		return nil, errors.New("sampler: empty catalog")
	}
	for _, category := range catalog {
		if len(names[category]) == 0 {
			return nil, errors.Errorf("sampler: category %q has no names on this side of the split", category)
		}
	}
	return &Random{
		alphabet:  a,
		maxLength: maxLength,
		batchSize: batchSize,
		catalog:   catalog,
		names:     names,
		rng:       rng,
	}, nil
}

// Next draws one batch. ok is always true.
func (s *Random) Next() (Batch, bool, error) {
	categories := make([]string, s.batchSize)
	names := make([]string, s.batchSize)
	labels := make([]int, s.batchSize)

	for i := 0; i < s.batchSize; i++ {
		label := s.rng.Intn(len(s.catalog))
		category := s.catalog[label]
		pool := s.names[category]

		categories[i] = category
		names[i] = pool[s.rng.Intn(len(pool))]
		labels[i] = label
	}

	b, err := encodeBatch(s.alphabet, s.maxLength, categories, names, labels)
	if err != nil {
		return Batch{}, false, err
	}
	return b, true, nil
}
