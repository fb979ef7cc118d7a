package dataset

import (
	"math/rand"
)

// Split holds the train/eval partition of a Dataset. Both sides keep the
// dataset's category keying; a category absent from one side maps to an
// empty list.
type Split struct {
	Train map[string][]string
	Eval  map[string][]string
}

// BuildSplit routes every sample independently: a uniform draw below
// trainFraction sends it to the train side, otherwise to eval. The observed
// ratio is random, not exact, and small categories can deviate materially
// from trainFraction. Pass a seeded rand.Rand for a reproducible split.
func BuildSplit(ds *Dataset, trainFraction float64, rng *rand.Rand) Split {
	s := Split{
		Train: make(map[string][]string, len(ds.Catalog())),
		Eval:  make(map[string][]string, len(ds.Catalog())),
	}
	for _, category := range ds.Catalog() {
		for _, name := range ds.Names(category) {
			if rng.Float64() < trainFraction {
				s.Train[category] = append(s.Train[category], name)
			} else {
				s.Eval[category] = append(s.Eval[category], name)
			}
		}
	}
	return s
}

// Size returns the number of samples on one side of the split.
func Size(side map[string][]string) int {
	n := 0
	for _, names := range side {
		n += len(names)
	}
	return n
}
