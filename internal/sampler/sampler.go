// Package sampler produces encoded training and evaluation batches from one
// side of a dataset split.
package sampler

import (
	"github.com/crimson-sun/onoma/internal/encode"
)

// Batch is one sampled batch, ready for the classifier: parallel category,
// name, and label slices plus the time-major index matrix
// [maxLength][len(Names)].
type Batch struct {
	Categories []string
	Names      []string
	Labels     []int
	Input      [][]int
}

// Sampler yields batches. Next reports ok=false once the sampler is
// exhausted; the random sampler never exhausts.
type Sampler interface {
	Next() (Batch, bool, error)
}

// encodeBatch materializes a Batch from parallel category/name slices.
func encodeBatch(a *encode.Alphabet, maxLength int, categories, names []string, labels []int) (Batch, error) {
	input, err := encode.Names(a, names, maxLength)
	if err != nil {
		return Batch{}, err
	}
	return Batch{
		Categories: categories,
		Names:      names,
		Labels:     labels,
		Input:      input,
	}, nil
}
