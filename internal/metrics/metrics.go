// Package metrics computes evaluation metrics for the classifier.
package metrics

import (
	"github.com/pkg/errors"
)

// BalancedAccuracy returns the mean per-category recall over the categories
// present in truth, correcting for category size imbalance. Predictions and
// truth must be the same length; a mismatch is a data-alignment bug and is
// reported as an error rather than masked by truncation.
func BalancedAccuracy(predicted, truth []int) (float64, error) {
	if len(predicted) != len(truth) {
		return 0, errors.Errorf("metrics: %d predictions for %d truth labels", len(predicted), len(truth))
	}
	if len(truth) == 0 {
		return 0, errors.New("metrics: empty evaluation set")
	}

	total := make(map[int]int)
	correct := make(map[int]int)
	for i, label := range truth {
		total[label]++
		if predicted[i] == label {
			correct[label]++
		}
	}

	var sum float64
	for label, n := range total {
		sum += float64(correct[label]) / float64(n)
	}
	return sum / float64(len(total)), nil
}
