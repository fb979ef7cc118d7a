// Package trainer runs the training loop: batches from the random sampler
// flow through the optimizer, with periodic evaluation over the eval split
// and, in the private configuration, privacy-expenditure reporting.
package trainer

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/crimson-sun/onoma/internal/metrics"
	"github.com/crimson-sun/onoma/internal/nn"
	"github.com/crimson-sun/onoma/internal/privacy"
	"github.com/crimson-sun/onoma/internal/sampler"
)

// Options configures a Trainer. Accountant and Delta are only consulted when
// an accountant is present (private mode).
type Options struct {
	Model       *nn.Classifier
	Optimizer   privacy.Optimizer
	Train       sampler.Sampler
	Eval        *sampler.Exhaustive
	Accountant  *privacy.Accountant
	Delta       float64
	Iterations  int
	ReportEvery int
	Logger      *slog.Logger
}

// Trainer drives the iteration loop. The model's parameters are the only
// mutable state and are touched exclusively between iterations.
type Trainer struct {
	opts Options
	log  *slog.Logger
}

// New validates the options and returns a Trainer.
func New(opts Options) (*Trainer, error) {
	if opts.Model == nil || opts.Optimizer == nil || opts.Train == nil || opts.Eval == nil {
		return nil, errors.New("trainer: model, optimizer, and both samplers are required")
	}
	if opts.Iterations <= 0 {
		return nil, errors.Errorf("trainer: iterations must be positive, got %d", opts.Iterations)
	}
	if opts.ReportEvery <= 0 {
		return nil, errors.Errorf("trainer: report interval must be positive, got %d", opts.ReportEvery)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Trainer{opts: opts, log: log}, nil
}

// Run executes the configured number of iterations. Reporting is
// side-effectful logging only; nothing feeds back into training.
func (t *Trainer) Run(ctx context.Context) error {
	for it := 1; it <= t.opts.Iterations; it++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, ok, err := t.opts.Train.Next()
		if err != nil {
			return errors.Wrapf(err, "trainer: iteration %d", it)
		}
		if !ok {
			return errors.Errorf("trainer: training sampler exhausted at iteration %d", it)
		}

		loss, err := t.opts.Optimizer.Step(t.opts.Model, batch.Input, batch.Labels)
		if err != nil {
			return errors.Wrapf(err, "trainer: iteration %d", it)
		}

		if it%t.opts.ReportEvery == 0 || it == t.opts.Iterations {
			if err := t.report(it, loss); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Trainer) report(it int, loss float64) error {
	acc, err := t.Evaluate()
	if err != nil {
		return errors.Wrapf(err, "trainer: evaluation at iteration %d", it)
	}

	if t.opts.Accountant != nil {
		eps, order, err := t.opts.Accountant.Epsilon(t.opts.Delta)
		if err != nil {
			return errors.Wrapf(err, "trainer: privacy accounting at iteration %d", it)
		}
		t.log.Info("iteration",
			"iter", it,
			"loss", loss,
			"balanced_accuracy", acc,
			"epsilon", eps,
			"delta", t.opts.Delta,
			"order", order,
		)
		return nil
	}

	t.log.Info("iteration", "iter", it, "loss", loss, "balanced_accuracy", acc)
	return nil
}

// Evaluate runs one full pass of the exhaustive sampler and returns the
// balanced accuracy of the model's predictions.
func (t *Trainer) Evaluate() (float64, error) {
	t.opts.Eval.Reset()

	var predicted, truth []int
	for {
		batch, ok, err := t.opts.Eval.Next()
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		preds, err := t.opts.Model.Predict(batch.Input)
		if err != nil {
			return 0, err
		}
		predicted = append(predicted, preds...)
		truth = append(truth, batch.Labels...)
	}
	return metrics.BalancedAccuracy(predicted, truth)
}
