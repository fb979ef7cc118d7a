package privacy

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/crimson-sun/onoma/internal/nn"
)

// Optimizer applies one gradient step for a batch and returns the mean
// cross-entropy loss the batch produced.
type Optimizer interface {
	Step(model *nn.Classifier, input [][]int, labels []int) (float64, error)
}

// SGD is the non-private optimizer: per-sample gradients are averaged
// unmodified and applied with a fixed learning rate.
type SGD struct {
	lr float64
}

// NewSGD creates a plain gradient-descent optimizer.
func NewSGD(lr float64) (*SGD, error) {
	if lr <= 0 {
		return nil, errors.Errorf("privacy: learning rate must be positive, got %v", lr)
	}
	return &SGD{lr: lr}, nil
}

// Step zeroes the accumulated gradients, sums per-sample gradients, and
// applies the averaged update in place.
func (o *SGD) Step(model *nn.Classifier, input [][]int, labels []int) (float64, error) {
	params := model.Params()
	for _, p := range params {
		p.ZeroGrad()
	}

	loss, err := model.EachSampleGrad(input, labels, func(grads []*mat.Dense) {
		for i, p := range params {
			nn.AddScaled(p.Grad, grads[i], 1)
		}
	})
	if err != nil {
		return 0, err
	}

	scale := -o.lr / float64(len(labels))
	for _, p := range params {
		nn.AddScaled(p.Value, p.Grad, scale)
	}
	return loss, nil
}

// DPSGD is the privacy-enforcing optimizer: each sample's gradient
// contribution is clipped to an L2 bound before aggregation, Gaussian noise
// scaled to that bound is added to the sum, and one accountant step is
// recorded per update.
type DPSGD struct {
	lr         float64
	clipNorm   float64
	noise      float64
	rng        *rand.Rand
	accountant *Accountant
}

// NewDPSGD creates a DP-SGD optimizer. The accountant must be configured
// with the same noise multiplier and the run's sampling rate.
func NewDPSGD(lr, clipNorm, noiseMultiplier float64, acct *Accountant, rng *rand.Rand) (*DPSGD, error) {
	if lr <= 0 {
		return nil, errors.Errorf("privacy: learning rate must be positive, got %v", lr)
	}
	if clipNorm <= 0 {
		return nil, errors.Errorf("privacy: clipping norm must be positive, got %v", clipNorm)
	}
	if noiseMultiplier <= 0 {
		return nil, errors.Errorf("privacy: noise multiplier must be positive, got %v", noiseMultiplier)
	}
	if acct == nil {
		return nil, errors.New("privacy: accountant is required")
	}
	return &DPSGD{
		lr:         lr,
		clipNorm:   clipNorm,
		noise:      noiseMultiplier,
		rng:        rng,
		accountant: acct,
	}, nil
}

// Step runs one clipped, noised update over the batch.
func (o *DPSGD) Step(model *nn.Classifier, input [][]int, labels []int) (float64, error) {
	params := model.Params()
	for _, p := range params {
		p.ZeroGrad()
	}

	loss, err := model.EachSampleGrad(input, labels, func(grads []*mat.Dense) {
		var sq float64
		for _, g := range grads {
			sq += nn.FrobeniusSq(g)
		}
		factor := 1.0
		if norm := math.Sqrt(sq); norm > o.clipNorm {
			factor = o.clipNorm / norm
		}
		for i, p := range params {
			nn.AddScaled(p.Grad, grads[i], factor)
		}
	})
	if err != nil {
		return 0, err
	}

	sigma := o.noise * o.clipNorm
	scale := -o.lr / float64(len(labels))
	for _, p := range params {
		data := p.Grad.RawMatrix().Data
		for i := range data {
			data[i] += sigma * o.rng.NormFloat64()
		}
		nn.AddScaled(p.Value, p.Grad, scale)
	}

	o.accountant.Step()
	return loss, nil
}
