// Package privacy provides the differentially private training machinery:
// optimizers that clip per-sample gradient contributions and add calibrated
// Gaussian noise, and a Renyi-DP accountant tracking the cumulative privacy
// expenditure.
package privacy

import (
	"math"

	"github.com/pkg/errors"
)

// Renyi orders at which the accountant tracks divergence. Integer orders
// keep the subsampled-Gaussian bound exact via the binomial expansion.
const (
	minOrder = 2
	maxOrder = 64
)

// Accountant tracks the Renyi divergence accumulated by repeated
// applications of the Poisson-subsampled Gaussian mechanism. RDP composes
// additively, so the total at each order is linear in the number of steps
// and the reported epsilon is monotone non-decreasing in training length.
type Accountant struct {
	noiseMultiplier float64
	sampleRate      float64
	steps           int

	perStep [maxOrder - minOrder + 1]float64
}

// NewAccountant creates an Accountant for one mechanism configuration:
// noise standard deviation noiseMultiplier*C relative to clipping norm C,
// and per-step sampling probability sampleRate = batchSize/datasetSize.
func NewAccountant(noiseMultiplier, sampleRate float64) (*Accountant, error) {
	if noiseMultiplier <= 0 {
		return nil, errors.Errorf("privacy: noise multiplier must be positive, got %v", noiseMultiplier)
	}
	if sampleRate <= 0 || sampleRate > 1 {
		return nil, errors.Errorf("privacy: sample rate must be in (0,1], got %v", sampleRate)
	}
	a := &Accountant{
		noiseMultiplier: noiseMultiplier,
		sampleRate:      sampleRate,
	}
	for alpha := minOrder; alpha <= maxOrder; alpha++ {
		a.perStep[alpha-minOrder] = rdpSubsampledGaussian(sampleRate, noiseMultiplier, alpha)
	}
	return a, nil
}

// Step records one optimizer step.
func (a *Accountant) Step() {
	a.steps++
}

// Steps returns the number of recorded steps.
func (a *Accountant) Steps() int {
	return a.steps
}

// Epsilon converts the accumulated RDP into an (epsilon, delta) guarantee,
// returning the epsilon and the Renyi order at which the bound is tightest.
func (a *Accountant) Epsilon(delta float64) (float64, int, error) {
	if delta <= 0 || delta >= 1 {
		return 0, 0, errors.Errorf("privacy: delta must be in (0,1), got %v", delta)
	}
	bestEps := math.Inf(1)
	bestOrder := minOrder
	for alpha := minOrder; alpha <= maxOrder; alpha++ {
		rdp := float64(a.steps) * a.perStep[alpha-minOrder]
		eps := rdp - math.Log(delta)/float64(alpha-1)
		if eps < bestEps {
			bestEps = eps
			bestOrder = alpha
		}
	}
	return bestEps, bestOrder, nil
}

// rdpSubsampledGaussian returns the order-alpha RDP of one step of the
// Poisson-subsampled Gaussian mechanism with sampling probability q and
// noise multiplier sigma, via the binomial expansion
//
//	(1/(alpha-1)) * log sum_{k=0}^{alpha} C(alpha,k) (1-q)^(alpha-k) q^k exp(k(k-1)/(2 sigma^2))
//
// evaluated in log space. q=1 reduces to the plain Gaussian bound
// alpha/(2 sigma^2).
func rdpSubsampledGaussian(q, sigma float64, alpha int) float64 {
	if q == 1 {
		return float64(alpha) / (2 * sigma * sigma)
	}
	logSum := math.Inf(-1)
	for k := 0; k <= alpha; k++ {
		term := logBinom(alpha, k) +
			float64(alpha-k)*math.Log1p(-q) +
			float64(k)*math.Log(q) +
			float64(k*(k-1))/(2*sigma*sigma)
		logSum = logAdd(logSum, term)
	}
	return logSum / float64(alpha-1)
}

func logBinom(n, k int) float64 {
	a, _ := math.Lgamma(float64(n + 1))
	b, _ := math.Lgamma(float64(k + 1))
	c, _ := math.Lgamma(float64(n - k + 1))
	return a - b - c
}

// logAdd returns log(exp(a) + exp(b)) without overflow.
func logAdd(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a < b {
		a, b = b, a
	}
	return a + math.Log1p(math.Exp(b-a))
}
