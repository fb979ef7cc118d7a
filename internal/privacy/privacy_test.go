package privacy

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/crimson-sun/onoma/internal/nn"
)

func TestNewAccountant_Validation(t *testing.T) {
	tests := []struct {
		name  string
		noise float64
		q     float64
	}{
		{"zero noise", 0, 0.1},
		{"negative noise", -1, 0.1},
		{"zero sample rate", 1, 0},
		{"sample rate above one", 1, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAccountant(tt.noise, tt.q); err == nil {
				t.Fatalf("NewAccountant(%v, %v) succeeded, want error", tt.noise, tt.q)
			}
		})
	}
}

// Epsilon must never decrease as more steps accumulate.
func TestEpsilon_MonotoneInSteps(t *testing.T) {
	a, err := NewAccountant(1.0, 0.05)
	if err != nil {
		t.Fatalf("NewAccountant: %v", err)
	}

	prev := -math.MaxFloat64
	for i := 0; i < 200; i++ {
		eps, order, err := a.Epsilon(8e-5)
		if err != nil {
			t.Fatalf("Epsilon: %v", err)
		}
		if eps < prev {
			t.Fatalf("epsilon decreased at step %d: %v -> %v", i, prev, eps)
		}
		if order < minOrder || order > maxOrder {
			t.Fatalf("order %d outside [%d,%d]", order, minOrder, maxOrder)
		}
		prev = eps
		a.Step()
	}
}

// More noise must cost less privacy; a higher sampling rate must cost more.
func TestRDP_Ordering(t *testing.T) {
	quiet, _ := NewAccountant(2.0, 0.05)
	loud, _ := NewAccountant(0.5, 0.05)
	for i := 0; i < 100; i++ {
		quiet.Step()
		loud.Step()
	}
	eq, _, _ := quiet.Epsilon(1e-5)
	el, _, _ := loud.Epsilon(1e-5)
	if eq >= el {
		t.Fatalf("sigma=2 epsilon %v not below sigma=0.5 epsilon %v", eq, el)
	}

	rare, _ := NewAccountant(1.0, 0.01)
	often, _ := NewAccountant(1.0, 0.5)
	for i := 0; i < 100; i++ {
		rare.Step()
		often.Step()
	}
	er, _, _ := rare.Epsilon(1e-5)
	eo, _, _ := often.Epsilon(1e-5)
	if er >= eo {
		t.Fatalf("q=0.01 epsilon %v not below q=0.5 epsilon %v", er, eo)
	}
}

// Full sampling reduces to the plain Gaussian mechanism bound alpha/(2 sigma^2).
func TestRDP_FullSamplingGaussianBound(t *testing.T) {
	sigma := 1.5
	for alpha := minOrder; alpha <= maxOrder; alpha++ {
		got := rdpSubsampledGaussian(1.0, sigma, alpha)
		want := float64(alpha) / (2 * sigma * sigma)
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("alpha=%d: rdp %v, want %v", alpha, got, want)
		}
	}
}

func TestEpsilon_RejectsBadDelta(t *testing.T) {
	a, _ := NewAccountant(1.0, 0.1)
	for _, delta := range []float64{0, 1, -0.5, 2} {
		if _, _, err := a.Epsilon(delta); err == nil {
			t.Errorf("Epsilon(%v) succeeded, want error", delta)
		}
	}
}

func trainingFixture(t *testing.T) (*nn.Classifier, [][]int, []int) {
	t.Helper()
	cfg := nn.Config{AlphabetSize: 6, EmbeddingSize: 4, HiddenSize: 6, NumCategories: 2}
	model, err := nn.New(cfg, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatalf("nn.New: %v", err)
	}
	// Two easily separable patterns.
	input := [][]int{
		{0, 3, 0, 3},
		{1, 4, 1, 4},
		{2, 5, 2, 5},
	}
	labels := []int{0, 1, 0, 1}
	return model, input, labels
}

func TestSGD_ReducesLoss(t *testing.T) {
	model, input, labels := trainingFixture(t)
	opt, err := NewSGD(0.5)
	if err != nil {
		t.Fatalf("NewSGD: %v", err)
	}

	first, err := opt.Step(model, input, labels)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	var last float64
	for i := 0; i < 60; i++ {
		last, err = opt.Step(model, input, labels)
		if err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if last >= first {
		t.Fatalf("loss did not improve: first %v, last %v", first, last)
	}
}

// With an enormous clip bound and negligible noise, DP-SGD must match plain
// SGD almost exactly.
func TestDPSGD_ApproachesSGDWithLooseBudget(t *testing.T) {
	modelA, input, labels := trainingFixture(t)
	modelB, _, _ := trainingFixture(t)

	sgd, _ := NewSGD(0.5)
	acct, err := NewAccountant(1e-12, 0.5)
	if err != nil {
		t.Fatalf("NewAccountant: %v", err)
	}
	// Noise sigma is noise*clip = 1e-9, far below the comparison tolerance.
	dp, err := NewDPSGD(0.5, 1e3, 1e-12, acct, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewDPSGD: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := sgd.Step(modelA, input, labels); err != nil {
			t.Fatalf("sgd step: %v", err)
		}
		if _, err := dp.Step(modelB, input, labels); err != nil {
			t.Fatalf("dp step: %v", err)
		}
	}

	pa := modelA.Params()
	pb := modelB.Params()
	for i := range pa {
		if !mat.EqualApprox(pa[i].Value, pb[i].Value, 1e-6) {
			t.Fatalf("parameter %s diverged between SGD and loose DP-SGD", pa[i].Name)
		}
	}
	if acct.Steps() != 5 {
		t.Fatalf("accountant recorded %d steps, want 5", acct.Steps())
	}
}

// Clipping bounds every sample's contribution: with clip C and zero-ish
// noise, the aggregated gradient norm can not exceed batchSize*C.
func TestDPSGD_ClipsPerSampleContributions(t *testing.T) {
	model, input, labels := trainingFixture(t)

	const clip = 1e-3
	acct, _ := NewAccountant(1e-9, 0.5)
	dp, err := NewDPSGD(1.0, clip, 1e-9, acct, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("NewDPSGD: %v", err)
	}

	before := make([]*mat.Dense, 0, len(model.Params()))
	for _, p := range model.Params() {
		var cp mat.Dense
		cp.CloneFrom(p.Value)
		before = append(before, &cp)
	}

	if _, err := dp.Step(model, input, labels); err != nil {
		t.Fatalf("Step: %v", err)
	}

	// Reconstruct the applied update and bound its total norm.
	var sq float64
	for i, p := range model.Params() {
		var diff mat.Dense
		diff.Sub(p.Value, before[i])
		sq += nn.FrobeniusSq(&diff)
	}
	// update = lr/n * sum of clipped grads, so |update| <= lr * clip.
	bound := 1.0*clip + 1e-6
	if math.Sqrt(sq) > bound {
		t.Fatalf("update norm %v exceeds clipping bound %v", math.Sqrt(sq), bound)
	}
}

func TestNewDPSGD_Validation(t *testing.T) {
	acct, _ := NewAccountant(1, 0.1)
	rng := rand.New(rand.NewSource(1))
	if _, err := NewDPSGD(0, 1, 1, acct, rng); err == nil {
		t.Error("zero learning rate accepted")
	}
	if _, err := NewDPSGD(1, 0, 1, acct, rng); err == nil {
		t.Error("zero clip norm accepted")
	}
	if _, err := NewDPSGD(1, 1, 0, acct, rng); err == nil {
		t.Error("zero noise accepted")
	}
	if _, err := NewDPSGD(1, 1, 1, nil, rng); err == nil {
		t.Error("nil accountant accepted")
	}
}
