package trainer

import (
	"context"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/crimson-sun/onoma/internal/encode"
	"github.com/crimson-sun/onoma/internal/nn"
	"github.com/crimson-sun/onoma/internal/privacy"
	"github.com/crimson-sun/onoma/internal/sampler"
)

// A corpus the model can separate quickly: the two categories draw names
// from disjoint halves of the alphabet.
var (
	fixtureCatalog = []string{"Low", "High"}
	fixtureNames   = map[string][]string{
		"Low":  {"abc", "bca", "cab", "aabb", "bcca", "cba"},
		"High": {"xyz", "zyx", "yxz", "xxyy", "zzxy", "yzx"},
	}
)

func fixture(t *testing.T) Options {
	t.Helper()
	a := encode.Default()
	const maxLength = 6

	model, err := nn.New(nn.Config{
		AlphabetSize:  a.Size(),
		EmbeddingSize: 4,
		HiddenSize:    8,
		NumCategories: len(fixtureCatalog),
	}, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("nn.New: %v", err)
	}

	train, err := sampler.NewRandom(a, maxLength, 8, fixtureCatalog, fixtureNames, rand.New(rand.NewSource(9)))
	if err != nil {
		t.Fatalf("NewRandom: %v", err)
	}
	eval, err := sampler.NewExhaustive(a, maxLength, 4, fixtureCatalog, fixtureNames)
	if err != nil {
		t.Fatalf("NewExhaustive: %v", err)
	}

	opt, err := privacy.NewSGD(1.0)
	if err != nil {
		t.Fatalf("NewSGD: %v", err)
	}

	return Options{
		Model:       model,
		Optimizer:   opt,
		Train:       train,
		Eval:        eval,
		Iterations:  300,
		ReportEvery: 100,
		Logger:      slog.Default(),
	}
}

func TestNew_Validation(t *testing.T) {
	opts := fixture(t)
	opts.Model = nil
	if _, err := New(opts); err == nil {
		t.Error("nil model accepted")
	}

	opts = fixture(t)
	opts.Iterations = 0
	if _, err := New(opts); err == nil {
		t.Error("zero iterations accepted")
	}

	opts = fixture(t)
	opts.ReportEvery = 0
	if _, err := New(opts); err == nil {
		t.Error("zero report interval accepted")
	}
}

func TestRun_LearnsSeparableCorpus(t *testing.T) {
	opts := fixture(t)
	tr, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	before, err := tr.Evaluate()
	if err != nil {
		t.Fatalf("Evaluate before training: %v", err)
	}

	if err := tr.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	after, err := tr.Evaluate()
	if err != nil {
		t.Fatalf("Evaluate after training: %v", err)
	}
	if after < 0.75 {
		t.Fatalf("balanced accuracy after training = %v (was %v), want >= 0.75", after, before)
	}
}

func TestRun_PrivateModeReportsAndAccounts(t *testing.T) {
	opts := fixture(t)

	acct, err := privacy.NewAccountant(1.0, 0.5)
	if err != nil {
		t.Fatalf("NewAccountant: %v", err)
	}
	dp, err := privacy.NewDPSGD(0.5, 1.5, 1.0, acct, rand.New(rand.NewSource(4)))
	if err != nil {
		t.Fatalf("NewDPSGD: %v", err)
	}
	opts.Optimizer = dp
	opts.Accountant = acct
	opts.Delta = 8e-5
	opts.Iterations = 20
	opts.ReportEvery = 10

	tr, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tr.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if acct.Steps() != 20 {
		t.Fatalf("accountant recorded %d steps, want 20", acct.Steps())
	}
	eps, _, err := acct.Epsilon(8e-5)
	if err != nil {
		t.Fatalf("Epsilon: %v", err)
	}
	if eps <= 0 {
		t.Fatalf("epsilon = %v, want positive after 20 steps", eps)
	}
}

func TestRun_HonorsCancellation(t *testing.T) {
	opts := fixture(t)
	tr, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tr.Run(ctx); err != context.Canceled {
		t.Fatalf("Run with cancelled context = %v, want context.Canceled", err)
	}
}
