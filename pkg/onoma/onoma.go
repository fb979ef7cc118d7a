package onoma

import (
	"math"

	"github.com/pkg/errors"

	"github.com/crimson-sun/onoma/internal/dataset"
	"github.com/crimson-sun/onoma/internal/encode"
	"github.com/crimson-sun/onoma/internal/nn"
)

// Option configures a Classifier.
type Option func(*options)

type options struct {
	checkpointPath string
}

func defaultOptions() options {
	return options{
		checkpointPath: "models/onoma.json",
	}
}

// WithCheckpoint sets the checkpoint file to load.
func WithCheckpoint(path string) Option {
	return func(o *options) { o.checkpointPath = path }
}

// Prediction is the outcome of classifying one name.
type Prediction struct {
	Category   string
	Confidence float64            // softmax probability of the top category
	Scores     map[string]float64 // raw score per category
}

// Classifier serves predictions from a trained checkpoint. Create once and
// reuse; it holds the full parameter set in memory.
type Classifier struct {
	model     *nn.Classifier
	alphabet  *encode.Alphabet
	maxLength int
	catalog   []string
}

// New loads a checkpoint and builds a ready-to-use Classifier.
func New(opts ...Option) (*Classifier, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ck, err := nn.LoadCheckpoint(o.checkpointPath)
	if err != nil {
		return nil, errors.Wrap(err, "onoma")
	}
	model, err := ck.Restore()
	if err != nil {
		return nil, errors.Wrap(err, "onoma")
	}
	alphabet, err := encode.NewAlphabet(ck.Alphabet)
	if err != nil {
		return nil, errors.Wrap(err, "onoma")
	}

	return &Classifier{
		model:     model,
		alphabet:  alphabet,
		maxLength: ck.MaxLength,
		catalog:   ck.Catalog,
	}, nil
}

// Catalog returns the categories the model distinguishes, in label order.
func (c *Classifier) Catalog() []string {
	return c.catalog
}

// Classify predicts the language of origin for a single name.
func (c *Classifier) Classify(name string) (Prediction, error) {
	preds, err := c.ClassifyBatch([]string{name})
	if err != nil {
		return Prediction{}, err
	}
	return preds[0], nil
}

// ClassifyBatch predicts categories for several names in one forward pass.
func (c *Classifier) ClassifyBatch(names []string) ([]Prediction, error) {
	if len(names) == 0 {
		return nil, errors.New("onoma: no names given")
	}

	normalized := make([]string, len(names))
	for i, name := range names {
		n := dataset.NormalizeName(c.alphabet, name)
		if n == "" {
			return nil, errors.Errorf("onoma: name %q has no characters in the model alphabet", name)
		}
		normalized[i] = n
	}

	input, err := encode.Names(c.alphabet, normalized, c.maxLength)
	if err != nil {
		return nil, errors.Wrap(err, "onoma")
	}
	scores, err := c.model.Forward(input)
	if err != nil {
		return nil, errors.Wrap(err, "onoma")
	}

	preds := make([]Prediction, len(names))
	for b := range names {
		row := scores.RawRowView(b)
		preds[b] = c.prediction(row)
	}
	return preds, nil
}

func (c *Classifier) prediction(row []float64) Prediction {
	best := 0
	maxScore := row[0]
	for i, s := range row {
		if s > maxScore {
			best = i
			maxScore = s
		}
	}

	var sum float64
	for _, s := range row {
		sum += math.Exp(s - maxScore)
	}

	scores := make(map[string]float64, len(c.catalog))
	for i, category := range c.catalog {
		scores[category] = row[i]
	}

	return Prediction{
		Category:   c.catalog[best],
		Confidence: 1 / sum,
		Scores:     scores,
	}
}
