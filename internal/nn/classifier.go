package nn

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Config fixes the classifier architecture. AlphabetSize counts the pad
// index; NumCategories is the catalog length.
type Config struct {
	AlphabetSize  int `json:"alphabet_size"`
	EmbeddingSize int `json:"embedding_size"`
	HiddenSize    int `json:"hidden_size"`
	NumCategories int `json:"num_categories"`
}

func (c Config) validate() error {
	if c.AlphabetSize <= 0 || c.EmbeddingSize <= 0 || c.HiddenSize <= 0 || c.NumCategories <= 0 {
		return errors.Errorf("nn: all dimensions must be positive: %+v", c)
	}
	return nil
}

// Positions of each parameter in Params() order. Gradient slices handed to
// per-sample callbacks use the same order.
const (
	pEmb = iota
	pWxi
	pWhi
	pBi
	pWxf
	pWhf
	pBf
	pWxg
	pWhg
	pBg
	pWxo
	pWho
	pBo
	pWy
	pBy
	numParams
)

const initStd = 0.08

// Classifier is the name-origin model: embedding lookup, one unidirectional
// LSTM layer consuming the sequence time-major from zero-initialized hidden
// and cell state, and a linear projection of the final hidden state to
// per-category scores. The recurrent state is a (hidden, cell) pair fixed
// here at construction; no other state survives between calls.
type Classifier struct {
	cfg    Config
	params [numParams]*Param
}

// New creates a Classifier with weights drawn from N(0, 0.08^2) using rng.
func New(cfg Config, rng *rand.Rand) (*Classifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	v, d, h, k := cfg.AlphabetSize, cfg.EmbeddingSize, cfg.HiddenSize, cfg.NumCategories

	c := &Classifier{cfg: cfg}
	c.params[pEmb] = newParam("embedding", v, d)
	gates := []struct {
		wx, wh, b int
		tag       string
	}{
		{pWxi, pWhi, pBi, "i"},
		{pWxf, pWhf, pBf, "f"},
		{pWxg, pWhg, pBg, "g"},
		{pWxo, pWho, pBo, "o"},
	}
	for _, g := range gates {
		c.params[g.wx] = newParam("lstm.wx_"+g.tag, h, d)
		c.params[g.wh] = newParam("lstm.wh_"+g.tag, h, h)
		c.params[g.b] = newParam("lstm.b_"+g.tag, h, 1)
	}
	c.params[pWy] = newParam("out.w", k, h)
	c.params[pBy] = newParam("out.b", k, 1)

	for _, p := range c.params {
		p.init(rng, initStd)
	}
	return c, nil
}

// Config returns the architecture the classifier was built with.
func (c *Classifier) Config() Config {
	return c.cfg
}

// Params returns all learnable parameters in a fixed order.
func (c *Classifier) Params() []*Param {
	return c.params[:]
}

// Forward runs the batch through the network and returns the score matrix
// [batchSize x NumCategories]. Input is the time-major index matrix from the
// encoder; every index must be below AlphabetSize.
func (c *Classifier) Forward(input [][]int) (*mat.Dense, error) {
	batchSize, err := c.checkInput(input)
	if err != nil {
		return nil, err
	}
	scores := mat.NewDense(batchSize, c.cfg.NumCategories, nil)
	ids := make([]int, len(input))
	for b := 0; b < batchSize; b++ {
		c.sampleIDs(input, b, ids)
		cache := c.forwardSample(ids)
		scores.SetRow(b, cache.scores.RawVector().Data)
	}
	return scores, nil
}

// Predict returns the arg-max category index per sample.
func (c *Classifier) Predict(input [][]int) ([]int, error) {
	scores, err := c.Forward(input)
	if err != nil {
		return nil, err
	}
	batchSize, _ := scores.Dims()
	preds := make([]int, batchSize)
	for b := 0; b < batchSize; b++ {
		preds[b] = argmax(scores.RawRowView(b))
	}
	return preds, nil
}

// EachSampleGrad runs forward and backward over the batch and invokes fn
// with every sample's loss gradients, aligned with Params() order. The
// gradient buffers are reused between samples; fn must consume them before
// returning. Returns the mean cross-entropy loss over the batch.
func (c *Classifier) EachSampleGrad(input [][]int, labels []int, fn func(grads []*mat.Dense)) (float64, error) {
	batchSize, err := c.checkInput(input)
	if err != nil {
		return 0, err
	}
	if len(labels) != batchSize {
		return 0, errors.Errorf("nn: %d labels for batch of %d", len(labels), batchSize)
	}
	for _, y := range labels {
		if y < 0 || y >= c.cfg.NumCategories {
			return 0, errors.Errorf("nn: label %d out of range [0,%d)", y, c.cfg.NumCategories)
		}
	}

	grads := make([]*mat.Dense, numParams)
	for i, p := range c.params {
		r, cols := p.Value.Dims()
		grads[i] = mat.NewDense(r, cols, nil)
	}

	var totalLoss float64
	ids := make([]int, len(input))
	for b := 0; b < batchSize; b++ {
		c.sampleIDs(input, b, ids)
		cache := c.forwardSample(ids)

		probs, loss := softmaxLoss(cache.scores, labels[b])
		totalLoss += loss

		for _, g := range grads {
			zero(g)
		}
		c.backwardSample(cache, probs, labels[b], grads)
		fn(grads)
	}
	return totalLoss / float64(batchSize), nil
}

func (c *Classifier) checkInput(input [][]int) (int, error) {
	if len(input) == 0 || len(input[0]) == 0 {
		return 0, errors.New("nn: empty input")
	}
	batchSize := len(input[0])
	for t, row := range input {
		if len(row) != batchSize {
			return 0, errors.Errorf("nn: ragged input at row %d: %d != %d", t, len(row), batchSize)
		}
		for _, id := range row {
			if id < 0 || id >= c.cfg.AlphabetSize {
				return 0, errors.Errorf("nn: index %d out of range [0,%d)", id, c.cfg.AlphabetSize)
			}
		}
	}
	return batchSize, nil
}

// sampleIDs copies column b of the time-major input into ids.
func (c *Classifier) sampleIDs(input [][]int, b int, ids []int) {
	for t := range input {
		ids[t] = input[t][b]
	}
}

func zero(m *mat.Dense) {
	data := m.RawMatrix().Data
	for i := range data {
		data[i] = 0
	}
}

func argmax(xs []float64) int {
	best := 0
	for i, v := range xs {
		if v > xs[best] {
			best = i
		}
	}
	return best
}

// softmaxLoss returns the softmax probabilities of the score vector and the
// cross-entropy loss against the integer label, computed in a numerically
// stable form.
func softmaxLoss(scores *mat.VecDense, label int) ([]float64, float64) {
	n := scores.Len()
	maxScore := math.Inf(-1)
	for i := 0; i < n; i++ {
		if s := scores.AtVec(i); s > maxScore {
			maxScore = s
		}
	}
	var sum float64
	probs := make([]float64, n)
	for i := 0; i < n; i++ {
		probs[i] = math.Exp(scores.AtVec(i) - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	loss := maxScore + math.Log(sum) - scores.AtVec(label)
	return probs, loss
}
