package nn

import (
	"encoding/json"
	"math/rand"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Checkpoint is the JSON-serializable form of a trained classifier plus the
// encoding context needed to use it: the alphabet it was trained over, the
// encoder's max length, and the category catalog in label order.
type Checkpoint struct {
	Alphabet  string               `json:"alphabet"`
	MaxLength int                  `json:"max_length"`
	Catalog   []string             `json:"catalog"`
	Config    Config               `json:"config"`
	Params    map[string]ParamData `json:"params"`
}

// ParamData is one parameter's shape and row-major values.
type ParamData struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// Checkpoint captures the classifier's current weights together with its
// encoding context.
func (c *Classifier) Checkpoint(alphabet string, maxLength int, catalog []string) *Checkpoint {
	params := make(map[string]ParamData, numParams)
	for _, p := range c.params {
		r, cols := p.Value.Dims()
		params[p.Name] = ParamData{
			Rows: r,
			Cols: cols,
			Data: append([]float64(nil), p.Value.RawMatrix().Data...),
		}
	}
	return &Checkpoint{
		Alphabet:  alphabet,
		MaxLength: maxLength,
		Catalog:   append([]string(nil), catalog...),
		Config:    c.cfg,
		Params:    params,
	}
}

// Restore rebuilds a classifier from checkpointed weights.
func (ck *Checkpoint) Restore() (*Classifier, error) {
	c, err := New(ck.Config, rand.New(rand.NewSource(0)))
	if err != nil {
		return nil, err
	}
	for _, p := range c.params {
		data, ok := ck.Params[p.Name]
		if !ok {
			return nil, errors.Errorf("nn: checkpoint missing parameter %s", p.Name)
		}
		r, cols := p.Value.Dims()
		if data.Rows != r || data.Cols != cols || len(data.Data) != r*cols {
			return nil, errors.Errorf("nn: checkpoint parameter %s has shape %dx%d (%d values), want %dx%d",
				p.Name, data.Rows, data.Cols, len(data.Data), r, cols)
		}
		p.Value = mat.NewDense(r, cols, append([]float64(nil), data.Data...))
	}
	return c, nil
}

// Save writes the checkpoint as JSON to path.
func (ck *Checkpoint) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "nn: create checkpoint")
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(ck); err != nil {
		f.Close()
		return errors.Wrap(err, "nn: encode checkpoint")
	}
	return f.Close()
}

// LoadCheckpoint reads a checkpoint written by Save.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "nn: open checkpoint")
	}
	defer f.Close()

	var ck Checkpoint
	if err := json.NewDecoder(f).Decode(&ck); err != nil {
		return nil, errors.Wrap(err, "nn: decode checkpoint")
	}
	if len(ck.Catalog) != ck.Config.NumCategories {
		return nil, errors.Errorf("nn: checkpoint catalog has %d categories, config says %d",
			len(ck.Catalog), ck.Config.NumCategories)
	}
	return &ck, nil
}
