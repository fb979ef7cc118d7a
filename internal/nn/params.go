package nn

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Param is one learnable parameter matrix together with its gradient
// accumulator. Vectors (biases) are column matrices. The optimizer owns
// Grad's lifecycle: it zeroes, fills, and consumes it each step.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func newParam(name string, rows, cols int) *Param {
	return &Param{
		Name:  name,
		Value: mat.NewDense(rows, cols, nil),
		Grad:  mat.NewDense(rows, cols, nil),
	}
}

// init fills Value with draws from N(0, std^2).
func (p *Param) init(rng *rand.Rand, std float64) {
	data := p.Value.RawMatrix().Data
	for i := range data {
		data[i] = rng.NormFloat64() * std
	}
}

// ZeroGrad clears the gradient accumulator.
func (p *Param) ZeroGrad() {
	data := p.Grad.RawMatrix().Data
	for i := range data {
		data[i] = 0
	}
}

// Size returns the number of scalar entries in the parameter.
func (p *Param) Size() int {
	r, c := p.Value.Dims()
	return r * c
}

// AddScaled computes dst += alpha*src for equally-shaped dense matrices.
func AddScaled(dst, src *mat.Dense, alpha float64) {
	d := dst.RawMatrix().Data
	s := src.RawMatrix().Data
	for i := range d {
		d[i] += alpha * s[i]
	}
}

// FrobeniusSq returns the squared Frobenius norm of m.
func FrobeniusSq(m *mat.Dense) float64 {
	var sum float64
	for _, v := range m.RawMatrix().Data {
		sum += v * v
	}
	return sum
}
