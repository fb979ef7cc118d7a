package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// sampleCache holds one sample's forward activations, kept for
// backpropagation through time.
type sampleCache struct {
	ids    []int
	xs     []*mat.VecDense // embedded inputs, per step
	is     []*mat.VecDense // input gate
	fs     []*mat.VecDense // forget gate
	gs     []*mat.VecDense // candidate cell
	os     []*mat.VecDense // output gate
	cs     []*mat.VecDense // cell state
	hs     []*mat.VecDense // hidden state
	scores *mat.VecDense
}

// forwardSample runs the full sequence for one sample. Hidden and cell state
// start at zero.
func (c *Classifier) forwardSample(ids []int) *sampleCache {
	T := len(ids)
	h, d := c.cfg.HiddenSize, c.cfg.EmbeddingSize

	cache := &sampleCache{
		ids: append([]int(nil), ids...),
		xs:  make([]*mat.VecDense, T),
		is:  make([]*mat.VecDense, T),
		fs:  make([]*mat.VecDense, T),
		gs:  make([]*mat.VecDense, T),
		os:  make([]*mat.VecDense, T),
		cs:  make([]*mat.VecDense, T),
		hs:  make([]*mat.VecDense, T),
	}

	hPrev := mat.NewVecDense(h, nil)
	cPrev := mat.NewVecDense(h, nil)
	tmp := mat.NewVecDense(h, nil)

	for t := 0; t < T; t++ {
		x := mat.NewVecDense(d, nil)
		x.CopyVec(c.params[pEmb].Value.RowView(ids[t]))
		cache.xs[t] = x

		iGate := c.gate(pWxi, pWhi, pBi, x, hPrev, tmp)
		fGate := c.gate(pWxf, pWhf, pBf, x, hPrev, tmp)
		gCand := c.gate(pWxg, pWhg, pBg, x, hPrev, tmp)
		oGate := c.gate(pWxo, pWho, pBo, x, hPrev, tmp)
		applySigmoid(iGate)
		applySigmoid(fGate)
		applyTanh(gCand)
		applySigmoid(oGate)

		cell := mat.NewVecDense(h, nil)
		hidden := mat.NewVecDense(h, nil)
		for j := 0; j < h; j++ {
			cj := fGate.AtVec(j)*cPrev.AtVec(j) + iGate.AtVec(j)*gCand.AtVec(j)
			cell.SetVec(j, cj)
			hidden.SetVec(j, oGate.AtVec(j)*math.Tanh(cj))
		}

		cache.is[t] = iGate
		cache.fs[t] = fGate
		cache.gs[t] = gCand
		cache.os[t] = oGate
		cache.cs[t] = cell
		cache.hs[t] = hidden
		hPrev, cPrev = hidden, cell
	}

	// Only the final step's hidden output feeds the projection.
	scores := mat.NewVecDense(c.cfg.NumCategories, nil)
	scores.MulVec(c.params[pWy].Value, hPrev)
	scores.AddVec(scores, c.params[pBy].Value.ColView(0))
	cache.scores = scores
	return cache
}

// gate computes wx*x + wh*h + b into a fresh vector.
func (c *Classifier) gate(wx, wh, b int, x, hPrev, tmp *mat.VecDense) *mat.VecDense {
	pre := mat.NewVecDense(c.cfg.HiddenSize, nil)
	pre.MulVec(c.params[wx].Value, x)
	tmp.MulVec(c.params[wh].Value, hPrev)
	pre.AddVec(pre, tmp)
	pre.AddVec(pre, c.params[b].Value.ColView(0))
	return pre
}

// backwardSample accumulates one sample's gradients into grads, aligned with
// Params() order. probs is the softmax of the sample's scores.
func (c *Classifier) backwardSample(cache *sampleCache, probs []float64, label int, grads []*mat.Dense) {
	T := len(cache.ids)
	h, k := c.cfg.HiddenSize, c.cfg.NumCategories

	// Output layer: dscores = probs - onehot(label).
	dy := mat.NewVecDense(k, nil)
	for j := 0; j < k; j++ {
		dy.SetVec(j, probs[j])
	}
	dy.SetVec(label, dy.AtVec(label)-1)

	hLast := cache.hs[T-1]
	grads[pWy].RankOne(grads[pWy], 1, dy, hLast)
	addToCol(grads[pBy], dy)

	dh := mat.NewVecDense(h, nil)
	dh.MulVec(c.params[pWy].Value.T(), dy)
	dc := mat.NewVecDense(h, nil)

	dpreI := mat.NewVecDense(h, nil)
	dpreF := mat.NewVecDense(h, nil)
	dpreG := mat.NewVecDense(h, nil)
	dpreO := mat.NewVecDense(h, nil)
	tmp := mat.NewVecDense(h, nil)
	dx := mat.NewVecDense(c.cfg.EmbeddingSize, nil)

	zeroVec := mat.NewVecDense(h, nil)

	for t := T - 1; t >= 0; t-- {
		cPrev, hPrev := zeroVec, zeroVec
		if t > 0 {
			cPrev, hPrev = cache.cs[t-1], cache.hs[t-1]
		}

		for j := 0; j < h; j++ {
			iv := cache.is[t].AtVec(j)
			fv := cache.fs[t].AtVec(j)
			gv := cache.gs[t].AtVec(j)
			ov := cache.os[t].AtVec(j)
			tc := math.Tanh(cache.cs[t].AtVec(j))
			dhj := dh.AtVec(j)

			dcj := dc.AtVec(j) + dhj*ov*(1-tc*tc)
			dpreO.SetVec(j, dhj*tc*ov*(1-ov))
			dpreI.SetVec(j, dcj*gv*iv*(1-iv))
			dpreG.SetVec(j, dcj*iv*(1-gv*gv))
			dpreF.SetVec(j, dcj*cPrev.AtVec(j)*fv*(1-fv))
			dc.SetVec(j, dcj*fv)
		}

		x := cache.xs[t]
		for _, g := range []struct {
			wx, wh, b int
			dpre      *mat.VecDense
		}{
			{pWxi, pWhi, pBi, dpreI},
			{pWxf, pWhf, pBf, dpreF},
			{pWxg, pWhg, pBg, dpreG},
			{pWxo, pWho, pBo, dpreO},
		} {
			grads[g.wx].RankOne(grads[g.wx], 1, g.dpre, x)
			grads[g.wh].RankOne(grads[g.wh], 1, g.dpre, hPrev)
			addToCol(grads[g.b], g.dpre)
		}

		// Propagate to the previous step and the embedded input.
		dh.MulVec(c.params[pWhi].Value.T(), dpreI)
		tmp.MulVec(c.params[pWhf].Value.T(), dpreF)
		dh.AddVec(dh, tmp)
		tmp.MulVec(c.params[pWhg].Value.T(), dpreG)
		dh.AddVec(dh, tmp)
		tmp.MulVec(c.params[pWho].Value.T(), dpreO)
		dh.AddVec(dh, tmp)

		dx.MulVec(c.params[pWxi].Value.T(), dpreI)
		dxTmp := mat.NewVecDense(c.cfg.EmbeddingSize, nil)
		dxTmp.MulVec(c.params[pWxf].Value.T(), dpreF)
		dx.AddVec(dx, dxTmp)
		dxTmp.MulVec(c.params[pWxg].Value.T(), dpreG)
		dx.AddVec(dx, dxTmp)
		dxTmp.MulVec(c.params[pWxo].Value.T(), dpreO)
		dx.AddVec(dx, dxTmp)

		embRow := cache.ids[t]
		for j := 0; j < c.cfg.EmbeddingSize; j++ {
			grads[pEmb].Set(embRow, j, grads[pEmb].At(embRow, j)+dx.AtVec(j))
		}
	}
}

func applySigmoid(v *mat.VecDense) {
	data := v.RawVector().Data
	for i := range data {
		data[i] = 1 / (1 + math.Exp(-data[i]))
	}
}

func applyTanh(v *mat.VecDense) {
	data := v.RawVector().Data
	for i := range data {
		data[i] = math.Tanh(data[i])
	}
}

// addToCol adds v into the single-column matrix b.
func addToCol(b *mat.Dense, v *mat.VecDense) {
	for j := 0; j < v.Len(); j++ {
		b.Set(j, 0, b.At(j, 0)+v.AtVec(j))
	}
}
