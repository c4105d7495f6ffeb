package nn

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func randomDense(r *rand.Rand, rows, cols int) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = r.NormFloat64()
	}
	return mat.NewDense(rows, cols, data)
}

// weighted sum of the outputs, so the upstream gradient is the weights
func weightedSum(out, w *mat.Dense) float64 {
	var prod mat.Dense
	prod.MulElem(out, w)
	return mat.Sum(&prod)
}

func TestSequentialGradients(t *testing.T) {
	Convey("Given a small Linear/Tanh/Linear network", t, func() {
		r := rand.New(rand.NewSource(7))
		net := Sequential{
			NewLinear("l0", 4, 5, r),
			&Tanh{},
			NewLinear("l1", 5, 3, r),
		}
		x := randomDense(r, 6, 4)
		w := randomDense(r, 6, 3)

		for _, p := range net.Params() {
			p.ZeroGrad()
		}
		net.Forward(x)
		net.Backward(w)

		Convey("Backward matches finite differences for every parameter", func() {
			const eps = 1e-6
			for _, p := range net.Params() {
				data := p.Value.RawMatrix().Data
				grads := p.Grad.RawMatrix().Data
				for i := range data {
					orig := data[i]
					data[i] = orig + eps
					plus := weightedSum(net.Forward(x), w)
					data[i] = orig - eps
					minus := weightedSum(net.Forward(x), w)
					data[i] = orig
					numeric := (plus - minus) / (2 * eps)
					So(grads[i], ShouldAlmostEqual, numeric, 1e-5)
				}
			}
		})
	})
}

func TestLinearInit(t *testing.T) {
	Convey("Each output unit of a fresh Linear has unit norm and zero bias", t, func() {
		l := NewLinear("l", 8, 3, rand.New(rand.NewSource(1)))
		for j := 0; j < 3; j++ {
			norm := 0.0
			for i := 0; i < 8; i++ {
				norm += l.W.Value.At(i, j) * l.W.Value.At(i, j)
			}
			So(norm, ShouldAlmostEqual, 1.0, 1e-9)
			So(l.B.Value.At(0, j), ShouldEqual, 0)
		}
	})
}

func TestReLU(t *testing.T) {
	Convey("ReLU zeroes negative inputs and their gradients", t, func() {
		r := &ReLU{}
		x := mat.NewDense(1, 3, []float64{-1, 0.5, 2})
		out := r.Forward(x)
		So(out.RawRowView(0), ShouldResemble, []float64{0, 0.5, 2})
		d := r.Backward(mat.NewDense(1, 3, []float64{1, 1, 1}))
		So(d.RawRowView(0), ShouldResemble, []float64{0, 1, 1})
	})
}

func TestCategorical(t *testing.T) {
	Convey("Given a categorical over three logits", t, func() {
		logits := []float64{1, 2, 0.5}
		c := NewCategorical(logits)

		Convey("Probabilities sum to one and follow the softmax", func() {
			sum := 0.0
			for _, p := range c.Probs {
				sum += p
			}
			So(sum, ShouldAlmostEqual, 1.0, 1e-12)
			So(c.Argmax(), ShouldEqual, 1)
			So(c.LogProb(1), ShouldAlmostEqual, math.Log(c.Probs[1]), 1e-12)
		})

		Convey("Uniform logits have maximal entropy", func() {
			u := NewCategorical([]float64{3, 3, 3, 3})
			So(u.Entropy(), ShouldAlmostEqual, math.Log(4), 1e-12)
		})

		Convey("Analytic gradients match finite differences", func() {
			const eps = 1e-6
			lp := c.LogProbGrad(2)
			eg := c.EntropyGrad()
			for i := range logits {
				plus := append([]float64(nil), logits...)
				minus := append([]float64(nil), logits...)
				plus[i] += eps
				minus[i] -= eps
				cp, cm := NewCategorical(plus), NewCategorical(minus)
				So(lp[i], ShouldAlmostEqual, (cp.LogProb(2)-cm.LogProb(2))/(2*eps), 1e-6)
				So(eg[i], ShouldAlmostEqual, (cp.Entropy()-cm.Entropy())/(2*eps), 1e-6)
			}
		})

		Convey("Sampling a one-hot distribution is deterministic", func() {
			d := NewCategorical([]float64{-1000, 0, -1000})
			src := rand.NewSource(3)
			for i := 0; i < 20; i++ {
				So(d.Sample(src), ShouldEqual, 1)
			}
		})
	})
}

func TestOptimizers(t *testing.T) {
	newParam := func() *Param {
		p := NewParam("p", 1, 2)
		p.Value.Set(0, 0, 1)
		p.Value.Set(0, 1, -1)
		p.Grad.Set(0, 0, 0.5)
		p.Grad.Set(0, 1, -0.5)
		return p
	}

	Convey("RMSprop and Adam move parameters against the gradient", t, func() {
		for _, opt := range []Optimizer{NewRMSprop(0.01, 0.99, 1e-8), NewAdam(0.01, 1e-8)} {
			p := newParam()
			opt.Step([]*Param{p})
			So(p.Value.At(0, 0), ShouldBeLessThan, 1)
			So(p.Value.At(0, 1), ShouldBeGreaterThan, -1)
		}
	})

	Convey("Restored optimizer state continues identically", t, func() {
		a := NewAdam(0.01, 1e-8)
		pa := newParam()
		a.Step([]*Param{pa})

		b := NewAdam(0.01, 1e-8)
		So(b.LoadState(a.State()), ShouldBeNil)
		pb := NewParam("p", 1, 2)
		pb.Value.Copy(pa.Value)
		pb.Grad.Copy(pa.Grad)

		a.Step([]*Param{pa})
		b.Step([]*Param{pb})
		So(pb.Value.At(0, 0), ShouldEqual, pa.Value.At(0, 0))
		So(pb.Value.At(0, 1), ShouldEqual, pa.Value.At(0, 1))
	})

	Convey("Loading the wrong optimizer kind fails", t, func() {
		err := NewRMSprop(0.01, 0.99, 1e-8).LoadState(NewAdam(0.01, 1e-8).State())
		So(err, ShouldNotBeNil)
	})
}

func TestClipGradNorm(t *testing.T) {
	Convey("ClipGradNorm reports the unclipped norm and rescales", t, func() {
		p := NewParam("p", 1, 2)
		p.Grad.Set(0, 0, 3)
		p.Grad.Set(0, 1, 4)
		norm := ClipGradNorm([]*Param{p}, 0.5)
		So(norm, ShouldAlmostEqual, 5.0, 1e-12)
		clipped := math.Hypot(p.Grad.At(0, 0), p.Grad.At(0, 1))
		So(clipped, ShouldAlmostEqual, 0.5, 1e-6)

		Convey("Small gradients are left alone", func() {
			q := NewParam("q", 1, 1)
			q.Grad.Set(0, 0, 0.1)
			So(ClipGradNorm([]*Param{q}, 0.5), ShouldAlmostEqual, 0.1, 1e-12)
			So(q.Grad.At(0, 0), ShouldEqual, 0.1)
		})
	})
}
