package nn

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Param is a trainable matrix and the gradient accumulated for it.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func NewParam(name string, rows, cols int) *Param {
	return &Param{
		Name:  name,
		Value: mat.NewDense(rows, cols, nil),
		Grad:  mat.NewDense(rows, cols, nil),
	}
}

func (p *Param) ZeroGrad() {
	p.Grad.Zero()
}

// Layer transforms a batch (one sample per row). Backward must follow the
// Forward call of the same batch since layers cache what they need.
type Layer interface {
	Forward(x *mat.Dense) *mat.Dense
	Backward(dOut *mat.Dense) *mat.Dense
	Params() []*Param
}

// Linear computes x*W + b with W of shape (in, out).
type Linear struct {
	In, Out int
	W       *Param
	B       *Param

	input *mat.Dense
}

var _ Layer = &Linear{}

// NewLinear draws each output unit's weights from N(0,1) and scales them to
// unit norm. Biases start at zero.
func NewLinear(name string, in, out int, r *rand.Rand) *Linear {
	l := &Linear{
		In:  in,
		Out: out,
		W:   NewParam(name+".weight", in, out),
		B:   NewParam(name+".bias", 1, out),
	}
	for j := 0; j < out; j++ {
		norm := 0.0
		for i := 0; i < in; i++ {
			v := r.NormFloat64()
			l.W.Value.Set(i, j, v)
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			continue
		}
		for i := 0; i < in; i++ {
			l.W.Value.Set(i, j, l.W.Value.At(i, j)/norm)
		}
	}
	return l
}

func (l *Linear) Forward(x *mat.Dense) *mat.Dense {
	l.input = x
	rows, _ := x.Dims()
	out := mat.NewDense(rows, l.Out, nil)
	out.Mul(x, l.W.Value)
	bias := l.B.Value.RawRowView(0)
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] += bias[j]
		}
	}
	return out
}

func (l *Linear) Backward(dOut *mat.Dense) *mat.Dense {
	var dW mat.Dense
	dW.Mul(l.input.T(), dOut)
	l.W.Grad.Add(l.W.Grad, &dW)

	rows, _ := dOut.Dims()
	bGrad := l.B.Grad.RawRowView(0)
	for i := 0; i < rows; i++ {
		for j, v := range dOut.RawRowView(i) {
			bGrad[j] += v
		}
	}

	dIn := mat.NewDense(rows, l.In, nil)
	dIn.Mul(dOut, l.W.Value.T())
	return dIn
}

func (l *Linear) Params() []*Param {
	return []*Param{l.W, l.B}
}

func (l *Linear) String() string {
	return fmt.Sprintf("Linear(in_features=%d, out_features=%d)", l.In, l.Out)
}

type Tanh struct {
	output *mat.Dense
}

var _ Layer = &Tanh{}

func (t *Tanh) Forward(x *mat.Dense) *mat.Dense {
	out := mat.DenseCopyOf(x)
	out.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, out)
	t.output = out
	return out
}

func (t *Tanh) Backward(dOut *mat.Dense) *mat.Dense {
	dIn := mat.DenseCopyOf(dOut)
	dIn.Apply(func(i, j int, v float64) float64 {
		y := t.output.At(i, j)
		return v * (1 - y*y)
	}, dIn)
	return dIn
}

func (*Tanh) Params() []*Param { return nil }

func (*Tanh) String() string { return "Tanh()" }

type ReLU struct {
	input *mat.Dense
}

var _ Layer = &ReLU{}

func (r *ReLU) Forward(x *mat.Dense) *mat.Dense {
	r.input = x
	out := mat.DenseCopyOf(x)
	out.Apply(func(_, _ int, v float64) float64 { return math.Max(v, 0) }, out)
	return out
}

func (r *ReLU) Backward(dOut *mat.Dense) *mat.Dense {
	dIn := mat.DenseCopyOf(dOut)
	dIn.Apply(func(i, j int, v float64) float64 {
		if r.input.At(i, j) <= 0 {
			return 0
		}
		return v
	}, dIn)
	return dIn
}

func (*ReLU) Params() []*Param { return nil }

func (*ReLU) String() string { return "ReLU()" }

// Sequential chains layers.
type Sequential []Layer

var _ Layer = Sequential{}

func (s Sequential) Forward(x *mat.Dense) *mat.Dense {
	for _, l := range s {
		x = l.Forward(x)
	}
	return x
}

func (s Sequential) Backward(dOut *mat.Dense) *mat.Dense {
	for i := len(s) - 1; i >= 0; i-- {
		dOut = s[i].Backward(dOut)
	}
	return dOut
}

func (s Sequential) Params() []*Param {
	out := make([]*Param, 0)
	for _, l := range s {
		out = append(out, l.Params()...)
	}
	return out
}

func (s Sequential) String() string {
	out := "Sequential(\n"
	for i, l := range s {
		out += fmt.Sprintf("    (%d): %v\n", i, l)
	}
	return out + "  )"
}
