package model

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

func testBatch(r *rand.Rand, rows, cols int) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = r.Float64()
	}
	return mat.NewDense(rows, cols, data)
}

func TestACModelForward(t *testing.T) {
	Convey("Given a fresh model", t, func() {
		r := rand.New(rand.NewSource(1))
		m := NewACModel(10, 7, 16, r)
		x := testBatch(r, 4, 10)

		Convey("Forward returns one distribution and value per row", func() {
			dists, values := m.Forward(x)
			So(dists, ShouldHaveLength, 4)
			So(values, ShouldHaveLength, 4)
			for _, d := range dists {
				So(d.Probs, ShouldHaveLength, 7)
			}
		})

		Convey("A model restored from State produces identical outputs", func() {
			other := NewACModel(10, 7, 16, rand.New(rand.NewSource(99)))
			So(other.LoadState(m.State()), ShouldBeNil)
			d1, v1 := m.Forward(x)
			d2, v2 := other.Forward(x)
			So(v2, ShouldResemble, v1)
			So(d2[0].Probs, ShouldResemble, d1[0].Probs)
		})

		Convey("Loading a state with other dimensions fails", func() {
			other := NewACModel(12, 7, 16, r)
			So(other.LoadState(m.State()), ShouldNotBeNil)
		})

		Convey("Params are named uniquely", func() {
			seen := make(map[string]bool)
			for _, p := range m.Params() {
				So(seen[p.Name], ShouldBeFalse)
				seen[p.Name] = true
			}
			So(len(seen), ShouldEqual, 10)
		})
	})
}

func TestACModelBackward(t *testing.T) {
	Convey("Backward matches finite differences of log-prob plus weighted value", t, func() {
		r := rand.New(rand.NewSource(3))
		m := NewACModel(5, 3, 8, r)
		x := testBatch(r, 3, 5)
		actions := []int{0, 2, 1}
		weights := []float64{0.5, -1, 2}

		objective := func() float64 {
			dists, values := m.Forward(x)
			total := 0.0
			for i, d := range dists {
				total += d.LogProb(actions[i]) + weights[i]*values[i]
			}
			return total
		}

		m.ZeroGrad()
		dists, _ := m.Forward(x)
		dLogits := mat.NewDense(3, 3, nil)
		for i, d := range dists {
			dLogits.SetRow(i, d.LogProbGrad(actions[i]))
		}
		m.Backward(dLogits, weights)

		const eps = 1e-6
		for _, p := range m.Params() {
			data := p.Value.RawMatrix().Data
			grads := p.Grad.RawMatrix().Data
			for i := 0; i < len(data); i += 3 {
				orig := data[i]
				data[i] = orig + eps
				plus := objective()
				data[i] = orig - eps
				minus := objective()
				data[i] = orig
				So(grads[i], ShouldAlmostEqual, (plus-minus)/(2*eps), 1e-4)
			}
		}
	})
}
