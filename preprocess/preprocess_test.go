package preprocess

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jesbu1/rl-starter-files/core"
	. "github.com/smartystreets/goconvey/convey"
)

func TestVocabulary(t *testing.T) {
	Convey("Given an empty vocabulary", t, func() {
		v := NewVocabulary(3)

		Convey("Words get stable indices starting at one", func() {
			a, _ := v.Index("get")
			b, _ := v.Index("goal")
			again, _ := v.Index("get")
			So(a, ShouldEqual, 1)
			So(b, ShouldEqual, 2)
			So(again, ShouldEqual, 1)
			So(v.Map(), ShouldResemble, map[string]int{"get": 1, "goal": 2})
		})

		Convey("Adding past capacity fails", func() {
			for i := 0; i < 3; i++ {
				_, err := v.Index(fmt.Sprintf("w%c", 'a'+i))
				So(err, ShouldBeNil)
			}
			_, err := v.Index("overflow")
			So(errors.Is(err, ErrVocabFull), ShouldBeTrue)
		})

		Convey("A loaded vocabulary keeps its indices", func() {
			v.Load(map[string]int{"lava": 7})
			i, _ := v.Index("lava")
			So(i, ShouldEqual, 7)
		})
	})

	Convey("Tokenize keeps lower-case words only", t, func() {
		So(Tokenize("Get to the GREEN goal-square, 2x!"), ShouldResemble,
			[]string{"get", "to", "the", "green", "goal", "square", "x"})
	})
}

func TestObssPreprocessor(t *testing.T) {
	obs := core.Observation{
		Image:   []uint8{10, 5, 0, 2, 0, 1},
		Width:   2,
		Height:  1,
		Mission: "go go left",
	}

	Convey("Images are scaled", t, func() {
		p := New(2, 1, false, nil)
		x, err := p.Preprocess([]core.Observation{obs, obs})
		So(err, ShouldBeNil)
		rows, cols := x.Dims()
		So(rows, ShouldEqual, 2)
		So(cols, ShouldEqual, 6)
		So(x.At(0, 0), ShouldAlmostEqual, 1.0, 1e-12)
		So(x.At(1, 1), ShouldAlmostEqual, 0.5, 1e-12)
	})

	Convey("Missions become a normalized bag of words", t, func() {
		p := New(2, 1, true, nil)
		So(p.Size(), ShouldEqual, 6+VocabMaxSize)
		x, err := p.Preprocess([]core.Observation{obs})
		So(err, ShouldBeNil)
		So(x.At(0, 6), ShouldAlmostEqual, 2.0/3.0, 1e-12)
		So(x.At(0, 7), ShouldAlmostEqual, 1.0/3.0, 1e-12)
		So(p.Vocab.Map(), ShouldResemble, map[string]int{"go": 1, "left": 2})
	})

	Convey("Wrong image sizes and empty batches are rejected", t, func() {
		p := New(3, 3, false, nil)
		_, err := p.Preprocess([]core.Observation{obs})
		So(errors.Is(err, ErrShapeMismatch), ShouldBeTrue)
		_, err = p.Preprocess(nil)
		So(err, ShouldEqual, ErrNoObservation)
	})
}
