package minigrid

import (
	"errors"
	"strings"
	"testing"

	"github.com/jesbu1/rl-starter-files/core"
	. "github.com/smartystreets/goconvey/convey"
)

// cell returns the encoded view cell at (x, y).
func cell(obs core.Observation, x, y int) [3]uint8 {
	k := (x*obs.Height + y) * 3
	return [3]uint8{obs.Image[k], obs.Image[k+1], obs.Image[k+2]}
}

func mustEnv(id string, seed int64) *Env {
	c, err := Make(id)
	if err != nil {
		panic(err)
	}
	return c.New(seed)
}

func TestEmpty(t *testing.T) {
	Convey("Given MiniGrid-Empty-5x5", t, func() {
		env := mustEnv("MiniGrid-Empty-5x5-v0", 1)
		obs, err := env.Reset()
		So(err, ShouldBeNil)

		Convey("The agent starts top-left facing right", func() {
			So(env.AgentPos, ShouldResemble, Point{1, 1})
			So(obs.Direction, ShouldEqual, 0)
			So(obs.Mission, ShouldEqual, "get to the green goal square")
			So(obs.Image, ShouldHaveLength, AgentViewSize*AgentViewSize*3)
		})

		Convey("The agent sees an empty cell ahead and a wall after turning left", func() {
			So(cell(obs, 3, 6), ShouldResemble, [3]uint8{uint8(EmptyCell), 0, 0})
			So(cell(obs, 3, 5), ShouldResemble, [3]uint8{uint8(EmptyCell), 0, 0})
			res, err := env.Step(ActionLeft)
			So(err, ShouldBeNil)
			So(res.Observation.Direction, ShouldEqual, 3)
			So(cell(res.Observation, 3, 5), ShouldResemble, [3]uint8{uint8(Wall), uint8(Grey), 0})
		})

		Convey("Cells behind the wall are unseen", func() {
			res, _ := env.Step(ActionLeft)
			So(cell(res.Observation, 3, 0), ShouldResemble, [3]uint8{uint8(Unseen), 0, 0})
		})

		Convey("Reaching the goal terminates with a step-discounted reward", func() {
			for _, a := range []core.Action{ActionForward, ActionForward, ActionRight, ActionForward} {
				res, err := env.Step(a)
				So(err, ShouldBeNil)
				So(res.Done(), ShouldBeFalse)
			}
			res, err := env.Step(ActionForward)
			So(err, ShouldBeNil)
			So(res.Terminated, ShouldBeTrue)
			So(res.Reward, ShouldAlmostEqual, 1-0.9*5.0/100.0, 1e-12)
			So(env.AgentPos, ShouldResemble, Point{3, 3})
		})

		Convey("Walls block movement", func() {
			env.Step(ActionLeft)
			env.Step(ActionForward)
			So(env.AgentPos, ShouldResemble, Point{1, 1})
		})

		Convey("Episodes are truncated at MaxSteps", func() {
			var res core.StepResult
			for i := 0; i < env.MaxSteps; i++ {
				res, _ = env.Step(ActionLeft)
			}
			So(res.Truncated, ShouldBeTrue)
			So(res.Terminated, ShouldBeFalse)
			So(res.Reward, ShouldEqual, 0)
		})

		Convey("Unknown actions are rejected", func() {
			_, err := env.Step(core.Action(42))
			So(errors.Is(err, ErrUnknownAction), ShouldBeTrue)
		})

		Convey("Render shows the agent and the goal", func() {
			out := env.Render()
			So(out, ShouldContainSubstring, ">")
			So(out, ShouldContainSubstring, "G")
			So(strings.Count(out, "\n"), ShouldEqual, 5)
		})
	})
}

func TestDoorKey(t *testing.T) {
	Convey("Given a DoorKey layout", t, func() {
		env := mustEnv("MiniGrid-DoorKey-6x6-v0", 4)
		_, err := env.Reset()
		So(err, ShouldBeNil)

		doors, keys := 0, 0
		for x := 0; x < env.Width; x++ {
			for y := 0; y < env.Height; y++ {
				if o := env.Grid.Get(x, y); o != nil {
					switch o.Type {
					case Door:
						doors++
						So(o.Locked, ShouldBeTrue)
					case Key:
						keys++
					}
				}
			}
		}
		So(doors, ShouldEqual, 1)
		So(keys, ShouldEqual, 1)

		Convey("A locked door only opens with the matching key", func() {
			env.Grid = NewGrid(5, 5)
			env.Grid.WallRect(0, 0, 5, 5)
			env.AgentPos = Point{1, 2}
			env.AgentDir = 0
			env.Grid.Set(2, 2, NewKey(Yellow))
			env.Grid.Set(3, 2, NewDoor(Yellow, true))

			env.Step(ActionPickup)
			So(env.Carrying, ShouldNotBeNil)
			So(env.Grid.Get(2, 2), ShouldBeNil)

			env.Step(ActionForward)
			So(env.AgentPos, ShouldResemble, Point{2, 2})
			env.Step(ActionForward)
			So(env.AgentPos, ShouldResemble, Point{2, 2})

			res, _ := env.Step(ActionToggle)
			So(env.Grid.Get(3, 2).Open, ShouldBeTrue)
			So(cell(res.Observation, 3, 5), ShouldResemble, [3]uint8{uint8(Door), uint8(Yellow), doorOpen})
			So(cell(res.Observation, 3, 6), ShouldResemble, [3]uint8{uint8(Key), uint8(Yellow), 0})

			env.Step(ActionForward)
			So(env.AgentPos, ShouldResemble, Point{3, 2})
		})

		Convey("The wrong key leaves the door locked", func() {
			door := NewDoor(Yellow, true)
			So(door.Toggle(NewKey(Blue)), ShouldBeFalse)
			So(door.Toggle(nil), ShouldBeFalse)
			So(door.Locked, ShouldBeTrue)
		})

		Convey("A dropped key lands in front of the agent", func() {
			env.Grid = NewGrid(5, 5)
			env.Grid.WallRect(0, 0, 5, 5)
			env.AgentPos = Point{1, 1}
			env.AgentDir = 1
			env.Carrying = NewKey(Red)
			env.Step(ActionDrop)
			So(env.Carrying, ShouldBeNil)
			So(env.Grid.Get(1, 2).Type, ShouldEqual, Key)
		})
	})
}

func TestLavaGap(t *testing.T) {
	Convey("Stepping into lava ends the episode without reward", t, func() {
		env := mustEnv("MiniGrid-LavaGapS5-v0", 2)
		_, err := env.Reset()
		So(err, ShouldBeNil)

		env.Grid.Set(2, 1, NewLava())
		res, err := env.Step(ActionForward)
		So(err, ShouldBeNil)
		So(res.Terminated, ShouldBeTrue)
		So(res.Reward, ShouldEqual, 0)
	})
}

func TestRegistry(t *testing.T) {
	Convey("Make knows the registered ids", t, func() {
		So(IDs(), ShouldContain, "MiniGrid-DoorKey-8x8-v0")
		c, err := Make("MiniGrid-Empty-8x8-v0")
		So(err, ShouldBeNil)
		So(c.MaxSteps, ShouldEqual, 256)

		_, err = Make("CartPole-v1")
		So(errors.Is(err, ErrUnknownEnv), ShouldBeTrue)
	})

	Convey("Equal seeds give equal episodes", t, func() {
		a := mustEnv("MiniGrid-DoorKey-8x8-v0", 11)
		b := mustEnv("MiniGrid-DoorKey-8x8-v0", 11)
		oa, _ := a.Reset()
		ob, _ := b.Reset()
		So(ob.Image, ShouldResemble, oa.Image)
		So(b.AgentPos, ShouldResemble, a.AgentPos)
	})
}
