package minigrid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jesbu1/rl-starter-files/core"
	"golang.org/x/exp/rand"
)

const (
	ActionLeft core.Action = iota
	ActionRight
	ActionForward
	ActionPickup
	ActionDrop
	ActionToggle
	ActionDone
)

const (
	actionCount   = 7
	AgentViewSize = 7
	maxPlaceTries = 10000
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrPlacement     = errors.New("could not place object")
)

// right, down, left, up
var directions = [4]Point{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}

// Generator builds a fresh grid for an episode. It must place the agent and
// return the mission string.
type Generator func(e *Env) (string, error)

type Env struct {
	Width    int
	Height   int
	MaxSteps int

	generate Generator
	rand     *rand.Rand

	Grid      *Grid
	AgentPos  Point
	AgentDir  int
	Carrying  *Object
	Mission   string
	StepCount int
}

var _ core.Environment = &Env{}

func NewEnv(width, height, maxSteps int, generate Generator, seed int64) *Env {
	return &Env{
		Width:    width,
		Height:   height,
		MaxSteps: maxSteps,
		generate: generate,
		rand:     rand.New(rand.NewSource(uint64(seed))),
	}
}

func (e *Env) ActionCount() int {
	return actionCount
}

func (e *Env) ObservationShape() (int, int) {
	return AgentViewSize, AgentViewSize
}

func (e *Env) Reset() (core.Observation, error) {
	e.Grid = NewGrid(e.Width, e.Height)
	e.AgentPos = Point{-1, -1}
	e.AgentDir = 0
	e.Carrying = nil
	e.StepCount = 0

	mission, err := e.generate(e)
	if err != nil {
		return core.Observation{}, err
	}
	if e.AgentPos.X < 0 {
		return core.Observation{}, fmt.Errorf("%w: generator did not place the agent", ErrPlacement)
	}
	e.Mission = mission
	return e.observation(), nil
}

func (e *Env) FrontPos() Point {
	return e.AgentPos.Add(directions[e.AgentDir])
}

func (e *Env) Step(action core.Action) (core.StepResult, error) {
	e.StepCount++
	res := core.StepResult{}

	fwdPos := e.FrontPos()
	fwdCell := e.Grid.Get(fwdPos.X, fwdPos.Y)

	switch action {
	case ActionLeft:
		e.AgentDir = (e.AgentDir + 3) % 4
	case ActionRight:
		e.AgentDir = (e.AgentDir + 1) % 4
	case ActionForward:
		if fwdCell == nil || fwdCell.CanOverlap() {
			e.AgentPos = fwdPos
		}
		if fwdCell != nil && fwdCell.Type == Goal {
			res.Terminated = true
			res.Reward = e.successReward()
		}
		if fwdCell != nil && fwdCell.Type == Lava {
			res.Terminated = true
		}
	case ActionPickup:
		if fwdCell != nil && fwdCell.CanPickup() && e.Carrying == nil {
			e.Carrying = fwdCell
			e.Grid.Set(fwdPos.X, fwdPos.Y, nil)
		}
	case ActionDrop:
		if fwdCell == nil && e.Carrying != nil {
			e.Grid.Set(fwdPos.X, fwdPos.Y, e.Carrying)
			e.Carrying = nil
		}
	case ActionToggle:
		if fwdCell != nil {
			fwdCell.Toggle(e.Carrying)
		}
	case ActionDone:
	default:
		return res, fmt.Errorf("%w: %d", ErrUnknownAction, action)
	}

	if e.StepCount >= e.MaxSteps {
		res.Truncated = true
	}
	res.Observation = e.observation()
	return res, nil
}

func (e *Env) successReward() float64 {
	return 1 - 0.9*float64(e.StepCount)/float64(e.MaxSteps)
}

// observation renders the agent's egocentric view: the agent sits at the
// bottom center looking up, walls hide what is behind them.
func (e *Env) observation() core.Observation {
	half := AgentViewSize / 2
	var topX, topY int
	switch e.AgentDir {
	case 0:
		topX, topY = e.AgentPos.X, e.AgentPos.Y-half
	case 1:
		topX, topY = e.AgentPos.X-half, e.AgentPos.Y
	case 2:
		topX, topY = e.AgentPos.X-AgentViewSize+1, e.AgentPos.Y-half
	default:
		topX, topY = e.AgentPos.X-half, e.AgentPos.Y-AgentViewSize+1
	}

	view := e.Grid.Slice(topX, topY, AgentViewSize, AgentViewSize)
	for i := 0; i < e.AgentDir+1; i++ {
		view = view.RotateLeft()
	}
	agent := Point{half, AgentViewSize - 1}
	mask := view.ProcessVis(agent)
	view.Set(agent.X, agent.Y, e.Carrying)

	return core.Observation{
		Image:     view.Encode(mask),
		Width:     AgentViewSize,
		Height:    AgentViewSize,
		Direction: e.AgentDir,
		Mission:   e.Mission,
	}
}

// Render draws the full grid with the agent as an arrow.
func (e *Env) Render() string {
	arrows := [4]rune{'>', 'v', '<', '^'}
	var b strings.Builder
	for y := 0; y < e.Height; y++ {
		for x := 0; x < e.Width; x++ {
			switch o := e.Grid.Get(x, y); {
			case x == e.AgentPos.X && y == e.AgentPos.Y:
				b.WriteRune(arrows[e.AgentDir])
			case o == nil:
				b.WriteRune(' ')
			default:
				b.WriteRune(o.rune())
			}
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "mission: %s | step %d/%d", e.Mission, e.StepCount, e.MaxSteps)
	return b.String()
}

func (e *Env) randInt(low, high int) int {
	return low + e.rand.Intn(high-low)
}

func (e *Env) PutObject(o *Object, x, y int) {
	e.Grid.Set(x, y, o)
}

// PlaceObject puts o on a random empty cell of the rectangle at top with the
// given size, avoiding the agent. A nil o only picks the position.
func (e *Env) PlaceObject(o *Object, top, size Point) (Point, error) {
	for try := 0; try < maxPlaceTries; try++ {
		p := Point{
			X: e.randInt(max(top.X, 0), min(top.X+size.X, e.Grid.Width)),
			Y: e.randInt(max(top.Y, 0), min(top.Y+size.Y, e.Grid.Height)),
		}
		if e.Grid.Get(p.X, p.Y) != nil || p == e.AgentPos {
			continue
		}
		if o != nil {
			e.Grid.Set(p.X, p.Y, o)
		}
		return p, nil
	}
	return Point{}, ErrPlacement
}

// PlaceAgent puts the agent on a random empty cell with a random direction.
func (e *Env) PlaceAgent(top, size Point) error {
	e.AgentPos = Point{-1, -1}
	p, err := e.PlaceObject(nil, top, size)
	if err != nil {
		return err
	}
	e.AgentPos = p
	e.AgentDir = e.rand.Intn(4)
	return nil
}
