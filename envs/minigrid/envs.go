package minigrid

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jesbu1/rl-starter-files/core"
)

var ErrUnknownEnv = errors.New("unknown environment")

// Empty is an empty room with the goal in the bottom-right corner and the
// agent starting top-left, facing right.
func Empty() Generator {
	return func(e *Env) (string, error) {
		e.Grid.WallRect(0, 0, e.Width, e.Height)
		e.PutObject(NewGoal(), e.Width-2, e.Height-2)
		e.AgentPos = Point{1, 1}
		e.AgentDir = 0
		return "get to the green goal square", nil
	}
}

// DoorKey splits the room with a wall holding a locked door; the key lies on
// the agent's side.
func DoorKey() Generator {
	return func(e *Env) (string, error) {
		e.Grid.WallRect(0, 0, e.Width, e.Height)
		e.PutObject(NewGoal(), e.Width-2, e.Height-2)

		splitIdx := e.randInt(2, e.Width-2)
		e.Grid.VertWall(splitIdx, 0, e.Height, NewWall)

		if err := e.PlaceAgent(Point{0, 0}, Point{splitIdx, e.Height}); err != nil {
			return "", err
		}
		doorIdx := e.randInt(1, e.Width-2)
		e.PutObject(NewDoor(Yellow, true), splitIdx, doorIdx)
		if _, err := e.PlaceObject(NewKey(Yellow), Point{0, 0}, Point{splitIdx, e.Height}); err != nil {
			return "", err
		}
		return "use the key to open the door and then get to the goal", nil
	}
}

// LavaGap puts a vertical strip of lava with a single gap between the agent
// and the goal.
func LavaGap() Generator {
	return func(e *Env) (string, error) {
		e.Grid.WallRect(0, 0, e.Width, e.Height)
		e.AgentPos = Point{1, 1}
		e.AgentDir = 0
		e.PutObject(NewGoal(), e.Width-2, e.Height-2)

		gap := Point{e.randInt(2, e.Width-2), e.randInt(1, e.Height-1)}
		e.Grid.VertWall(gap.X, 1, e.Height-2, NewLava)
		e.Grid.Set(gap.X, gap.Y, nil)
		return "avoid the lava and get to the green goal square", nil
	}
}

// Constructor builds square environments of one registered kind.
type Constructor struct {
	ID       string
	Size     int
	MaxSteps int
	Generate func() Generator
}

var _ core.EnvironmentConstructor = &Constructor{}

func (c *Constructor) NewEnvironment(seed int64) core.Environment {
	return c.New(seed)
}

func (c *Constructor) New(seed int64) *Env {
	return NewEnv(c.Size, c.Size, c.MaxSteps, c.Generate(), seed)
}

var registry = map[string]*Constructor{}

func register(id string, size, maxSteps int, generate func() Generator) {
	registry[id] = &Constructor{ID: id, Size: size, MaxSteps: maxSteps, Generate: generate}
}

func init() {
	for _, size := range []int{5, 6, 8, 16} {
		register(fmt.Sprintf("MiniGrid-Empty-%dx%d-v0", size, size), size, 4*size*size, Empty)
	}
	for _, size := range []int{5, 6, 8} {
		register(fmt.Sprintf("MiniGrid-DoorKey-%dx%d-v0", size, size), size, 10*size*size, DoorKey)
	}
	for _, size := range []int{5, 6, 7} {
		register(fmt.Sprintf("MiniGrid-LavaGapS%d-v0", size), size, 4*size*size, LavaGap)
	}
}

func Make(id string) (*Constructor, error) {
	c, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEnv, id)
	}
	return c, nil
}

func IDs() []string {
	out := make([]string, 0, len(registry))
	for id := range registry {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
