package core

type Action int

// Observation is what a single environment shows the agent after a reset or a
// step. Image holds Width*Height cells of three channels (object, color,
// state), laid out column by column.
type Observation struct {
	Image     []uint8
	Width     int
	Height    int
	Direction int
	Mission   string
}

type StepResult struct {
	Observation Observation
	Reward      float64
	Terminated  bool
	Truncated   bool
}

// Done reports whether the episode ended, by reaching a terminal state or by
// running out of steps.
func (s StepResult) Done() bool {
	return s.Terminated || s.Truncated
}

type Environment interface {
	// Reset starts a new episode. The environment's random source is seeded
	// once at construction and keeps advancing across resets.
	Reset() (Observation, error)
	Step(Action) (StepResult, error)
	ActionCount() int
	// ObservationShape returns the width and height of Observation.Image.
	ObservationShape() (int, int)
}

type EnvironmentConstructor interface {
	// NewEnvironment creates a new environment seeded with the given value.
	NewEnvironment(seed int64) Environment
}

// MakeEnvironments builds n environments; instance i is seeded with seed + i.
func MakeEnvironments(c EnvironmentConstructor, n int, seed int64) []Environment {
	envs := make([]Environment, n)
	for i := 0; i < n; i++ {
		envs[i] = c.NewEnvironment(seed + int64(i))
	}
	return envs
}
