package minigrid

type ObjectType uint8

// Indices match the MiniGrid observation encoding.
const (
	Unseen ObjectType = iota
	EmptyCell
	Wall
	Floor
	Door
	Key
	Ball
	Box
	Goal
	Lava
	AgentObject
)

type Color uint8

const (
	Red Color = iota
	Green
	Blue
	Purple
	Yellow
	Grey
)

const (
	doorOpen   uint8 = 0
	doorClosed uint8 = 1
	doorLocked uint8 = 2
)

type Object struct {
	Type   ObjectType
	Color  Color
	Open   bool
	Locked bool
}

func NewWall() *Object { return &Object{Type: Wall, Color: Grey} }

func NewGoal() *Object { return &Object{Type: Goal, Color: Green} }

func NewLava() *Object { return &Object{Type: Lava, Color: Red} }

func NewKey(c Color) *Object { return &Object{Type: Key, Color: c} }

func NewDoor(c Color, locked bool) *Object {
	return &Object{Type: Door, Color: c, Locked: locked}
}

// CanOverlap reports whether the agent may stand on the object.
func (o *Object) CanOverlap() bool {
	switch o.Type {
	case Floor, Goal, Lava:
		return true
	case Door:
		return o.Open
	}
	return false
}

func (o *Object) CanPickup() bool {
	switch o.Type {
	case Key, Ball, Box:
		return true
	}
	return false
}

func (o *Object) SeeBehind() bool {
	switch o.Type {
	case Wall:
		return false
	case Door:
		return o.Open
	}
	return true
}

// Toggle applies the toggle action and reports whether anything changed.
// Locked doors only open for a key of their own color.
func (o *Object) Toggle(carrying *Object) bool {
	if o.Type != Door {
		return false
	}
	if o.Locked {
		if carrying != nil && carrying.Type == Key && carrying.Color == o.Color {
			o.Locked = false
			o.Open = true
			return true
		}
		return false
	}
	o.Open = !o.Open
	return true
}

func (o *Object) Encode() [3]uint8 {
	state := uint8(0)
	if o.Type == Door {
		switch {
		case o.Open:
			state = doorOpen
		case o.Locked:
			state = doorLocked
		default:
			state = doorClosed
		}
	}
	return [3]uint8{uint8(o.Type), uint8(o.Color), state}
}

func (o *Object) rune() rune {
	switch o.Type {
	case Wall:
		return '#'
	case Goal:
		return 'G'
	case Lava:
		return '~'
	case Key:
		return 'K'
	case Ball:
		return 'o'
	case Box:
		return 'B'
	case Floor:
		return '.'
	case Door:
		switch {
		case o.Open:
			return '_'
		case o.Locked:
			return 'L'
		}
		return 'D'
	}
	return '?'
}
