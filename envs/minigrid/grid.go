package minigrid

type Point struct {
	X, Y int
}

func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// Grid is a width x height board; nil cells are empty.
type Grid struct {
	Width  int
	Height int
	cells  []*Object
}

func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		cells:  make([]*Object, width*height),
	}
}

func (g *Grid) Get(x, y int) *Object {
	return g.cells[y*g.Width+x]
}

func (g *Grid) Set(x, y int, o *Object) {
	g.cells[y*g.Width+x] = o
}

func (g *Grid) HorzWall(x, y, length int, newObj func() *Object) {
	for i := 0; i < length; i++ {
		g.Set(x+i, y, newObj())
	}
}

func (g *Grid) VertWall(x, y, length int, newObj func() *Object) {
	for j := 0; j < length; j++ {
		g.Set(x, y+j, newObj())
	}
}

func (g *Grid) WallRect(x, y, w, h int) {
	g.HorzWall(x, y, w, NewWall)
	g.HorzWall(x, y+h-1, w, NewWall)
	g.VertWall(x, y, h, NewWall)
	g.VertWall(x+w-1, y, h, NewWall)
}

// Slice extracts a sub-grid; cells outside the board read as walls.
func (g *Grid) Slice(topX, topY, width, height int) *Grid {
	out := NewGrid(width, height)
	for j := 0; j < height; j++ {
		for i := 0; i < width; i++ {
			x, y := topX+i, topY+j
			if x >= 0 && x < g.Width && y >= 0 && y < g.Height {
				out.Set(i, j, g.Get(x, y))
			} else {
				out.Set(i, j, NewWall())
			}
		}
	}
	return out
}

// RotateLeft rotates the grid 90 degrees counter-clockwise.
func (g *Grid) RotateLeft() *Grid {
	out := NewGrid(g.Height, g.Width)
	for i := 0; i < g.Width; i++ {
		for j := 0; j < g.Height; j++ {
			out.Set(j, out.Height-i-1, g.Get(i, j))
		}
	}
	return out
}

// ProcessVis computes which cells the agent at pos can see, sweeping rows away
// from the agent and stopping at cells that block the view. Invisible cells
// are cleared. The mask is indexed [x*Height+y].
func (g *Grid) ProcessVis(pos Point) []bool {
	mask := make([]bool, g.Width*g.Height)
	at := func(x, y int) int { return x*g.Height + y }
	mask[at(pos.X, pos.Y)] = true

	for j := g.Height - 1; j >= 0; j-- {
		for i := 0; i < g.Width-1; i++ {
			if !mask[at(i, j)] {
				continue
			}
			if c := g.Get(i, j); c != nil && !c.SeeBehind() {
				continue
			}
			mask[at(i+1, j)] = true
			if j > 0 {
				mask[at(i+1, j-1)] = true
				mask[at(i, j-1)] = true
			}
		}
		for i := g.Width - 1; i > 0; i-- {
			if !mask[at(i, j)] {
				continue
			}
			if c := g.Get(i, j); c != nil && !c.SeeBehind() {
				continue
			}
			mask[at(i-1, j)] = true
			if j > 0 {
				mask[at(i-1, j-1)] = true
				mask[at(i, j-1)] = true
			}
		}
	}

	for j := 0; j < g.Height; j++ {
		for i := 0; i < g.Width; i++ {
			if !mask[at(i, j)] {
				g.Set(i, j, nil)
			}
		}
	}
	return mask
}

// Encode lays the grid out as [x][y][object, color, state].
func (g *Grid) Encode(mask []bool) []uint8 {
	out := make([]uint8, g.Width*g.Height*3)
	for i := 0; i < g.Width; i++ {
		for j := 0; j < g.Height; j++ {
			k := i*g.Height + j
			if mask != nil && !mask[k] {
				continue
			}
			cell := [3]uint8{uint8(EmptyCell), 0, 0}
			if o := g.Get(i, j); o != nil {
				cell = o.Encode()
			}
			copy(out[k*3:], cell[:])
		}
	}
	return out
}
