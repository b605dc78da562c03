package grid

import "fmt"

// Dir is a compass direction on the toroidal grid.
type Dir int

const (
	North Dir = iota
	East
	South
	West
)

const NumDirs = 4

var dirNames = [NumDirs]string{"N", "E", "S", "W"}

func (d Dir) String() string {
	if d < 0 || int(d) >= NumDirs {
		return fmt.Sprintf("Dir(%d)", int(d))
	}
	return dirNames[d]
}

// Opp returns the direction pointing back at the sender.
func (d Dir) Opp() Dir { return Dir((int(d) + 2) % NumDirs) }

// Rotate turns d clockwise by off steps (off may be negative).
func (d Dir) Rotate(off int) Dir {
	return Dir(((int(d)+off)%NumDirs + NumDirs) % NumDirs)
}

// Topology addresses a W x H torus in row-major order.
type Topology struct {
	Width  int
	Height int
}

func (t Topology) Size() int { return t.Width * t.Height }

func (t Topology) XY(idx int) (x, y int) { return idx % t.Width, idx / t.Width }

func (t Topology) Index(x, y int) int {
	x = ((x % t.Width) + t.Width) % t.Width
	y = ((y % t.Height) + t.Height) % t.Height
	return y*t.Width + x
}

// Neighbor returns the index one step from idx in direction d, wrapping at the edges.
func (t Topology) Neighbor(idx int, d Dir) int {
	x, y := t.XY(idx)
	switch d {
	case North:
		y--
	case East:
		x++
	case South:
		y++
	case West:
		x--
	}
	return t.Index(x, y)
}

// Neighbors returns all four neighbor indices ordered by Dir.
func (t Topology) Neighbors(idx int) [NumDirs]int {
	var out [NumDirs]int
	for d := 0; d < NumDirs; d++ {
		out[d] = t.Neighbor(idx, Dir(d))
	}
	return out
}

// Partition is a contiguous, half-open [Lo, Hi) range of cell indices.
type Partition struct {
	Lo int
	Hi int
}

func (p Partition) Len() int { return p.Hi - p.Lo }

// Split divides size cells into n contiguous partitions whose lengths differ by at most one.
func Split(size, n int) []Partition {
	if n <= 0 {
		n = 1
	}
	if n > size && size > 0 {
		n = size
	}
	out := make([]Partition, 0, n)
	lo := 0
	for i := 0; i < n; i++ {
		l := size / n
		if i < size%n {
			l++
		}
		out = append(out, Partition{Lo: lo, Hi: lo + l})
		lo += l
	}
	return out
}
