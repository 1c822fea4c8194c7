package world

import (
	"fmt"
	"iter"
)

// BlockPos identifies one cell of the grid. It is a comparable value type so
// it can key maps and capture buffers directly.
type BlockPos struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (p BlockPos) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

// Offset returns the position displaced by the given deltas.
func (p BlockPos) Offset(dx, dy, dz int) BlockPos {
	return BlockPos{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

func (p BlockPos) Above() BlockPos { return p.Offset(0, 1, 0) }
func (p BlockPos) Below() BlockPos { return p.Offset(0, -1, 0) }

// Neighbors returns the six face-adjacent positions.
func (p BlockPos) Neighbors() [6]BlockPos {
	return [6]BlockPos{
		p.Offset(1, 0, 0),
		p.Offset(-1, 0, 0),
		p.Offset(0, 1, 0),
		p.Offset(0, -1, 0),
		p.Offset(0, 0, 1),
		p.Offset(0, 0, -1),
	}
}

// Positions yields every position in the inclusive region spanned by the two
// corners, x-major then y then z. Corners may be given in either order.
func Positions(a, b BlockPos) iter.Seq[BlockPos] {
	min, max := Span(a, b)
	return func(yield func(BlockPos) bool) {
		for x := min.X; x <= max.X; x++ {
			for y := min.Y; y <= max.Y; y++ {
				for z := min.Z; z <= max.Z; z++ {
					if !yield(BlockPos{X: x, Y: y, Z: z}) {
						return
					}
				}
			}
		}
	}
}

// Span orders two corner positions into a per-axis (min, max) pair so region
// operations accept corners in either order.
func Span(a, b BlockPos) (BlockPos, BlockPos) {
	min := a
	max := b
	if min.X > max.X {
		min.X, max.X = max.X, min.X
	}
	if min.Y > max.Y {
		min.Y, max.Y = max.Y, min.Y
	}
	if min.Z > max.Z {
		min.Z, max.Z = max.Z, min.Z
	}
	return min, max
}
