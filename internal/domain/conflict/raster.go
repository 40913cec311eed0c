package conflict

import (
	"errors"
	"math"

	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
)

// CellSize is the rasterization grid pitch, 1 mm in scaled units.
const CellSize = geometry.Scale

// MaxCellsPerLine bounds the cells a single segment may cover.
const MaxCellsPerLine = 100_000

// ErrPathologicalGeometry is returned when a segment needs more than
// MaxCellsPerLine cells.
var ErrPathologicalGeometry = errors.New("segment spans too many grid cells")

// Cell is a grid index.
type Cell struct {
	X, Y int64
}

func cellOf(p geometry.Point, size int64) Cell {
	return Cell{X: p.X / size, Y: p.Y / size}
}

// Rasterize returns the grid cells a segment passes through, from A to B,
// using an incremental voxel traversal.
func Rasterize(l geometry.Line, size int64) ([]Cell, error) {
	cur := cellOf(l.A, size)
	last := cellOf(l.B, size)
	ray := l.B.Sub(l.A)

	stepX, stepY := int64(1), int64(1)
	if ray.X < 0 {
		stepX = -1
	}
	if ray.Y < 0 {
		stepY = -1
	}

	nextX := float64((cur.X + stepX) * size)
	nextY := float64((cur.Y + stepY) * size)
	if stepX < 0 {
		nextX += float64(size)
	}
	if stepY < 0 {
		nextY += float64(size)
	}

	tx, ty := math.MaxFloat64, math.MaxFloat64
	dx, dy := math.MaxFloat64, math.MaxFloat64
	if ray.X != 0 {
		tx = (nextX - float64(l.A.X)) / float64(ray.X)
		dx = float64(size) / float64(ray.X) * float64(stepX)
	}
	if ray.Y != 0 {
		ty = (nextY - float64(l.A.Y)) / float64(ray.Y)
		dy = float64(size) / float64(ray.Y) * float64(stepY)
	}

	cells := []Cell{cur}
	for cur != last {
		switch {
		case cur.X == last.X:
			if len(cells)+int(abs(last.Y-cur.Y)) > MaxCellsPerLine {
				return nil, ErrPathologicalGeometry
			}
			for step := sign(last.Y - cur.Y); cur.Y != last.Y; {
				cur.Y += step
				cells = append(cells, cur)
			}
		case cur.Y == last.Y:
			if len(cells)+int(abs(last.X-cur.X)) > MaxCellsPerLine {
				return nil, ErrPathologicalGeometry
			}
			for step := sign(last.X - cur.X); cur.X != last.X; {
				cur.X += step
				cells = append(cells, cur)
			}
		case tx < ty:
			cur.X += stepX
			tx += dx
			cells = append(cells, cur)
		default:
			cur.Y += stepY
			ty += dy
			cells = append(cells, cur)
		}
		if len(cells) > MaxCellsPerLine {
			return nil, ErrPathologicalGeometry
		}
	}
	return cells, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int64) int64 {
	if v < 0 {
		return -1
	}
	return 1
}
