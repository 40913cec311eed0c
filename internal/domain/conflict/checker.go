// Package conflict finds the lowest height at which extrusions of two different
// objects, or of an object and the wipe tower, cross each other on the bed.
package conflict

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/felixgeelhaar/slicecore/internal/domain/execution"
	"github.com/felixgeelhaar/slicecore/internal/domain/extrusion"
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
	"github.com/felixgeelhaar/slicecore/internal/ports"
)

// WipeTowerName names the tower in results.
const WipeTowerName = "WipeTower"

// TowerIndex is the participant index reported for the wipe tower.
const TowerIndex = -1

// minCrossing is the distance in mm an intersection must keep from every
// endpoint to count as a collision.
const minCrossing = 0.01

// Object is one participant: its per-layer paths in object coordinates and
// the shift of each instance.
type Object struct {
	Name          string
	Layers        [][]extrusion.Path
	SupportLayers [][]extrusion.Path
	Instances     []geometry.Point
}

// Input lists everything placed on the bed.
type Input struct {
	Objects []Object
	// Tower holds the tower's collision outline per layer, in bed coordinates.
	// Nil when there is no tower.
	Tower [][]extrusion.Path
}

// Result is the lowest collision found.
type Result struct {
	Object1 string
	Object2 string
	// Index1 and Index2 are positions in Input.Objects, or TowerIndex.
	Index1 int
	Index2 int
	Height float64
}

type hit struct {
	a, b   int
	slice  int
	height float64
}

// Check returns the lowest collision, or nil when participants never cross.
func Check(rc execution.RunContext, in Input) (*Result, error) {
	if len(in.Objects) == 0 || (len(in.Objects) == 1 && len(in.Objects[0].Instances) == 1) {
		return nil, nil
	}

	// Bucket ids: 0 is the tower, objects follow.
	var q bucketQueue
	if in.Tower != nil {
		q.add(in.Tower, 0, []geometry.Point{{}})
	}
	for i, o := range in.Objects {
		q.add(o.Layers, i+1, o.Instances)
		q.add(o.SupportLayers, i+1, o.Instances)
	}
	q.build()

	var slicesLines [][]LineWithID
	var heights []float64
	for q.valid() {
		lines := q.currentLines()
		h := q.removeLowest()
		slicesLines = append(slicesLines, lines)
		heights = append(heights, h)
	}

	var (
		mu   sync.Mutex
		hits []hit
	)
	err := rc.Pool().ForEachRange(rc.Context(), len(slicesLines), func(ctx context.Context, lo, hi int) error {
		for i := lo; i < hi; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, b, found, err := FindIntersection(slicesLines[i])
			if err != nil {
				return err
			}
			if found {
				mu.Lock()
				hits = append(hits, hit{a: a, b: b, slice: i, height: heights[i]})
				mu.Unlock()
				break
			}
		}
		return nil
	})
	if cerr := rc.Err(); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	first := slices.MinFunc(hits, func(x, y hit) int {
		return cmp.Or(cmp.Compare(x.height, y.height), cmp.Compare(x.slice, y.slice))
	})
	a, b := first.a, first.b
	if b == 0 {
		a, b = b, a
	}
	res := &Result{
		Object1: name(in, a),
		Object2: name(in, b),
		Index1:  a - 1,
		Index2:  b - 1,
		Height:  first.height,
	}
	rc.Logger().Info(rc.Context(), "objects collide",
		ports.F("first", res.Object1), ports.F("second", res.Object2), ports.F("height", res.Height))
	return res, nil
}

func name(in Input, id int) string {
	if id == 0 {
		return WipeTowerName
	}
	return in.Objects[id-1].Name
}

// FindIntersection returns the participants of the first crossing found
// among lines. Lines are bucketed by grid cell so only lines sharing a cell
// are compared.
func FindIntersection(lines []LineWithID) (a, b int, found bool, err error) {
	grid := make(map[Cell][]int)
	for i, l1 := range lines {
		cells, err := Rasterize(l1.Line, CellSize)
		if err != nil {
			return 0, 0, false, err
		}
		for _, c := range cells {
			for _, j := range grid[c] {
				if Intersects(l1, lines[j]) {
					return l1.Object, lines[j].Object, true, nil
				}
			}
			grid[c] = append(grid[c], i)
		}
	}
	return 0, 0, false, nil
}

// Intersects reports whether two lines of different instances cross away from
// their endpoints.
func Intersects(l1, l2 LineWithID) bool {
	if l1.Object == l2.Object && l1.Instance == l2.Instance {
		return false
	}
	p, ok := l1.Line.Intersection(l2.Line)
	if !ok {
		return false
	}
	d := min(l1.Line.DistanceToEndpoints(p), l2.Line.DistanceToEndpoints(p))
	return d/geometry.Scale > minCrossing
}
