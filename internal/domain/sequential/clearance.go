// Package sequential checks that objects printed one after another leave room
// for the print head.
package sequential

import (
	"errors"
	"fmt"
	"math"

	"github.com/asim/quadtree"

	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
)

// Kind says which clearance was violated.
type Kind int

const (
	// Horizontal means two instance footprints come closer than the extruder radius.
	Horizontal Kind = iota + 1
	// Vertical means an object printed before the last one is taller than the gantry.
	Vertical
)

func (k Kind) String() string {
	switch k {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return "unknown"
	}
}

// ErrNoFootprint is returned for an object whose footprint has fewer than three points.
var ErrNoFootprint = errors.New("object has no footprint")

// Object is an object placed on the bed, listed in print order.
type Object struct {
	Name string
	// Footprint is the object's outline projected on the bed, in object coordinates.
	Footprint geometry.Polygon
	// Height in mm.
	Height    float64
	Instances []geometry.Point
}

// Collision describes the first clearance violation.
type Collision struct {
	Kind    Kind
	Object1 string
	Object2 string
}

func (c Collision) String() string {
	if c.Kind == Vertical {
		return fmt.Sprintf("%s is taller than the extruder clearance height", c.Object1)
	}
	return fmt.Sprintf("%s and %s are closer than the extruder clearance radius", c.Object1, c.Object2)
}

// Clearance holds the print head dimensions in mm.
type Clearance struct {
	Radius float64
	Height float64
}

type placed struct {
	object int
	hull   geometry.Polygon
	bbox   geometry.BoundingBox
}

// Check returns the first violation for objects printed in order, or nil.
func Check(objects []Object, c Clearance) (*Collision, error) {
	var all []placed
	bed := geometry.BoundingBox{}
	for i, o := range objects {
		hull := geometry.ConvexHull(o.Footprint)
		if len(hull) < 3 {
			return nil, fmt.Errorf("%w: %s", ErrNoFootprint, o.Name)
		}
		// Both footprints grow by half the radius, so together they keep the full radius.
		grown := geometry.OffsetConvex(hull, c.Radius/2*geometry.Scale-1, 0)
		for _, shift := range o.Instances {
			p := placed{object: i, hull: grown.Translate(shift)}
			p.bbox = p.hull.BoundingBox()
			bed.MergeBox(p.bbox)
			all = append(all, p)
		}
	}
	if len(all) < 2 {
		return nil, nil
	}

	if hit := horizontal(all, bed); hit != nil {
		return &Collision{Kind: Horizontal, Object1: objects[hit[0]].Name, Object2: objects[hit[1]].Name}, nil
	}

	// The last printed instance may be as tall as it likes.
	limit := c.Height
	for _, p := range all[:len(all)-1] {
		if objects[p.object].Height > limit+1e-9 {
			return &Collision{Kind: Vertical, Object1: objects[p.object].Name}, nil
		}
	}
	return nil, nil
}

// horizontal indexes hull centres in a quadtree and tests nearby pairs.
func horizontal(all []placed, bed geometry.BoundingBox) []int {
	center := bed.Center()
	size := bed.Size()
	tree := quadtree.New(quadtree.NewAABB(
		quadtree.NewPoint(mm(center.X), mm(center.Y), nil),
		quadtree.NewPoint(mm(size.X)/2+10, mm(size.Y)/2+10, nil),
	), 0, nil)

	var reach float64
	for i, p := range all {
		c := p.bbox.Center()
		tree.Insert(quadtree.NewPoint(mm(c.X), mm(c.Y), i))
		s := p.bbox.Size()
		reach = math.Max(reach, math.Max(mm(s.X), mm(s.Y)))
	}

	for i, p := range all {
		c := p.bbox.Center()
		near := tree.Search(quadtree.NewAABB(
			quadtree.NewPoint(mm(c.X), mm(c.Y), nil),
			quadtree.NewPoint(reach, reach, nil),
		))
		best := -1
		for _, q := range near {
			j := q.Data().(int)
			if j <= i || (best >= 0 && j > best) || !p.bbox.Overlaps(all[j].bbox) {
				continue
			}
			if overlaps(p.hull, all[j].hull) {
				best = j
			}
		}
		if best >= 0 {
			return []int{p.object, all[best].object}
		}
	}
	return nil
}

func mm(v int64) float64 { return geometry.Unscaled(v) }

// overlaps reports whether two convex polygons share any area.
func overlaps(a, b geometry.Polygon) bool {
	for _, la := range a.Lines() {
		for _, lb := range b.Lines() {
			if _, ok := la.Intersection(lb); ok {
				return true
			}
		}
	}
	return a.Contains(b[0]) || b.Contains(a[0])
}
