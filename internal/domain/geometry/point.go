// Package geometry provides scaled integer 2D primitives used by the slicing pipeline.
//
// Coordinates are int64 values in units of 1e-6 mm. Geometry is exact while it is
// translated or compared; rotations and offsets round back onto the integer grid.
package geometry

import (
	"fmt"
	"math"
)

// Scale is the number of integer units per millimetre.
const Scale = 1_000_000

// Scaled converts millimetres to integer units.
func Scaled(mm float64) int64 {
	return int64(math.Round(mm * Scale))
}

// Unscaled converts integer units to millimetres.
func Unscaled(v int64) float64 {
	return float64(v) / Scale
}

// Point is a 2D point in scaled units.
type Point struct {
	X int64
	Y int64
}

// Pt creates a point from millimetre coordinates.
func Pt(xmm, ymm float64) Point {
	return Point{X: Scaled(xmm), Y: Scaled(ymm)}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Neg returns -p.
func (p Point) Neg() Point {
	return Point{X: -p.X, Y: -p.Y}
}

// Scale multiplies both coordinates by f, rounding to the grid.
func (p Point) Scale(f float64) Point {
	return Point{X: int64(math.Round(float64(p.X) * f)), Y: int64(math.Round(float64(p.Y) * f))}
}

// Rotate rotates p around the origin by angle radians.
func (p Point) Rotate(angle float64) Point {
	s, c := math.Sincos(angle)
	x, y := float64(p.X), float64(p.Y)
	return Point{X: int64(math.Round(c*x - s*y)), Y: int64(math.Round(s*x + c*y))}
}

// RotateAround rotates p around center by angle radians.
func (p Point) RotateAround(center Point, angle float64) Point {
	return p.Sub(center).Rotate(angle).Add(center)
}

// Norm returns the Euclidean length of p in scaled units.
func (p Point) Norm() float64 {
	return math.Hypot(float64(p.X), float64(p.Y))
}

// DistanceTo returns the distance between p and q in scaled units.
func (p Point) DistanceTo(q Point) float64 {
	return p.Sub(q).Norm()
}

// Cross returns the z component of the cross product of p and q.
func (p Point) Cross(q Point) float64 {
	return float64(p.X)*float64(q.Y) - float64(p.Y)*float64(q.X)
}

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 {
	return float64(p.X)*float64(q.X) + float64(p.Y)*float64(q.Y)
}

// String formats the point in millimetres.
func (p Point) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", Unscaled(p.X), Unscaled(p.Y))
}

// Points is a list of points.
type Points []Point

// Translate returns a copy of pts shifted by v.
func (pts Points) Translate(v Point) Points {
	out := make(Points, len(pts))
	for i, p := range pts {
		out[i] = p.Add(v)
	}
	return out
}

// Line is a segment between two points.
type Line struct {
	A Point
	B Point
}

// Length returns the segment length in scaled units.
func (l Line) Length() float64 {
	return l.A.DistanceTo(l.B)
}

// Vector returns B - A.
func (l Line) Vector() Point {
	return l.B.Sub(l.A)
}

// Translate returns the segment shifted by v.
func (l Line) Translate(v Point) Line {
	return Line{A: l.A.Add(v), B: l.B.Add(v)}
}

// Intersection returns the intersection point of two segments.
// Parallel and collinear segments never intersect.
func (l Line) Intersection(o Line) (Point, bool) {
	r := l.Vector()
	s := o.Vector()
	denom := r.Cross(s)
	if denom == 0 {
		return Point{}, false
	}
	qp := o.A.Sub(l.A)
	t := qp.Cross(s) / denom
	u := qp.Cross(r) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return Point{}, false
	}
	return Point{
		X: l.A.X + int64(math.Round(t*float64(r.X))),
		Y: l.A.Y + int64(math.Round(t*float64(r.Y))),
	}, true
}

// DistanceToEndpoints returns the distance from p to the nearest endpoint.
func (l Line) DistanceToEndpoints(p Point) float64 {
	return math.Min(p.DistanceTo(l.A), p.DistanceTo(l.B))
}
