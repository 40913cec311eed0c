package geometry

import "math"

// Polygon is a closed contour. The last point connects back to the first.
type Polygon []Point

// Polyline is an open path.
type Polyline []Point

// Rect returns an axis-aligned counter-clockwise rectangle.
func Rect(min, max Point) Polygon {
	return Polygon{min, {X: max.X, Y: min.Y}, max, {X: min.X, Y: max.Y}}
}

// Square returns a counter-clockwise square centred at c with side length side (mm).
func Square(c Point, side float64) Polygon {
	h := Scaled(side / 2)
	return Rect(Point{X: c.X - h, Y: c.Y - h}, Point{X: c.X + h, Y: c.Y + h})
}

// Circle approximates a circle of radius r (scaled) with n points.
func Circle(c Point, r float64, n int) Polygon {
	out := make(Polygon, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		out[i] = Point{
			X: c.X + int64(math.Round(r*math.Cos(a))),
			Y: c.Y + int64(math.Round(r*math.Sin(a))),
		}
	}
	return out
}

// SignedArea returns the signed area in scaled units squared; positive for CCW.
func (p Polygon) SignedArea() float64 {
	var a float64
	for i := range p {
		j := (i + 1) % len(p)
		a += p[i].Cross(p[j])
	}
	return a / 2
}

// Area returns the absolute area in mm².
func (p Polygon) Area() float64 {
	return math.Abs(p.SignedArea()) / (Scale * Scale)
}

// IsCCW reports whether the polygon winds counter-clockwise.
func (p Polygon) IsCCW() bool {
	return p.SignedArea() > 0
}

// Reversed returns a copy with reversed winding.
func (p Polygon) Reversed() Polygon {
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[len(p)-1-i] = pt
	}
	return out
}

// CCW returns the polygon with counter-clockwise winding.
func (p Polygon) CCW() Polygon {
	if p.IsCCW() {
		return p
	}
	return p.Reversed()
}

// Translate returns a copy shifted by v.
func (p Polygon) Translate(v Point) Polygon {
	return Polygon(Points(p).Translate(v))
}

// Rotate returns a copy rotated around the origin.
func (p Polygon) Rotate(angle float64) Polygon {
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[i] = pt.Rotate(angle)
	}
	return out
}

// Lines returns the closed contour as segments.
func (p Polygon) Lines() []Line {
	if len(p) < 2 {
		return nil
	}
	out := make([]Line, len(p))
	for i := range p {
		out[i] = Line{A: p[i], B: p[(i+1)%len(p)]}
	}
	return out
}

// Length returns the closed perimeter in scaled units.
func (p Polygon) Length() float64 {
	var l float64
	for _, ln := range p.Lines() {
		l += ln.Length()
	}
	return l
}

// Polyline opens the polygon, repeating the first point at the end.
func (p Polygon) Polyline() Polyline {
	if len(p) == 0 {
		return nil
	}
	out := make(Polyline, 0, len(p)+1)
	out = append(out, p...)
	return append(out, p[0])
}

// Contains reports whether pt lies strictly inside the polygon (crossing number).
func (p Polygon) Contains(pt Point) bool {
	inside := false
	for i, j := 0, len(p)-1; i < len(p); j, i = i, i+1 {
		a, b := p[i], p[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := float64(a.X) + float64(pt.Y-a.Y)*float64(b.X-a.X)/float64(b.Y-a.Y)
			if float64(pt.X) < x {
				inside = !inside
			}
		}
	}
	return inside
}

// BoundingBox returns the polygon's bounding box.
func (p Polygon) BoundingBox() BoundingBox {
	return NewBoundingBox(p...)
}

// Centroid returns the vertex average.
func (p Polygon) Centroid() Point {
	if len(p) == 0 {
		return Point{}
	}
	var x, y float64
	for _, pt := range p {
		x += float64(pt.X)
		y += float64(pt.Y)
	}
	n := float64(len(p))
	return Point{X: int64(math.Round(x / n)), Y: int64(math.Round(y / n))}
}

// Lines returns the open path as segments.
func (pl Polyline) Lines() []Line {
	if len(pl) < 2 {
		return nil
	}
	out := make([]Line, len(pl)-1)
	for i := 0; i+1 < len(pl); i++ {
		out[i] = Line{A: pl[i], B: pl[i+1]}
	}
	return out
}

// Length returns the path length in scaled units.
func (pl Polyline) Length() float64 {
	var l float64
	for _, ln := range pl.Lines() {
		l += ln.Length()
	}
	return l
}

// Translate returns a copy shifted by v.
func (pl Polyline) Translate(v Point) Polyline {
	return Polyline(Points(pl).Translate(v))
}

// Reversed returns the path in reverse order.
func (pl Polyline) Reversed() Polyline {
	out := make(Polyline, len(pl))
	for i, pt := range pl {
		out[len(pl)-1-i] = pt
	}
	return out
}
