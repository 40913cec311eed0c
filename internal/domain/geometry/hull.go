package geometry

import (
	"math"
	"slices"
)

// ConvexHull returns the counter-clockwise convex hull of pts (Andrew's monotone chain).
// Collinear points are dropped. Fewer than three distinct points are returned as-is.
func ConvexHull(pts []Point) Polygon {
	sorted := slices.Clone(pts)
	slices.SortFunc(sorted, func(a, b Point) int {
		if a.X != b.X {
			if a.X < b.X {
				return -1
			}
			return 1
		}
		switch {
		case a.Y < b.Y:
			return -1
		case a.Y > b.Y:
			return 1
		}
		return 0
	})
	sorted = slices.Compact(sorted)
	if len(sorted) < 3 {
		return Polygon(sorted)
	}

	hull := make(Polygon, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && hull[len(hull)-1].Sub(hull[len(hull)-2]).Cross(p.Sub(hull[len(hull)-2])) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && hull[len(hull)-1].Sub(hull[len(hull)-2]).Cross(p.Sub(hull[len(hull)-2])) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// OffsetConvex offsets a convex polygon by delta scaled units. Positive deltas
// grow the polygon with round joins approximated by arcs of at most step radians;
// negative deltas shrink it with miter joins.
func OffsetConvex(p Polygon, delta float64, step float64) Polygon {
	if len(p) < 3 {
		return nil
	}
	if delta < 0 {
		return Inset(p, -delta)
	}
	p = p.CCW()
	if step <= 0 {
		step = math.Pi / 16
	}
	n := len(p)
	out := make(Polygon, 0, n*4)
	for i := 0; i < n; i++ {
		prev, cur, next := p[(i+n-1)%n], p[i], p[(i+1)%n]
		a0 := outwardAngle(prev, cur)
		a1 := outwardAngle(cur, next)
		sweep := a1 - a0
		for sweep < 0 {
			sweep += 2 * math.Pi
		}
		if sweep > math.Pi {
			// reflex vertex, dropped by the hull below
			sweep = 0
		}
		steps := int(math.Ceil(sweep / step))
		for k := 0; k <= steps; k++ {
			a := a0
			if steps > 0 {
				a += sweep * float64(k) / float64(steps)
			}
			out = append(out, Point{
				X: cur.X + int64(math.Round(delta*math.Cos(a))),
				Y: cur.Y + int64(math.Round(delta*math.Sin(a))),
			})
		}
	}
	return ConvexHull(out)
}

func outwardAngle(a, b Point) float64 {
	d := b.Sub(a)
	return math.Atan2(-float64(d.X), float64(d.Y))
}

// Inset shrinks a simple polygon by delta scaled units using miter joins.
// It returns nil when the polygon collapses.
func Inset(p Polygon, delta float64) Polygon {
	if len(p) < 3 || delta <= 0 {
		return p
	}
	p = p.CCW()
	n := len(p)
	type offsetEdge struct{ a, d Point }
	edges := make([]offsetEdge, n)
	for i := 0; i < n; i++ {
		a, b := p[i], p[(i+1)%n]
		d := b.Sub(a)
		l := d.Norm()
		if l == 0 {
			return nil
		}
		nx := -float64(d.Y) / l * delta
		ny := float64(d.X) / l * delta
		shift := Point{X: int64(math.Round(nx)), Y: int64(math.Round(ny))}
		edges[i] = offsetEdge{a: a.Add(shift), d: d}
	}

	out := make(Polygon, n)
	for i := 0; i < n; i++ {
		e0, e1 := edges[(i+n-1)%n], edges[i]
		denom := e0.d.Cross(e1.d)
		if math.Abs(denom) < 1e-9 {
			out[i] = e1.a
			continue
		}
		t := e1.a.Sub(e0.a).Cross(e1.d) / denom
		pt := Point{
			X: e0.a.X + int64(math.Round(t*float64(e0.d.X))),
			Y: e0.a.Y + int64(math.Round(t*float64(e0.d.Y))),
		}
		// miter limit of 3 × delta
		if pt.DistanceTo(p[i]) > 3*delta {
			v := pt.Sub(p[i])
			pt = p[i].Add(v.Scale(3 * delta / v.Norm()))
		}
		out[i] = pt
	}

	for i := 0; i < n; i++ {
		if out[(i+1)%n].Sub(out[i]).Dot(edges[i].d) <= 0 {
			return nil
		}
	}
	if out.SignedArea() <= 0 {
		return nil
	}
	return out
}

// Scanlines intersects parallel lines spaced spacing apart at angle radians with the
// even-odd interior of polys. Consecutive segments alternate direction.
func Scanlines(polys []Polygon, spacing int64, angle float64) []Polyline {
	if spacing <= 0 || len(polys) == 0 {
		return nil
	}
	rotated := make([]Polygon, len(polys))
	var bb BoundingBox
	for i, p := range polys {
		rotated[i] = p.Rotate(-angle)
		bb.MergeBox(rotated[i].BoundingBox())
	}
	if !bb.Defined {
		return nil
	}

	var out []Polyline
	start := FloorDiv(bb.Min.Y, spacing)*spacing + spacing/2
	flip := false
	for y := start; y < bb.Max.Y; y += spacing {
		var xs []float64
		for _, p := range rotated {
			for _, ln := range p.Lines() {
				a, b := ln.A, ln.B
				if (a.Y > y) != (b.Y > y) {
					xs = append(xs, float64(a.X)+float64(y-a.Y)*float64(b.X-a.X)/float64(b.Y-a.Y))
				}
			}
		}
		slices.Sort(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			a := Point{X: int64(math.Round(xs[i])), Y: y}
			b := Point{X: int64(math.Round(xs[i+1])), Y: y}
			if a == b {
				continue
			}
			if flip {
				a, b = b, a
			}
			out = append(out, Polyline{a.Rotate(angle), b.Rotate(angle)})
		}
		flip = !flip
	}
	return out
}

// FloorDiv divides rounding towards negative infinity.
func FloorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
