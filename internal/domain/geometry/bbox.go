package geometry

// BoundingBox is an axis-aligned box. The zero value is empty.
type BoundingBox struct {
	Min     Point
	Max     Point
	Defined bool
}

// NewBoundingBox returns the box enclosing pts.
func NewBoundingBox(pts ...Point) BoundingBox {
	var bb BoundingBox
	for _, p := range pts {
		bb.Merge(p)
	}
	return bb
}

// Merge grows the box to contain p.
func (bb *BoundingBox) Merge(p Point) {
	if !bb.Defined {
		bb.Min, bb.Max, bb.Defined = p, p, true
		return
	}
	bb.Min.X = min(bb.Min.X, p.X)
	bb.Min.Y = min(bb.Min.Y, p.Y)
	bb.Max.X = max(bb.Max.X, p.X)
	bb.Max.Y = max(bb.Max.Y, p.Y)
}

// MergeBox grows the box to contain o.
func (bb *BoundingBox) MergeBox(o BoundingBox) {
	if !o.Defined {
		return
	}
	bb.Merge(o.Min)
	bb.Merge(o.Max)
}

// Size returns the extent of the box.
func (bb BoundingBox) Size() Point {
	return bb.Max.Sub(bb.Min)
}

// Center returns the midpoint of the box.
func (bb BoundingBox) Center() Point {
	return Point{X: (bb.Min.X + bb.Max.X) / 2, Y: (bb.Min.Y + bb.Max.Y) / 2}
}

// Overlaps reports whether two defined boxes intersect (touching counts).
func (bb BoundingBox) Overlaps(o BoundingBox) bool {
	if !bb.Defined || !o.Defined {
		return false
	}
	return bb.Min.X <= o.Max.X && o.Min.X <= bb.Max.X && bb.Min.Y <= o.Max.Y && o.Min.Y <= bb.Max.Y
}

// Inflated returns the box grown by d on every side.
func (bb BoundingBox) Inflated(d int64) BoundingBox {
	if !bb.Defined {
		return bb
	}
	return BoundingBox{
		Min:     Point{X: bb.Min.X - d, Y: bb.Min.Y - d},
		Max:     Point{X: bb.Max.X + d, Y: bb.Max.Y + d},
		Defined: true,
	}
}

// Polygon returns the box as a CCW rectangle.
func (bb BoundingBox) Polygon() Polygon {
	return Rect(bb.Min, bb.Max)
}
