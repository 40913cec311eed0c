package extrusion

import (
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
)

// Entity is one of Path, Loop, MultiPath or Collection.
// The set is closed: only types in this package implement it.
type Entity interface {
	Role() Role
	BoundingBox() geometry.BoundingBox
	isEntity()
}

// Path is a single open extrusion.
type Path struct {
	Polyline geometry.Polyline
	Kind     Role
	MM3PerMM float64
	Width    float64
	Height   float64
}

// NewPath creates a path with the given flow.
func NewPath(pl geometry.Polyline, role Role, flow Flow) Path {
	return Path{Polyline: pl, Kind: role, MM3PerMM: flow.MM3PerMM(), Width: flow.Width, Height: flow.Height}
}

// Role returns the path role.
func (p Path) Role() Role { return p.Kind }

// BoundingBox returns the path bounding box.
func (p Path) BoundingBox() geometry.BoundingBox {
	return geometry.NewBoundingBox(p.Polyline...)
}

// Length returns the path length in millimetres.
func (p Path) Length() float64 {
	return p.Polyline.Length() / geometry.Scale
}

// Volume returns the extruded volume in mm³.
func (p Path) Volume() float64 {
	return p.Length() * p.MM3PerMM
}

func (Path) isEntity() {}

// Loop is a closed extrusion made of consecutive paths.
type Loop struct {
	Paths []Path
}

// NewLoop creates a single-path loop from a polygon.
func NewLoop(poly geometry.Polygon, role Role, flow Flow) *Loop {
	return &Loop{Paths: []Path{NewPath(poly.Polyline(), role, flow)}}
}

// Role returns the role of the first path.
func (l *Loop) Role() Role {
	if len(l.Paths) == 0 {
		return RoleNone
	}
	return l.Paths[0].Kind
}

// BoundingBox returns the loop bounding box.
func (l *Loop) BoundingBox() geometry.BoundingBox {
	var bb geometry.BoundingBox
	for _, p := range l.Paths {
		bb.MergeBox(p.BoundingBox())
	}
	return bb
}

// Polygon returns the loop outline.
func (l *Loop) Polygon() geometry.Polygon {
	var out geometry.Polygon
	for _, p := range l.Paths {
		if len(p.Polyline) == 0 {
			continue
		}
		out = append(out, p.Polyline[:len(p.Polyline)-1]...)
	}
	return out
}

// Length returns the loop length in millimetres.
func (l *Loop) Length() float64 {
	var sum float64
	for _, p := range l.Paths {
		sum += p.Length()
	}
	return sum
}

func (*Loop) isEntity() {}

// MultiPath is an open extrusion of consecutive paths with varying properties.
type MultiPath struct {
	Paths []Path
}

// Role returns the role of the first path.
func (m *MultiPath) Role() Role {
	if len(m.Paths) == 0 {
		return RoleNone
	}
	return m.Paths[0].Kind
}

// BoundingBox returns the bounding box of all paths.
func (m *MultiPath) BoundingBox() geometry.BoundingBox {
	var bb geometry.BoundingBox
	for _, p := range m.Paths {
		bb.MergeBox(p.BoundingBox())
	}
	return bb
}

func (*MultiPath) isEntity() {}

// Collection groups entities. NoSort keeps the stored order at export time.
type Collection struct {
	Entities []Entity
	NoSort   bool
}

// Append adds entities to the collection.
func (c *Collection) Append(e ...Entity) {
	c.Entities = append(c.Entities, e...)
}

// Len returns the number of direct children.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Entities)
}

// Empty reports whether the collection has no children.
func (c *Collection) Empty() bool {
	return c.Len() == 0
}

// Role returns the role of the first child, or RoleNone for a mixed or empty collection.
func (c *Collection) Role() Role {
	if c.Empty() {
		return RoleNone
	}
	r := c.Entities[0].Role()
	for _, e := range c.Entities[1:] {
		if e.Role() != r {
			return RoleNone
		}
	}
	return r
}

// BoundingBox returns the bounding box of all children.
func (c *Collection) BoundingBox() geometry.BoundingBox {
	var bb geometry.BoundingBox
	if c == nil {
		return bb
	}
	for _, e := range c.Entities {
		bb.MergeBox(e.BoundingBox())
	}
	return bb
}

func (*Collection) isEntity() {}

// Flatten returns every path contained in e, depth first.
func Flatten(e Entity) []Path {
	var out []Path
	flatten(e, &out)
	return out
}

func flatten(e Entity, out *[]Path) {
	switch v := e.(type) {
	case Path:
		*out = append(*out, v)
	case *Loop:
		*out = append(*out, v.Paths...)
	case *MultiPath:
		*out = append(*out, v.Paths...)
	case *Collection:
		if v == nil {
			return
		}
		for _, child := range v.Entities {
			flatten(child, out)
		}
	}
}

// Lines returns every segment of e. Loops are closed.
func Lines(e Entity) []geometry.Line {
	var out []geometry.Line
	for _, p := range Flatten(e) {
		out = append(out, p.Polyline.Lines()...)
	}
	return out
}

// Volume returns the total extruded volume of e in mm³.
func Volume(e Entity) float64 {
	var sum float64
	for _, p := range Flatten(e) {
		sum += p.Volume()
	}
	return sum
}

// Length returns the total extrusion length of e in millimetres.
func Length(e Entity) float64 {
	var sum float64
	for _, p := range Flatten(e) {
		sum += p.Length()
	}
	return sum
}

// Translate returns a deep copy of e shifted by v.
func Translate(e Entity, v geometry.Point) Entity {
	switch x := e.(type) {
	case Path:
		x.Polyline = x.Polyline.Translate(v)
		return x
	case *Loop:
		return &Loop{Paths: translatePaths(x.Paths, v)}
	case *MultiPath:
		return &MultiPath{Paths: translatePaths(x.Paths, v)}
	case *Collection:
		out := &Collection{NoSort: x.NoSort, Entities: make([]Entity, len(x.Entities))}
		for i, child := range x.Entities {
			out.Entities[i] = Translate(child, v)
		}
		return out
	}
	return e
}

func translatePaths(paths []Path, v geometry.Point) []Path {
	out := make([]Path, len(paths))
	for i, p := range paths {
		p.Polyline = p.Polyline.Translate(v)
		out[i] = p
	}
	return out
}
