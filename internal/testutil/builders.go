package testutil

import (
	"fmt"

	"github.com/felixgeelhaar/slicecore/internal/domain/config"
	"github.com/felixgeelhaar/slicecore/internal/domain/model"
)

// ObjectBuilder builds model objects out of box-shaped volumes.
type ObjectBuilder struct {
	object model.Object
}

// NewObjectBuilder creates a builder for an object whose ID derives from name.
func NewObjectBuilder(name string) *ObjectBuilder {
	return &ObjectBuilder{
		object: model.Object{
			ID:     model.DerivedObjectID(name),
			Name:   name,
			Config: make(map[string]any),
		},
	}
}

// WithBox adds a volume of width x depth x height mm centred on the origin.
func (b *ObjectBuilder) WithBox(width, depth, height float64) *ObjectBuilder {
	return b.WithVolume(Box(width, depth, 0, height))
}

// WithVolume adds a volume made of the given sections.
func (b *ObjectBuilder) WithVolume(sections ...model.Section) *ObjectBuilder {
	b.object.Volumes = append(b.object.Volumes, model.Volume{
		Name:     fmt.Sprintf("%s-%d", b.object.Name, len(b.object.Volumes)+1),
		Sections: sections,
		Config:   make(map[string]any),
	})
	return b
}

// WithRegionOption overrides a region option of the last added volume.
func (b *ObjectBuilder) WithRegionOption(key string, value any) *ObjectBuilder {
	if n := len(b.object.Volumes); n > 0 {
		b.object.Volumes[n-1].Config[key] = value
	}
	return b
}

// WithOption overrides an object option.
func (b *ObjectBuilder) WithOption(key string, value any) *ObjectBuilder {
	b.object.Config[key] = value
	return b
}

// WithInstance places a copy at x, y mm.
func (b *ObjectBuilder) WithInstance(x, y float64) *ObjectBuilder {
	b.object.Instances = append(b.object.Instances, model.Instance{X: x, Y: y})
	return b
}

// Build returns the object. Without explicit instances it is placed at the
// bed centre.
func (b *ObjectBuilder) Build() *model.Object {
	o := b.object
	if len(o.Instances) == 0 {
		o.Instances = []model.Instance{{X: 100, Y: 100}}
	}
	return &o
}

// Box returns a width x depth section centred on the origin.
func Box(width, depth, bottom, top float64) model.Section {
	w, d := width/2, depth/2
	return model.Section{
		Bottom:  bottom,
		Top:     top,
		Outline: [][]float64{{-w, -d}, {w, -d}, {w, d}, {-w, d}},
	}
}

// NewModel returns a scene with the given objects and the default tower placement.
func NewModel(objects ...*model.Object) *model.Model {
	return &model.Model{
		Objects:   objects,
		WipeTower: model.DefaultWipeTowerPlacement(),
	}
}

// Bundle returns the default configuration bundle with mods applied in order.
func Bundle(mods ...func(*config.Bundle)) config.Bundle {
	b := config.DefaultBundle()
	for _, m := range mods {
		m(&b)
	}
	return b
}

// TwoExtruders configures a two-extruder printer with a wipe tower.
func TwoExtruders(b *config.Bundle) {
	p := &b.Print
	p.NozzleDiameter = []float64{0.4, 0.4}
	p.FilamentDiameter = []float64{1.75, 1.75}
	p.BedTemperature = []int{60, 60}
	p.FirstLayerBedTemperature = []int{60, 60}
	p.WipeTower = true
	p.WipingVolumesMatrix = []float64{0, 70, 70, 0}
	p.FilamentMinimalPurgeOnWipeTower = []float64{15, 15}
}

// NoSkirt disables the skirt.
func NoSkirt(b *config.Bundle) {
	b.Print.Skirts = 0
}
