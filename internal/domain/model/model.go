// Package model describes the scene handed to the slicing core: objects made of
// volumes, each volume a stack of extruded 2D sections, placed by instances.
package model

import (
	"errors"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/slicecore/internal/domain/config"
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
)

// Model validation errors.
var (
	ErrNoInstances = errors.New("object has no instances")
	ErrNoVolumes   = errors.New("object has no volumes")
	ErrBadSection  = errors.New("invalid section")
)

// Model is the full scene.
type Model struct {
	Objects   []*Object
	WipeTower WipeTowerPlacement
}

// Object is one sliceable mesh group. Geometry is shared by all instances.
type Object struct {
	ID        ObjectID
	Name      string
	Volumes   []Volume
	Instances []Instance
	// Config holds object option overrides keyed by option name.
	Config map[string]any
}

// Volume is one part of an object printed with its own region settings.
type Volume struct {
	Name     string
	Sections []Section
	// Config holds region option overrides keyed by option name.
	Config map[string]any
}

// Section is a prism: Outline extruded from Bottom to Top, in millimetres.
type Section struct {
	Bottom  float64     `yaml:"bottom" toml:"bottom"`
	Top     float64     `yaml:"top" toml:"top"`
	Outline [][]float64 `yaml:"outline" toml:"outline"`
}

// Instance places a copy of an object on the bed.
type Instance struct {
	X float64 `yaml:"x" toml:"x"`
	Y float64 `yaml:"y" toml:"y"`
}

// WipeTowerPlacement is the user-chosen tower position and rotation in degrees.
type WipeTowerPlacement struct {
	X        float64 `yaml:"x" toml:"x"`
	Y        float64 `yaml:"y" toml:"y"`
	Rotation float64 `yaml:"rotation" toml:"rotation"`
}

// DefaultWipeTowerPlacement matches the usual bed corner placement.
func DefaultWipeTowerPlacement() WipeTowerPlacement {
	return WipeTowerPlacement{X: 180, Y: 140}
}

// Shift returns the instance offset in scaled coordinates.
func (i Instance) Shift() geometry.Point {
	return geometry.Pt(i.X, i.Y)
}

// Validate checks the structural requirements of the scene.
func (m *Model) Validate() error {
	for _, o := range m.Objects {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("object %q: %w", o.Name, err)
		}
	}
	return nil
}

// Object returns the object with the given ID, or nil.
func (m *Model) Object(id ObjectID) *Object {
	for _, o := range m.Objects {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// Validate checks instances, volumes and sections.
func (o *Object) Validate() error {
	if len(o.Instances) == 0 {
		return ErrNoInstances
	}
	if len(o.Volumes) == 0 {
		return ErrNoVolumes
	}
	for _, v := range o.Volumes {
		for i, s := range v.Sections {
			if err := s.validate(); err != nil {
				return fmt.Errorf("volume %q section %d: %w", v.Name, i, err)
			}
		}
	}
	return nil
}

// Height returns the top of the highest section.
func (o *Object) Height() float64 {
	var h float64
	for _, v := range o.Volumes {
		for _, s := range v.Sections {
			h = max(h, s.Top)
		}
	}
	return h
}

// ResolveConfig applies the object overrides on top of base.
func (o *Object) ResolveConfig(base config.ObjectConfig) (config.ObjectConfig, error) {
	err := applyOverrides(&base, o.Config)
	return base, err
}

// ResolveRegion applies the volume overrides on top of base.
func (v *Volume) ResolveRegion(base config.RegionConfig) (config.RegionConfig, error) {
	err := applyOverrides(&base, v.Config)
	return base, err
}

// SliceAt returns the outlines of every section containing z, counter-clockwise.
// A section contains z when Bottom <= z < Top.
func (v *Volume) SliceAt(z float64) []geometry.Polygon {
	var out []geometry.Polygon
	for _, s := range v.Sections {
		if z >= s.Bottom && z < s.Top {
			out = append(out, s.Polygon())
		}
	}
	return out
}

// Polygon returns the section outline in scaled coordinates, counter-clockwise.
func (s Section) Polygon() geometry.Polygon {
	p := make(geometry.Polygon, 0, len(s.Outline))
	for _, xy := range s.Outline {
		p = append(p, geometry.Pt(xy[0], xy[1]))
	}
	return p.CCW()
}

func (s Section) validate() error {
	if s.Top <= s.Bottom || s.Bottom < 0 {
		return fmt.Errorf("%w: bottom %.3f top %.3f", ErrBadSection, s.Bottom, s.Top)
	}
	if len(s.Outline) < 3 {
		return fmt.Errorf("%w: outline needs at least 3 points", ErrBadSection)
	}
	for _, xy := range s.Outline {
		if len(xy) != 2 {
			return fmt.Errorf("%w: outline points need 2 coordinates", ErrBadSection)
		}
	}
	if s.Polygon().Area() == 0 {
		return fmt.Errorf("%w: outline has no area", ErrBadSection)
	}
	return nil
}

// OverrideKeys returns the sorted option keys overridden by any object or volume.
func (m *Model) OverrideKeys() []string {
	var keys []string
	for _, o := range m.Objects {
		for k := range o.Config {
			keys = append(keys, k)
		}
		for _, v := range o.Volumes {
			for k := range v.Config {
				keys = append(keys, k)
			}
		}
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

// applyOverrides decodes overrides onto dst through its yaml tags.
func applyOverrides(dst any, overrides map[string]any) error {
	if len(overrides) == 0 {
		return nil
	}
	data, err := yaml.Marshal(overrides)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, dst)
}
