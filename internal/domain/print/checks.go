package print

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/slicecore/internal/domain/conflict"
	"github.com/felixgeelhaar/slicecore/internal/domain/execution"
	"github.com/felixgeelhaar/slicecore/internal/domain/extrusion"
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
	"github.com/felixgeelhaar/slicecore/internal/domain/sequential"
	"github.com/felixgeelhaar/slicecore/internal/domain/state"
	"github.com/felixgeelhaar/slicecore/internal/domain/wipetower"
	"github.com/felixgeelhaar/slicecore/internal/ports"
)

// checkConflicts looks for extrusions of different objects or of the tower
// crossing each other. It runs on every Process since the tower may move
// without being regenerated.
func (p *Print) checkConflicts(rc execution.RunContext) (bool, error) {
	p.conflict = nil
	p.checkWarnings = p.checkWarnings[:0]

	in := conflict.Input{}
	if p.wipeTower.Generated() {
		p.wipeTower.Position = geometry.Pt(p.placement.X, p.placement.Y)
		p.wipeTower.Rotation = p.placement.Rotation
		in.Tower = wipetower.FakePaths(p.wipeTower)
	}
	for _, o := range p.objects {
		co := conflict.Object{Name: o.name, Layers: collisionPaths(o.layers), Instances: o.Shifts()}
		for _, s := range o.supportLayers {
			if len(s.Fills) > 0 {
				co.SupportLayers = append(co.SupportLayers, s.Fills)
			}
		}
		in.Objects = append(in.Objects, co)
	}

	res, err := conflict.Check(rc, in)
	switch {
	case errors.Is(err, conflict.ErrPathologicalGeometry):
		rc.Logger().Warn(rc.Context(), "conflict check skipped", ports.Err(err))
		p.addCheckWarning("Checking conflicts", state.WarningNonCritical,
			"Conflict checking was skipped because of degenerate geometry.")
		return true, nil
	case err != nil:
		return false, err
	}
	if res != nil {
		p.conflict = res
		p.addCheckWarning("Checking conflicts", state.WarningCritical,
			fmt.Sprintf("Conflicts of G-code paths have been found at layer %.2f mm. Objects %s and %s collide.",
				res.Height, res.Object1, res.Object2))
	}
	return true, nil
}

// checkSequential verifies the extruder clearance of objects printed one
// after another.
func (p *Print) checkSequential(rc execution.RunContext) (bool, error) {
	p.collision = nil
	if !p.config.CompleteObjects || len(p.objects) == 0 {
		return false, nil
	}
	objects := make([]sequential.Object, len(p.objects))
	for i, o := range p.objects {
		objects[i] = sequential.Object{
			Name:      o.name,
			Footprint: o.Footprint(),
			Height:    o.height,
			Instances: o.Shifts(),
		}
	}
	c, err := sequential.Check(objects, sequential.Clearance{
		Radius: p.config.ExtruderClearanceRadius,
		Height: p.config.ExtruderClearanceHeight,
	})
	if err != nil {
		return false, err
	}
	if c != nil {
		p.collision = c
		p.addCheckWarning("Checking clearance", state.WarningCritical, c.String())
		rc.Logger().Warn(rc.Context(), "sequential printing collision", ports.F("collision", c.String()))
	}
	return true, nil
}

func (p *Print) addCheckWarning(step string, level state.WarningLevel, msg string) {
	p.checkWarnings = append(p.checkWarnings, StepWarning{
		Step:    step,
		Warning: state.Warning{Level: level, Message: msg, Current: true},
	})
}

// collisionPaths returns the per-layer paths of an object the way they are
// handed to the conflict check.
func collisionPaths(layers []*Layer) [][]extrusion.Path {
	out := make([][]extrusion.Path, len(layers))
	for i, l := range layers {
		out[i] = l.Paths()
	}
	return out
}
