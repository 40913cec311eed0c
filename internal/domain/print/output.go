package print

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"

	"github.com/felixgeelhaar/slicecore/internal/domain/conflict"
	"github.com/felixgeelhaar/slicecore/internal/domain/execution"
	"github.com/felixgeelhaar/slicecore/internal/domain/extrusion"
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
	"github.com/felixgeelhaar/slicecore/internal/domain/sequential"
	"github.com/felixgeelhaar/slicecore/internal/domain/wipetower"
)

// OutputWriter consumes the processed print. Implementations turn it into
// machine code, a report, or anything else downstream of slicing.
type OutputWriter interface {
	Write(ctx context.Context, out *Output) error
}

// ObjectOutput is the processed state of one object.
type ObjectOutput struct {
	Name          string
	ID            string
	Instances     []geometry.Point
	Layers        []*Layer
	SupportLayers []*SupportLayer
}

// Output is a snapshot of everything Process produced.
type Output struct {
	Objects              []ObjectOutput
	Skirt                []SkirtLoop
	Brim                 []*extrusion.Loop
	FirstLayerConvexHull geometry.Polygon
	WipeTower            *wipetower.Data
	ToolChanges          int
	WipingOverrides      int
	Extruders            []int
	Conflict             *conflict.Result
	Collision            *sequential.Collision
	Warnings             []StepWarning
}

// Output returns the current processed state. The layers are shared with the
// print and must not be modified.
func (p *Print) Output() *Output {
	out := &Output{
		Skirt:                p.skirt,
		Brim:                 p.brim,
		FirstLayerConvexHull: p.firstLayerConvexHull,
		WipeTower:            p.wipeTower,
		WipingOverrides:      p.wipingOverrides(),
		Extruders:            p.Extruders(),
		Conflict:             p.conflict,
		Collision:            p.collision,
		Warnings:             p.Warnings(),
	}
	if p.toolOrdering != nil {
		out.ToolChanges = p.toolOrdering.ToolChangesCount()
	}
	for _, o := range p.objects {
		out.Objects = append(out.Objects, ObjectOutput{
			Name:          o.name,
			ID:            o.id.String(),
			Instances:     o.Shifts(),
			Layers:        o.layers,
			SupportLayers: o.supportLayers,
		})
	}
	return out
}

// Fingerprint hashes every extrusion of the output. Two runs over the same
// model and configuration give the same fingerprint.
func (o *Output) Fingerprint() string {
	h, _ := blake2b.New256(nil)
	for _, obj := range o.Objects {
		fmt.Fprintf(h, "object %s %v\n", obj.Name, obj.Instances)
		for _, l := range obj.Layers {
			fmt.Fprintf(h, "layer %.6f\n", l.PrintZ)
			writePaths(h, l.Paths())
		}
		for _, s := range obj.SupportLayers {
			fmt.Fprintf(h, "support %.6f\n", s.PrintZ)
			writePaths(h, s.Fills)
		}
	}
	for _, s := range o.Skirt {
		fmt.Fprintf(h, "skirt %d\n", s.Extruder)
		writePaths(h, s.Loop.Paths)
	}
	for _, b := range o.Brim {
		fmt.Fprintln(h, "brim")
		writePaths(h, b.Paths)
	}
	if o.WipeTower.Generated() {
		for _, layer := range o.WipeTower.ToolChanges {
			for _, tc := range layer {
				fmt.Fprintf(h, "toolchange %.6f %d %d\n", tc.PrintZ, tc.InitialTool, tc.NewTool)
				writePaths(h, tc.Paths)
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writePaths(w io.Writer, paths []extrusion.Path) {
	for _, p := range paths {
		fmt.Fprintf(w, "%s %.6f", p.Kind, p.MM3PerMM)
		for _, pt := range p.Polyline {
			fmt.Fprintf(w, " %d,%d", pt.X, pt.Y)
		}
		fmt.Fprintln(w)
	}
}

// Export hands the processed print to w. The print must be fully processed.
// Once an export succeeded, later exports rewrite the same output without
// running the step again.
func (p *Print) Export(rc execution.RunContext, w OutputWriter) error {
	if len(p.objects) == 0 {
		return newEmptyPrintError()
	}
	for _, s := range ObjectSteps() {
		if !p.IsObjectStepDone(s) {
			return newNotProcessedError(s.Label())
		}
	}
	for _, s := range PrintSteps() {
		if s != StepGCodeExport && !p.state.IsDone(s) {
			return newNotProcessedError(s.Label())
		}
	}
	out := p.Output()
	if p.state.IsDone(StepGCodeExport) {
		return w.Write(rc.Context(), out)
	}
	_, err := p.runStep(rc, StepGCodeExport, func(rc execution.RunContext) error {
		return w.Write(rc.Context(), out)
	})
	return err
}
