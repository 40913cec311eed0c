// Package print runs the staged slicing pipeline of a whole print: per-object
// slicing stages, support alerts, the wipe tower, skirt and brim, and the
// conflict and clearance checks, with option-driven invalidation between runs.
package print

import (
	"fmt"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/felixgeelhaar/slicecore/internal/domain/state"
)

// PrintStep is a print-wide pipeline step.
type PrintStep int

// Print steps in processing order.
const (
	StepWipeTower PrintStep = iota
	StepAlertWhenSupportsNeeded
	StepSkirtBrim
	StepGCodeExport
	printStepCount
)

var printStepNames = [...]string{
	StepWipeTower:               "wipe tower",
	StepAlertWhenSupportsNeeded: "alert when supports needed",
	StepSkirtBrim:               "skirt and brim",
	StepGCodeExport:             "gcode export",
}

func (s PrintStep) String() string {
	if s < 0 || s >= printStepCount {
		return fmt.Sprintf("print step %d", int(s))
	}
	return printStepNames[s]
}

// Label returns the title-cased name shown in status reports.
func (s PrintStep) Label() string {
	return title(s.String())
}

// ObjectStep is a step run once per print object.
type ObjectStep int

// Object steps in processing order.
const (
	StepSlice ObjectStep = iota
	StepPerimeters
	StepPrepareInfill
	StepInfill
	StepIroning
	StepSupportSpotsSearch
	StepSupportMaterial
	StepEstimateCurledExtrusions
	StepCalculateOverhangingPerimeters
	objectStepCount
)

var objectStepNames = [...]string{
	StepSlice:                          "slice",
	StepPerimeters:                     "perimeters",
	StepPrepareInfill:                  "prepare infill",
	StepInfill:                         "infill",
	StepIroning:                        "ironing",
	StepSupportSpotsSearch:             "support spots search",
	StepSupportMaterial:                "support material",
	StepEstimateCurledExtrusions:       "estimate curled extrusions",
	StepCalculateOverhangingPerimeters: "calculate overhanging perimeters",
}

func (s ObjectStep) String() string {
	if s < 0 || s >= objectStepCount {
		return fmt.Sprintf("object step %d", int(s))
	}
	return objectStepNames[s]
}

// Label returns the title-cased name shown in status reports.
func (s ObjectStep) Label() string {
	return title(s.String())
}

// PrintSteps returns every print step in processing order.
func PrintSteps() []PrintStep {
	out := make([]PrintStep, printStepCount)
	for i := range out {
		out[i] = PrintStep(i)
	}
	return out
}

// ObjectSteps returns every object step in processing order.
func ObjectSteps() []ObjectStep {
	out := make([]ObjectStep, objectStepCount)
	for i := range out {
		out[i] = ObjectStep(i)
	}
	return out
}

// title builds a Caser per call; a Caser must not be shared between goroutines.
func title(s string) string {
	return cases.Title(language.English).String(s)
}

// objectGraph is the cascade of object steps: invalidating a step invalidates
// everything reachable from it.
var objectGraph = sync.OnceValues(func() (*state.DependencyGraph[ObjectStep], error) {
	g := state.NewDependencyGraph[ObjectStep]()
	for _, s := range ObjectSteps() {
		if err := g.Add(s, s.String()); err != nil {
			return nil, err
		}
	}
	g.DependsOn(StepSlice, StepPerimeters, StepSupportMaterial)
	g.DependsOn(StepPerimeters, StepPrepareInfill, StepEstimateCurledExtrusions, StepCalculateOverhangingPerimeters)
	g.DependsOn(StepPrepareInfill, StepInfill)
	g.DependsOn(StepInfill, StepIroning, StepSupportSpotsSearch)
	g.DependsOn(StepSupportMaterial, StepEstimateCurledExtrusions)
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
})

// printGraph makes G-code export depend on every other print step.
var printGraph = sync.OnceValues(func() (*state.DependencyGraph[PrintStep], error) {
	g := state.NewDependencyGraph[PrintStep]()
	for _, s := range PrintSteps() {
		if err := g.Add(s, s.String()); err != nil {
			return nil, err
		}
	}
	g.DependsOn(StepWipeTower, StepGCodeExport)
	g.DependsOn(StepAlertWhenSupportsNeeded, StepGCodeExport)
	g.DependsOn(StepSkirtBrim, StepGCodeExport)
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
})

// objectCascade returns step followed by every step depending on it.
func objectCascade(step ObjectStep) []ObjectStep {
	g, err := objectGraph()
	if err != nil {
		// static table, covered by TestStepGraphs
		panic(err)
	}
	return append([]ObjectStep{step}, g.Closure(step)...)
}

func printCascade(step PrintStep) []PrintStep {
	g, err := printGraph()
	if err != nil {
		panic(err)
	}
	return append([]PrintStep{step}, g.Closure(step)...)
}
