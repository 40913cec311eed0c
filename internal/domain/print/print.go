package print

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/felixgeelhaar/slicecore/internal/domain/config"
	"github.com/felixgeelhaar/slicecore/internal/domain/conflict"
	"github.com/felixgeelhaar/slicecore/internal/domain/execution"
	"github.com/felixgeelhaar/slicecore/internal/domain/extrusion"
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
	"github.com/felixgeelhaar/slicecore/internal/domain/model"
	"github.com/felixgeelhaar/slicecore/internal/domain/sequential"
	"github.com/felixgeelhaar/slicecore/internal/domain/state"
	"github.com/felixgeelhaar/slicecore/internal/domain/toolorder"
	"github.com/felixgeelhaar/slicecore/internal/domain/wipetower"
	"github.com/felixgeelhaar/slicecore/internal/ports"
)

// ApplyStatus tells what Apply did to the processed state.
type ApplyStatus int

// Apply outcomes.
const (
	// ApplyUnchanged means model and configuration are the same as before.
	ApplyUnchanged ApplyStatus = iota
	// ApplyChanged means something changed without invalidating any step.
	ApplyChanged
	// ApplyInvalidated means at least one step has to run again.
	ApplyInvalidated
)

func (s ApplyStatus) String() string {
	switch s {
	case ApplyUnchanged:
		return "unchanged"
	case ApplyChanged:
		return "changed"
	case ApplyInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// SkirtLoop is one skirt loop and the extruder printing it.
type SkirtLoop struct {
	Loop     *extrusion.Loop
	Extruder int
}

// Print is a set of objects printed together with one print configuration.
//
// Apply and InvalidateKeys change objects that Process reads without a lock,
// so callers must not run them concurrently with Process, nor start Process
// while they run. Only step state and the cancel hook are synchronized:
// invalidating a running step cancels the Process running it.
type Print struct {
	mu     sync.Mutex
	cancel context.CancelFunc

	config    config.PrintConfig
	unknown   []string
	placement model.WipeTowerPlacement
	objects   []*PrintObject
	regions   []*PrintRegion
	state     *state.Machine[PrintStep]

	skirt                []SkirtLoop
	brim                 []*extrusion.Loop
	skirtConvexHull      geometry.Polygon
	firstLayerConvexHull geometry.Polygon
	wipeTower            *wipetower.Data
	toolOrdering         *toolorder.ToolOrdering

	conflict      *conflict.Result
	collision     *sequential.Collision
	checkWarnings []StepWarning
}

// New creates an empty print with the default configuration.
func New() *Print {
	return &Print{
		config:    config.DefaultPrintConfig(),
		placement: model.DefaultWipeTowerPlacement(),
		state:     state.NewMachine[PrintStep](int(printStepCount)),
	}
}

// Config returns the print configuration.
func (p *Print) Config() config.PrintConfig { return p.config }

// Objects returns the print objects in model order.
func (p *Print) Objects() []*PrintObject { return p.objects }

// Regions returns every region of every object.
func (p *Print) Regions() []*PrintRegion { return p.regions }

// Skirt returns the skirt loops, outermost first.
func (p *Print) Skirt() []SkirtLoop { return p.skirt }

// Brim returns the brim loops on the bed.
func (p *Print) Brim() []*extrusion.Loop { return p.brim }

// FirstLayerConvexHull returns the hull of everything printed on the first layer.
func (p *Print) FirstLayerConvexHull() geometry.Polygon { return p.firstLayerConvexHull }

// WipeTower returns the generated tower, or nil.
func (p *Print) WipeTower() *wipetower.Data { return p.wipeTower }

// ToolOrdering returns the extruder schedule of the last run, or nil.
func (p *Print) ToolOrdering() *toolorder.ToolOrdering { return p.toolOrdering }

// Conflict returns the lowest collision between extrusions, or nil.
func (p *Print) Conflict() *conflict.Result { return p.conflict }

// Collision returns the sequential printing clearance violation, or nil.
func (p *Print) Collision() *sequential.Collision { return p.collision }

// IsStepDone reports whether a print step is done.
func (p *Print) IsStepDone(step PrintStep) bool { return p.state.IsDone(step) }

// IsObjectStepDone reports whether step is done for every object. A print
// without objects has nothing done.
func (p *Print) IsObjectStepDone(step ObjectStep) bool {
	if len(p.objects) == 0 {
		return false
	}
	for _, o := range p.objects {
		if !o.state.IsDone(step) {
			return false
		}
	}
	return true
}

// WipeTowerEstimate returns the tower extents expected before processing,
// or the generated tower once the wipe tower step is done.
func (p *Print) WipeTowerEstimate() wipetower.Data {
	if p.state.IsDone(StepWipeTower) && p.wipeTower.Generated() {
		return *p.wipeTower
	}
	return wipetower.Estimate(&p.config, len(p.Extruders()))
}

// Apply brings the print in line with the model and configuration bundle,
// invalidating the steps whose input changed.
func (p *Print) Apply(m *model.Model, b config.Bundle) (ApplyStatus, error) {
	if err := m.Validate(); err != nil {
		return ApplyUnchanged, newValidationError(err.Error())
	}
	seen := make(map[model.ObjectID]bool, len(m.Objects))
	for _, mo := range m.Objects {
		if seen[mo.ID] {
			return ApplyUnchanged, newValidationError(fmt.Sprintf("duplicate object id %s", mo.ID))
		}
		seen[mo.ID] = true
	}

	// resolve everything up front so a bad override leaves the print untouched
	resolved := make([]resolvedObject, len(m.Objects))
	for i, mo := range m.Objects {
		ocfg, err := mo.ResolveConfig(b.Object)
		if err != nil {
			return ApplyUnchanged, newValidationError(fmt.Sprintf("object %q: %v", mo.Name, err))
		}
		regions, err := resolveRegions(mo, b.Region)
		if err != nil {
			return ApplyUnchanged, err
		}
		resolved[i] = resolvedObject{object: mo, config: ocfg, regions: regions}
	}

	changed, invalidated := false, false
	note := func(inv bool) {
		changed = true
		invalidated = invalidated || inv
	}

	// Keys appearing in or disappearing from the unknown set count as changed
	// unknown options.
	printKeys := config.Diff(p.config, b.Print)
	printKeys = append(printKeys, symmetricDifference(p.unknown, b.Unknown)...)
	if len(printKeys) > 0 {
		p.config = b.Print
		note(p.invalidateByPrintKeys(printKeys))
	}
	p.unknown = slices.Clone(b.Unknown)

	if m.WipeTower != p.placement {
		p.placement = m.WipeTower
		note(p.invalidateSteps([]PrintStep{StepGCodeExport}))
	}

	old := make(map[model.ObjectID]*PrintObject, len(p.objects))
	for _, o := range p.objects {
		old[o.id] = o
	}
	next := make([]*PrintObject, 0, len(m.Objects))
	for _, r := range resolved {
		mo, ocfg := r.object, r.config
		po, ok := old[mo.ID]
		if !ok {
			po = newPrintObject(p, mo, ocfg)
			po.applyRegions(r.regions)
			next = append(next, po)
			continue
		}
		delete(old, mo.ID)
		next = append(next, po)

		po.name = mo.Name
		if !sameGeometry(po.volumes, mo.Volumes) {
			po.setGeometry(mo)
			note(po.invalidateSteps([]ObjectStep{StepSlice}))
		}
		if !sameInstances(po.instances, mo.Instances) {
			po.setInstances(mo.Instances)
			note(p.invalidateSteps([]PrintStep{StepSkirtBrim}))
		}
		if keys := config.Diff(po.config, ocfg); len(keys) > 0 {
			po.config = ocfg
			note(po.invalidateByKeys(keys, false))
		}
		keys, extreme, rebuilt := po.applyRegions(r.regions)
		if rebuilt {
			note(true)
		}
		if len(keys) > 0 {
			note(po.invalidateByKeys(keys, extreme))
		}
	}

	// added, removed or reordered objects change every print step
	if len(old) > 0 || !slices.EqualFunc(p.objects, next, func(a, b *PrintObject) bool { return a == b }) {
		note(p.invalidateSteps(PrintSteps()))
	}
	p.objects = next

	p.regions = p.regions[:0]
	for _, o := range p.objects {
		for _, r := range o.Regions() {
			r.index = len(p.regions)
			p.regions = append(p.regions, r)
		}
	}

	switch {
	case invalidated:
		return ApplyInvalidated, nil
	case changed:
		return ApplyChanged, nil
	default:
		return ApplyUnchanged, nil
	}
}

type resolvedObject struct {
	object  *model.Object
	config  config.ObjectConfig
	regions []config.RegionConfig
}

// resolveRegions returns the region configuration of every volume of m.
func resolveRegions(m *model.Object, base config.RegionConfig) ([]config.RegionConfig, error) {
	cfgs := make([]config.RegionConfig, len(m.Volumes))
	for i := range m.Volumes {
		cfg, err := m.Volumes[i].ResolveRegion(base)
		if err != nil {
			return nil, newValidationError(fmt.Sprintf("object %q volume %q: %v", m.Name, m.Volumes[i].Name, err))
		}
		cfgs[i] = cfg
	}
	return cfgs, nil
}

// applyRegions assigns the resolved volume configurations to regions. When
// volumes group into regions the same way as before, the regions are updated
// in place and the changed keys returned; otherwise the regions are rebuilt and
// the object is sliced again, reporting whether that invalidated anything.
func (o *PrintObject) applyRegions(cfgs []config.RegionConfig) (keys []string, extremeDensity, invalidated bool) {
	group := make([]int, len(cfgs))
	var distinct []config.RegionConfig
	for i, c := range cfgs {
		g := slices.IndexFunc(distinct, func(d config.RegionConfig) bool { return reflect.DeepEqual(d, c) })
		if g < 0 {
			distinct = append(distinct, c)
			g = len(distinct) - 1
		}
		group[i] = g
	}

	if o.volumeReg != nil && samePartition(o.volumeReg, group) {
		done := make(map[*PrintRegion]bool)
		for i, r := range o.volumeReg {
			if done[r] {
				continue
			}
			done[r] = true
			next := distinct[group[i]]
			diff := config.Diff(r.Config, next)
			if slices.Contains(diff, "fill_density") && (extremeFill(r.Config.FillDensity) || extremeFill(next.FillDensity)) {
				extremeDensity = true
			}
			keys = append(keys, diff...)
			r.Config = next
		}
		slices.Sort(keys)
		return slices.Compact(keys), extremeDensity, false
	}

	rebuilt := o.volumeReg != nil
	regs := make([]*PrintRegion, len(distinct))
	for g, c := range distinct {
		regs[g] = &PrintRegion{Config: c}
	}
	o.volumeReg = make([]*PrintRegion, len(cfgs))
	for i, g := range group {
		o.volumeReg[i] = regs[g]
	}
	if rebuilt {
		invalidated = o.invalidateSteps([]ObjectStep{StepSlice})
	}
	return nil, false, invalidated
}

func extremeFill(density float64) bool {
	return density <= 0 || density >= 100
}

func samePartition(regs []*PrintRegion, group []int) bool {
	if len(regs) != len(group) {
		return false
	}
	for i := range regs {
		for j := i + 1; j < len(regs); j++ {
			if (regs[i] == regs[j]) != (group[i] == group[j]) {
				return false
			}
		}
	}
	return true
}

func sameGeometry(a, b []model.Volume) bool {
	return slices.EqualFunc(a, b, func(x, y model.Volume) bool {
		return reflect.DeepEqual(x.Sections, y.Sections)
	})
}

func sameInstances(have []PrintInstance, want []model.Instance) bool {
	return slices.EqualFunc(have, want, func(h PrintInstance, w model.Instance) bool {
		return h.Shift == w.Shift()
	})
}

func symmetricDifference(a, b []string) []string {
	var out []string
	for _, k := range a {
		if !slices.Contains(b, k) {
			out = append(out, k)
		}
	}
	for _, k := range b {
		if !slices.Contains(a, k) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// cancelProcessing stops a running Process. It is called under a machine
// lock and must not touch step state.
func (p *Print) cancelProcessing() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

type objectStage struct {
	step ObjectStep
	run  func(*PrintObject, execution.RunContext) error
}

var (
	objectStagesA = []objectStage{
		{StepSlice, (*PrintObject).slice},
		{StepPerimeters, (*PrintObject).makePerimeters},
		{StepPrepareInfill, (*PrintObject).prepareInfill},
		{StepInfill, (*PrintObject).makeInfill},
		{StepIroning, (*PrintObject).makeIroning},
	}
	objectStagesB = []objectStage{
		{StepSupportMaterial, (*PrintObject).generateSupport},
		{StepEstimateCurledExtrusions, (*PrintObject).estimateCurledExtrusions},
		{StepCalculateOverhangingPerimeters, (*PrintObject).calculateOverhangingPerimeters},
	}
)

// Process runs every step that is not done. Object stages run in parallel on
// the pool of rc, print stages on the calling goroutine.
func (p *Print) Process(rc execution.RunContext) ([]execution.StepResult, error) {
	ctx, cancel := context.WithCancel(rc.Context())
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.cancel = nil
		p.mu.Unlock()
		cancel()
	}()
	rc = rc.WithContext(ctx)
	log := rc.Logger().With(ports.F("objects", len(p.objects)))

	log.Info(ctx, "processing print")
	results, err := execution.NewExecutor().Execute(rc.WithLogger(log), []execution.Stage{
		{Name: "Slicing objects", Percent: 0, Run: func(rc execution.RunContext) (bool, error) {
			return p.runObjectStages(rc, objectStagesA)
		}},
		{Name: StepSupportSpotsSearch.Label(), Percent: 50, Run: p.searchSupportSpots},
		{Name: StepAlertWhenSupportsNeeded.Label(), Percent: 60, Run: p.alertWhenSupportsNeeded},
		{Name: "Generating support material", Percent: 70, Run: func(rc execution.RunContext) (bool, error) {
			return p.runObjectStages(rc, objectStagesB)
		}},
		{Name: StepWipeTower.Label(), Percent: 80, Run: p.makeWipeTower},
		{Name: StepSkirtBrim.Label(), Percent: 88, Run: p.makeSkirtBrim},
		{Name: "Checking conflicts", Percent: 95, Run: p.checkConflicts},
		{Name: "Checking clearance", Percent: 98, Run: p.checkSequential},
	})
	if err != nil {
		p.markCanceled()
		if errors.Is(err, execution.ErrCanceled) {
			log.Info(ctx, "processing canceled")
		}
		return results, err
	}
	rc.Status(100, "Done", "")
	log.Info(ctx, "print processed")
	return results, nil
}

func (p *Print) markCanceled() {
	p.state.MarkCanceled()
	for _, o := range p.objects {
		o.state.MarkCanceled()
	}
}

func (p *Print) runObjectStages(rc execution.RunContext, stages []objectStage) (bool, error) {
	var ran atomic.Bool
	err := rc.Pool().ForEach(rc, len(p.objects), func(rc execution.RunContext, i int) error {
		o := p.objects[i]
		for _, st := range stages {
			did, err := o.runStep(rc, st.step, func(rc execution.RunContext) error { return st.run(o, rc) })
			if err != nil {
				return err
			}
			if did {
				ran.Store(true)
			}
		}
		return nil
	})
	return ran.Load(), err
}

// runStep runs fn when step is not done, releasing data left by an
// invalidated or canceled run first.
func (o *PrintObject) runStep(rc execution.RunContext, step ObjectStep, fn func(execution.RunContext) error) (bool, error) {
	if o.state.QueryResetDirty(step) {
		o.clearStep(step)
	}
	started, err := o.state.SetStarted(step, rc.Err)
	if err != nil || !started {
		return false, err
	}
	rc.Logger().Debug(rc.Context(), "object step started", ports.F("object", o.name), ports.F("step", step.String()))
	if err := fn(rc); err != nil {
		if errors.Is(err, execution.ErrCanceled) {
			return false, err
		}
		return false, newSlicingError(o.name, step.String(), err)
	}
	if _, err := o.state.SetDone(step, rc.Err); err != nil {
		return false, err
	}
	return true, nil
}

func (o *PrintObject) clearStep(step ObjectStep) {
	switch step {
	case StepSupportSpotsSearch:
		o.shared.Reset()
	case StepSupportMaterial:
		o.supportLayers = nil
	case StepEstimateCurledExtrusions:
		for _, l := range o.layers {
			l.CurledLines = nil
		}
	}
}

func (p *Print) runStep(rc execution.RunContext, step PrintStep, fn func(execution.RunContext) error) (bool, error) {
	if p.state.QueryResetDirty(step) {
		p.clearStep(step)
	}
	started, err := p.state.SetStarted(step, rc.Err)
	if err != nil || !started {
		return false, err
	}
	if err := fn(rc); err != nil {
		var perr *Error
		if errors.Is(err, execution.ErrCanceled) || errors.As(err, &perr) {
			return false, err
		}
		return false, newSlicingError("", step.String(), err)
	}
	if _, err := p.state.SetDone(step, rc.Err); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Print) clearStep(step PrintStep) {
	switch step {
	case StepWipeTower:
		p.wipeTower, p.toolOrdering = nil, nil
	case StepSkirtBrim:
		p.skirt, p.brim = nil, nil
		p.skirtConvexHull, p.firstLayerConvexHull = nil, nil
	}
}

func (p *Print) searchSupportSpots(rc execution.RunContext) (bool, error) {
	ran := false
	for _, o := range p.objects {
		did, err := o.runStep(rc, StepSupportSpotsSearch, func(rc execution.RunContext) error {
			spots, err := o.searchSupportSpots(rc)
			if err != nil {
				return err
			}
			o.shared.Reset()
			return o.shared.Store(spots)
		})
		if err != nil {
			return ran, err
		}
		ran = ran || did
	}
	return ran, nil
}

func (p *Print) alertWhenSupportsNeeded(rc execution.RunContext) (bool, error) {
	return p.runStep(rc, StepAlertWhenSupportsNeeded, func(rc execution.RunContext) error {
		var issues []ObjectIssues
		for _, o := range p.objects {
			if o.HasSupport() {
				continue
			}
			spots, err := o.shared.Load()
			if err != nil {
				return fmt.Errorf("support spots of %q: %w", o.name, err)
			}
			if is := GatherIssues(spots); len(is) > 0 {
				issues = append(issues, ObjectIssues{Object: o.name, HasBrim: o.HasBrim(), Issues: is})
			}
		}
		msg := GroupSupportIssues(issues)
		if msg == "" {
			return nil
		}
		p.state.AddWarning(StepAlertWhenSupportsNeeded, state.WarningNonCritical, msg, 0)
		rc.Warning(StepAlertWhenSupportsNeeded.Label(), msg)
		rc.Logger().Warn(rc.Context(), "print stability issues", ports.F("objects", len(issues)))
		return nil
	})
}

// Extruders returns the sorted zero-based extruders the print uses: those of
// the objects, of their support, and the wipe tower extruder.
func (p *Print) Extruders() []int {
	var out []int
	for _, o := range p.objects {
		own := o.Extruders()
		out = append(out, own...)
		ids, followsActive := o.SupportExtruders()
		out = append(out, ids...)
		if followsActive {
			out = append(out, own...)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if p.config.HasWipeTower() && p.config.WipeTowerExtruder != 0 && len(out) > 1 {
		out = append(out, clampExtruder(p.config.WipeTowerExtruder-1, p.config.ExtruderCount()))
		slices.Sort(out)
		out = slices.Compact(out)
	}
	return out
}

// StepWarning is a warning together with where it was raised.
type StepWarning struct {
	Step   string
	Object string
	state.Warning
}

// Warnings returns the current warnings of every step and of the last checks.
func (p *Print) Warnings() []StepWarning {
	var out []StepWarning
	for _, s := range PrintSteps() {
		for _, w := range p.state.Warnings(s) {
			out = append(out, StepWarning{Step: s.Label(), Warning: w})
		}
	}
	for _, o := range p.objects {
		for _, s := range ObjectSteps() {
			for _, w := range o.state.Warnings(s) {
				out = append(out, StepWarning{Step: s.Label(), Object: o.name, Warning: w})
			}
		}
	}
	return append(out, p.checkWarnings...)
}
