package wipetower

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/slicecore/internal/domain/config"
	"github.com/felixgeelhaar/slicecore/internal/domain/execution"
	"github.com/felixgeelhaar/slicecore/internal/domain/geometry"
	"github.com/felixgeelhaar/slicecore/internal/domain/toolorder"
)

// ErrUnusableOrdering is returned when the tool ordering has no tower layers.
var ErrUnusableOrdering = errors.New("tool ordering cannot host a wipe tower")

// CandidateSource lists the extrusions of a layer that may absorb purge volume.
type CandidateSource func(layer int, lt *toolorder.LayerTools) []toolorder.Candidate

// Input is what Build needs to plan and generate a tower.
type Input struct {
	Config   *config.PrintConfig
	Ordering *toolorder.ToolOrdering
	// Candidates may be nil, in which case nothing is wiped into objects.
	Candidates CandidateSource
	Placement  Placement
}

// Placement positions the tower on the bed.
type Placement struct {
	X, Y     float64
	Rotation float64
}

// Build plans every tool change of the ordering, assigns purge volume to wiping
// extrusions where possible and generates the tower. The ordering's wiping
// records are updated in place.
func Build(rc execution.RunContext, in Input) (*Data, error) {
	cfg, ordering := in.Config, in.Ordering
	if ordering == nil || ordering.Empty() || !ordering.HasWipeTower() {
		return nil, ErrUnusableOrdering
	}
	log := rc.Logger()
	volumes := cfg.WipeVolumes()

	all := ordering.AllExtruders()
	if len(all) == 0 {
		return nil, ErrUnusableOrdering
	}
	tower := New(cfg, ordering.FirstExtruder())
	priming := tower.Prime(cfg.FirstLayerHeight, all)
	current := all[len(all)-1]

	layers := ordering.Layers()
	for i, lt := range layers {
		if err := rc.Err(); err != nil {
			return nil, err
		}
		if !lt.HasWipeTower {
			continue
		}
		first := i == 0
		tower.PlanToolchange(lt.PrintZ, lt.WipeTowerLayerHeight, current, current, 0)
		for _, e := range lt.Extruders {
			if !IsToolchangeRequired(first, all[len(all)-1], e, current) {
				continue
			}
			volume := volumes[current][e] - cfg.MinimalPurgeAt(e)
			if in.Candidates != nil {
				volume = lt.Wiping().MarkWipingExtrusions(in.Candidates(i, lt), e, volume)
			}
			volume = max(0, volume) + cfg.MinimalPurgeAt(e)
			tower.PlanToolchange(lt.PrintZ, lt.WipeTowerLayerHeight, current, e, volume)
			current = e
		}
		if i+1 == len(layers) || layers[i+1].WipeTowerPartitions == 0 {
			break
		}
	}

	changes := tower.Generate()
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: nothing planned", ErrUnusableOrdering)
	}
	log.Debug(rc.Context(), "wipe tower generated")

	back := ordering.Back()
	z := back.PrintZ
	if back.WipeTowerPartitions > 0 && tower.LayerFinished() {
		z += back.WipeTowerLayerHeight
	}
	final := tower.FinalPurge(z, back.WipeTowerLayerHeight)

	return &Data{
		Width:                  tower.Width(),
		Depth:                  tower.Depth(),
		BrimWidth:              tower.BrimWidth(),
		FirstLayerHeight:       cfg.FirstLayerHeight,
		ConeAngle:              cfg.WipeTowerConeAngle,
		Height:                 tower.Height(),
		Position:               geometry.Pt(in.Placement.X, in.Placement.Y),
		Rotation:               in.Placement.Rotation,
		ZDepth:                 tower.ZDepthPairs(),
		Priming:                priming,
		ToolChanges:            changes,
		FinalPurge:             &final,
		UsedFilamentUntilLayer: tower.UsedFilamentUntilLayer(),
		NumberOfToolChanges:    tower.NumberOfToolChanges(),
		Ordering:               ordering,
	}, nil
}
