package print

import (
	"fmt"
	"math"
	"slices"
)

// Warning ids returned by Validate.
const (
	WarnBedTemperaturesDiffer     = "BED_TEMPS_DIFFER"
	WarnTowerNozzleDiameterDiffer = "WIPE_TOWER_NOZZLE_DIAMETER_DIFFER"
	WarnSupportNozzleDiffer       = "SUPPORT_NOZZLE_DIAMETER_DIFFER"
)

const (
	validateEpsilon = 1e-4
	// bedTemperatureSpread is the largest bed temperature difference between
	// extruders that does not raise a warning.
	bedTemperatureSpread = 15
)

var towerFlavors = []string{"reprap", "reprapfirmware", "repetier", "marlin", "marlin2", "klipper"}

// Validate checks that the applied model and configuration can be printed.
// It returns warning ids for settings that are printable but questionable.
func (p *Print) Validate() (warnings []string, err error) {
	extruders := p.Extruders()
	warnings = p.validationWarnings(extruders)

	if len(p.objects) == 0 {
		return warnings, newEmptyPrintError()
	}
	if len(extruders) == 0 {
		return warnings, newValidationError("The supplied settings will cause an empty print.")
	}
	if p.config.AvoidCrossingPerimeters && p.config.AvoidCrossingCurledOverhangs {
		return warnings, newValidationError("Avoid crossing perimeters option and avoid crossing curled overhangs option cannot be both enabled together.")
	}
	if p.config.SpiralVase {
		copies := 0
		for _, o := range p.objects {
			copies += len(o.instances)
		}
		if copies > 1 && !p.config.CompleteObjects {
			return warnings, newValidationError(`Only a single object may be printed at a time in Spiral Vase mode. Either remove all but the last object, or enable sequential mode by "complete_objects".`)
		}
		if len(p.regions) > 1 {
			return warnings, newValidationError("The Spiral Vase option can only be used when printing single material objects.")
		}
	}
	for _, o := range p.objects {
		if err := p.validateHeight(o); err != nil {
			return warnings, err
		}
	}
	if p.config.HasWipeTower() {
		if err := p.validateWipeTower(extruders); err != nil {
			return warnings, err
		}
	}

	minNozzle, maxNozzle := math.MaxFloat64, 0.0
	for _, e := range extruders {
		d := p.config.NozzleDiameterAt(e)
		minNozzle, maxNozzle = min(minNozzle, d), max(maxNozzle, d)
	}
	for _, o := range p.objects {
		if o.HasSupport() {
			cfg := o.config
			if (cfg.SupportMaterialExtruder == 0 || cfg.SupportMaterialInterfaceExtruder == 0) && maxNozzle-minNozzle > validateEpsilon {
				warnings = appendWarning(warnings, WarnSupportNozzleDiffer)
			}
			if p.config.HasWipeTower() && cfg.SupportMaterialContactDistance != 0 &&
				(cfg.SupportMaterialExtruder != 0 || cfg.SupportMaterialInterfaceExtruder != 0) {
				return warnings, newValidationError("The Wipe Tower currently supports the non-soluble supports only if they are printed with the current extruder without triggering a tool change. (both support_material_extruder and support_material_interface_extruder need to be set to 0).")
			}
		}
		if p.config.FirstLayerHeight > minNozzle {
			return warnings, newValidationError("First layer height can't be greater than nozzle diameter")
		}
		lh := o.config.LayerHeight
		if lh > minNozzle {
			return warnings, newValidationError("Layer height can't be greater than nozzle diameter")
		}
		if o.HasSupport() {
			if err := validateExtrusionWidth("support_material_extrusion_width", o.config.SupportMaterialExtrusionWidth, lh, maxNozzle); err != nil {
				return warnings, err
			}
		}
		for _, r := range o.Regions() {
			c := r.Config
			for _, w := range []struct {
				key   string
				width float64
			}{
				{"perimeter_extrusion_width", c.PerimeterExtrusionWidth},
				{"external_perimeter_extrusion_width", c.ExternalPerimeterExtrusionWidth},
				{"infill_extrusion_width", c.InfillExtrusionWidth},
				{"solid_infill_extrusion_width", c.SolidInfillExtrusionWidth},
				{"top_infill_extrusion_width", c.TopInfillExtrusionWidth},
			} {
				if err := validateExtrusionWidth(w.key, w.width, lh, maxNozzle); err != nil {
					return warnings, err
				}
			}
		}
	}
	return warnings, nil
}

func (p *Print) validationWarnings(extruders []int) []string {
	var out []string
	if p.towerNozzlesDiffer(extruders) {
		out = appendWarning(out, WarnTowerNozzleDiameterDiffer)
	}
	bed, first := p.config.BedTemperature, p.config.FirstLayerBedTemperature
	at := func(v []int, e int) int {
		switch {
		case e < len(v):
			return v[e]
		case len(v) > 0:
			return v[0]
		}
		return 0
	}
	for a := 0; a < len(extruders); a++ {
		for b := a + 1; b < len(extruders); b++ {
			ea, eb := extruders[a], extruders[b]
			if abs(at(bed, ea)-at(bed, eb)) > bedTemperatureSpread || abs(at(first, ea)-at(first, eb)) > bedTemperatureSpread {
				return appendWarning(out, WarnBedTemperaturesDiffer)
			}
		}
	}
	return out
}

// validateHeight checks the layer stack of o against the build volume.
func (p *Print) validateHeight(o *PrintObject) error {
	if o.config.LayerHeight <= 0 || p.config.FirstLayerHeight <= 0 {
		return newValidationError(fmt.Sprintf("The object %s has a layer height of zero.", o.name))
	}
	spans := layerSpans(o.height, p.config.FirstLayerHeight, o.config.LayerHeight)
	if len(spans) == 0 || p.config.MaxPrintHeight <= 0 {
		return nil
	}
	top := spans[len(spans)-1].printZ
	if top <= p.config.MaxPrintHeight+validateEpsilon {
		return nil
	}
	below := 0.0
	if len(spans) > 1 {
		below = spans[len(spans)-2].printZ
	}
	if (below+top)/2 > p.config.MaxPrintHeight+validateEpsilon {
		return newValidationError(fmt.Sprintf("The object %s exceeds the maximum build volume height.", o.name))
	}
	return newValidationError(fmt.Sprintf("While the object %s itself fits the build volume, its last layer exceeds the maximum build volume height.", o.name))
}

func (p *Print) validateWipeTower(extruders []int) error {
	cfg := &p.config
	firstFilament := cfg.FilamentDiameterAt(extruders[0])
	for _, e := range extruders {
		if d := cfg.FilamentDiameterAt(e); math.Abs((d-firstFilament)/firstFilament) > 0.1 {
			return newValidationError("The wipe tower is only supported if all extruders use filaments of the same diameter.")
		}
	}
	if !slices.Contains(towerFlavors, cfg.GCodeFlavor) {
		return newValidationError("The Wipe Tower is currently only supported for the Marlin, Klipper, RepRap/Sprinter, RepRapFirmware and Repetier G-code flavors.")
	}
	if !cfg.UseRelativeEDistances {
		return newValidationError("The Wipe Tower is currently only supported with the relative extruder addressing (use_relative_e_distances=1).")
	}
	if cfg.OozePrevention && cfg.SingleExtruderMultiMaterial {
		return newValidationError("Ooze prevention is only supported with the wipe tower when 'single_extruder_multi_material' is off.")
	}
	if cfg.UseVolumetricE {
		return newValidationError("The Wipe Tower currently does not support volumetric E (use_volumetric_e=0).")
	}
	if cfg.CompleteObjects && len(extruders) > 1 {
		return newValidationError("The Wipe Tower is currently not supported for multimaterial sequential prints.")
	}
	first := p.objects[0].config
	for _, o := range p.objects[1:] {
		if math.Abs(o.config.LayerHeight-first.LayerHeight) > validateEpsilon {
			return newValidationError("The Wipe Tower is only supported for multiple objects if they have equal layer heights")
		}
		if o.config.SupportMaterialContactDistance != first.SupportMaterialContactDistance {
			return newValidationError("The Wipe Tower is only supported for multiple objects if they are printed with the same support_material_contact_distance")
		}
	}
	return nil
}

// towerNozzlesDiffer reports extruders with different nozzles sharing a tower.
func (p *Print) towerNozzlesDiffer(extruders []int) bool {
	if !p.config.HasWipeTower() || len(extruders) == 0 {
		return false
	}
	first := p.config.NozzleDiameterAt(extruders[0])
	for _, e := range extruders[1:] {
		if math.Abs(p.config.NozzleDiameterAt(e)-first) > validateEpsilon {
			return true
		}
	}
	return false
}

func validateExtrusionWidth(key string, width, layerHeight, maxNozzle float64) error {
	switch {
	case width == 0:
		return nil
	case width <= layerHeight:
		return newValidationError(fmt.Sprintf("%s=%g mm is too low to be printable at a layer height %g mm", key, width, layerHeight))
	case width >= maxNozzle*3:
		return newValidationError(fmt.Sprintf("Excessive %s=%g mm to be printable with a nozzle diameter %g mm", key, width, maxNozzle))
	}
	return nil
}

func appendWarning(ws []string, id string) []string {
	if slices.Contains(ws, id) {
		return ws
	}
	return append(ws, id)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
