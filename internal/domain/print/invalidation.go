package print

import (
	"slices"
)

// keyEffect lists the steps a changed option invalidates.
type keyEffect struct {
	print  []PrintStep
	object []ObjectStep
}

type keyGroup struct {
	effect keyEffect
	keys   []string
}

func effectTable(groups ...keyGroup) map[string]keyEffect {
	out := make(map[string]keyEffect)
	for _, g := range groups {
		for _, k := range g.keys {
			out[k] = g.effect
		}
	}
	return out
}

// printKeyEffects classifies every print option. A key missing from the table
// and from ignoredKeys invalidates everything.
var printKeyEffects = effectTable(
	keyGroup{
		effect: keyEffect{print: []PrintStep{StepGCodeExport}},
		keys: []string{
			"max_print_height", "use_relative_e_distances", "use_volumetric_e",
			"extruder_clearance_radius", "extruder_clearance_height", "retract_length",
			"start_gcode", "end_gcode", "notes", "filament_diameter", "bed_temperature",
			"first_layer_bed_temperature", "extrusion_multiplier", "avoid_crossing_perimeters",
		},
	},
	keyGroup{
		effect: keyEffect{print: []PrintStep{StepSkirtBrim}},
		keys: []string{
			"skirts", "skirt_height", "draft_shield", "skirt_distance", "min_skirt_length",
			"ooze_prevention",
		},
	},
	keyGroup{
		effect: keyEffect{object: []ObjectStep{StepSlice}},
		keys:   []string{"first_layer_height", "nozzle_diameter", "resolution", "spiral_vase"},
	},
	keyGroup{
		effect: keyEffect{print: []PrintStep{StepWipeTower, StepSkirtBrim}},
		keys: []string{
			"complete_objects", "filament_type", "first_layer_temperature",
			"filament_minimal_purge_on_wipe_tower", "gcode_flavor", "infill_first",
			"single_extruder_multi_material", "temperature", "wipe_tower", "wipe_tower_width",
			"wipe_tower_brim_width", "wipe_tower_cone_angle", "wipe_tower_no_sparse_layers",
			"wipe_tower_extruder", "wiping_volumes_matrix", "travel_speed", "first_layer_speed",
			"z_offset",
		},
	},
	keyGroup{
		effect: keyEffect{print: []PrintStep{StepWipeTower}, object: []ObjectStep{StepSupportMaterial}},
		keys:   []string{"filament_soluble"},
	},
	keyGroup{
		effect: keyEffect{
			print:  []PrintStep{StepSkirtBrim},
			object: []ObjectStep{StepPerimeters, StepInfill, StepSupportMaterial},
		},
		keys: []string{"first_layer_extrusion_width", "min_layer_height", "max_layer_height", "gcode_resolution"},
	},
	keyGroup{
		effect: keyEffect{object: []ObjectStep{StepEstimateCurledExtrusions}},
		keys:   []string{"avoid_crossing_curled_overhangs"},
	},
)

// ignoredKeys carry metadata only.
var ignoredKeys = map[string]bool{
	"config_version": true,
}

// objectKeyEffects classifies object and region options. support_material,
// bottom_solid_layers and fill_density add steps depending on other values.
var objectKeyEffects = effectTable(
	keyGroup{
		effect: keyEffect{object: []ObjectStep{StepSupportSpotsSearch, StepSupportMaterial}},
		keys:   []string{"brim_width", "brim_separation", "brim_type"},
	},
	keyGroup{
		effect: keyEffect{object: []ObjectStep{StepSlice}},
		keys:   []string{"layer_height", "support_material_contact_distance"},
	},
	keyGroup{
		effect: keyEffect{object: []ObjectStep{StepSupportMaterial}},
		keys: []string{
			"support_material", "support_material_auto", "support_material_threshold",
			"support_material_extruder", "support_material_interface_extruder",
			"support_material_extrusion_width", "support_material_spacing",
		},
	},
	keyGroup{
		effect: keyEffect{object: []ObjectStep{StepPerimeters}},
		keys:   []string{"perimeters", "perimeter_extrusion_width"},
	},
	keyGroup{
		effect: keyEffect{object: []ObjectStep{StepPerimeters, StepSupportMaterial}},
		keys:   []string{"perimeter_extruder", "external_perimeter_extrusion_width", "overhangs", "thin_walls"},
	},
	keyGroup{
		effect: keyEffect{object: []ObjectStep{StepPrepareInfill}},
		keys: []string{
			"infill_extruder", "solid_infill_extruder", "infill_extrusion_width",
			"top_solid_layers", "bottom_solid_layers", "fill_density",
		},
	},
	keyGroup{
		effect: keyEffect{object: []ObjectStep{StepPerimeters, StepPrepareInfill}},
		keys:   []string{"solid_infill_extrusion_width"},
	},
	keyGroup{
		effect: keyEffect{object: []ObjectStep{StepInfill}},
		keys:   []string{"fill_angle", "top_infill_extrusion_width"},
	},
	keyGroup{
		effect: keyEffect{object: []ObjectStep{StepIroning}},
		keys:   []string{"ironing", "ironing_spacing", "ironing_flowrate"},
	},
	keyGroup{
		effect: keyEffect{print: []PrintStep{StepWipeTower}},
		keys:   []string{"wipe_into_infill", "wipe_into_objects", "infill_speed", "perimeter_speed"},
	},
	keyGroup{
		effect: keyEffect{print: []PrintStep{StepGCodeExport}},
		keys:   []string{"external_perimeter_speed", "solid_infill_speed"},
	},
)

// isClassified reports whether key has a known effect.
func isClassified(key string) bool {
	if ignoredKeys[key] {
		return true
	}
	_, p := printKeyEffects[key]
	_, o := objectKeyEffects[key]
	return p || o
}

// InvalidateKeys invalidates whatever depends on the given option keys, as if
// their values had changed. Object and region keys apply to every object.
// It reports whether any step was invalidated. Like Apply, it must not run
// concurrently with Process.
func (p *Print) InvalidateKeys(keys []string) bool {
	var printKeys, objectKeys []string
	for _, k := range keys {
		if _, ok := objectKeyEffects[k]; ok {
			objectKeys = append(objectKeys, k)
		} else {
			printKeys = append(printKeys, k)
		}
	}
	changed := p.invalidateByPrintKeys(printKeys)
	for _, o := range p.objects {
		if o.invalidateByKeys(objectKeys, true) {
			changed = true
		}
	}
	return changed
}

// invalidateByPrintKeys applies changed print options.
func (p *Print) invalidateByPrintKeys(keys []string) bool {
	var steps []PrintStep
	var osteps []ObjectStep
	for _, k := range keys {
		if ignoredKeys[k] {
			continue
		}
		eff, ok := printKeyEffects[k]
		if !ok {
			return p.invalidateAll()
		}
		steps = append(steps, eff.print...)
		osteps = append(osteps, eff.object...)
	}
	changed := p.invalidateSteps(steps)
	if len(osteps) > 0 {
		for _, o := range p.objects {
			if o.invalidateSteps(osteps) {
				changed = true
			}
		}
	}
	return changed
}

// invalidateByKeys applies changed object and region options. extremeDensity
// reports whether fill_density changed from or to 0 or 100 percent.
func (o *PrintObject) invalidateByKeys(keys []string, extremeDensity bool) bool {
	var steps []ObjectStep
	var psteps []PrintStep
	for _, k := range keys {
		eff, ok := objectKeyEffects[k]
		if !ok {
			return o.invalidateAll()
		}
		steps = append(steps, eff.object...)
		psteps = append(psteps, eff.print...)
		switch k {
		case "support_material":
			if o.config.SupportMaterialContactDistance == 0 {
				steps = append(steps, StepSlice)
			}
		case "bottom_solid_layers":
			if o.print.config.SpiralVase {
				steps = append(steps, StepSlice)
			}
		case "fill_density":
			if extremeDensity {
				steps = append(steps, StepPerimeters)
			}
		}
	}
	changed := o.print.invalidateSteps(psteps)
	if o.invalidateSteps(steps) {
		changed = true
	}
	return changed
}

// invalidateSteps invalidates print steps together with G-code export.
func (p *Print) invalidateSteps(steps []PrintStep) bool {
	if len(steps) == 0 {
		return false
	}
	var all []PrintStep
	for _, s := range steps {
		all = append(all, printCascade(s)...)
	}
	slices.Sort(all)
	return p.state.InvalidateMany(slices.Compact(all), p.cancelProcessing)
}

// invalidateSteps invalidates object steps with their dependents and the
// print steps that consume object output.
func (o *PrintObject) invalidateSteps(steps []ObjectStep) bool {
	if len(steps) == 0 {
		return false
	}
	var all []ObjectStep
	skirt := false
	for _, s := range steps {
		all = append(all, objectCascade(s)...)
		switch s {
		case StepSlice, StepPerimeters, StepInfill, StepSupportMaterial:
			skirt = true
		}
	}
	slices.Sort(all)
	changed := o.state.InvalidateMany(slices.Compact(all), o.print.cancelProcessing)

	psteps := []PrintStep{StepAlertWhenSupportsNeeded, StepWipeTower, StepGCodeExport}
	if skirt {
		psteps = append(psteps, StepSkirtBrim)
	}
	if o.print.state.InvalidateMany(psteps, o.print.cancelProcessing) {
		changed = true
	}
	return changed
}

// invalidateAll invalidates every step of the object and of the print.
func (o *PrintObject) invalidateAll() bool {
	changed := o.state.InvalidateAll(o.print.cancelProcessing)
	if o.print.state.InvalidateAll(o.print.cancelProcessing) {
		changed = true
	}
	return changed
}

// invalidateAll invalidates every step of the print and of every object.
func (p *Print) invalidateAll() bool {
	changed := p.state.InvalidateAll(p.cancelProcessing)
	for _, o := range p.objects {
		if o.state.InvalidateAll(p.cancelProcessing) {
			changed = true
		}
	}
	return changed
}
