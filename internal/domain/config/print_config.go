// Package config holds the print, object and region option sets and their loading.
package config

// DraftShield selects whether the skirt extends to the full object height.
type DraftShield string

// Draft shield modes.
const (
	DraftShieldDisabled DraftShield = "disabled"
	DraftShieldLimited  DraftShield = "limited"
	DraftShieldEnabled  DraftShield = "enabled"
)

// PrintConfig holds print-wide options. Per-extruder options are vectors indexed by
// zero-based extruder id; a short vector repeats its first value.
type PrintConfig struct {
	ConfigVersion string `yaml:"config_version" toml:"config_version" ini:"config_version"`

	// printer
	NozzleDiameter          []float64 `yaml:"nozzle_diameter" toml:"nozzle_diameter" ini:"nozzle_diameter"`
	MaxPrintHeight          float64   `yaml:"max_print_height" toml:"max_print_height" ini:"max_print_height"`
	GCodeFlavor             string    `yaml:"gcode_flavor" toml:"gcode_flavor" ini:"gcode_flavor"`
	UseRelativeEDistances   bool      `yaml:"use_relative_e_distances" toml:"use_relative_e_distances" ini:"use_relative_e_distances"`
	UseVolumetricE          bool      `yaml:"use_volumetric_e" toml:"use_volumetric_e" ini:"use_volumetric_e"`
	ZOffset                 float64   `yaml:"z_offset" toml:"z_offset" ini:"z_offset"`
	ExtruderClearanceRadius float64   `yaml:"extruder_clearance_radius" toml:"extruder_clearance_radius" ini:"extruder_clearance_radius"`
	ExtruderClearanceHeight float64   `yaml:"extruder_clearance_height" toml:"extruder_clearance_height" ini:"extruder_clearance_height"`
	RetractLength           []float64 `yaml:"retract_length" toml:"retract_length" ini:"retract_length"`
	StartGCode              string    `yaml:"start_gcode" toml:"start_gcode" ini:"start_gcode"`
	EndGCode                string    `yaml:"end_gcode" toml:"end_gcode" ini:"end_gcode"`
	Notes                   string    `yaml:"notes" toml:"notes" ini:"notes"`

	// filament
	FilamentDiameter                []float64 `yaml:"filament_diameter" toml:"filament_diameter" ini:"filament_diameter"`
	FilamentType                    []string  `yaml:"filament_type" toml:"filament_type" ini:"filament_type"`
	FilamentSoluble                 []bool    `yaml:"filament_soluble" toml:"filament_soluble" ini:"filament_soluble"`
	FilamentMinimalPurgeOnWipeTower []float64 `yaml:"filament_minimal_purge_on_wipe_tower" toml:"filament_minimal_purge_on_wipe_tower" ini:"filament_minimal_purge_on_wipe_tower"`
	Temperature                     []int     `yaml:"temperature" toml:"temperature" ini:"temperature"`
	FirstLayerTemperature           []int     `yaml:"first_layer_temperature" toml:"first_layer_temperature" ini:"first_layer_temperature"`
	BedTemperature                  []int     `yaml:"bed_temperature" toml:"bed_temperature" ini:"bed_temperature"`
	FirstLayerBedTemperature        []int     `yaml:"first_layer_bed_temperature" toml:"first_layer_bed_temperature" ini:"first_layer_bed_temperature"`
	ExtrusionMultiplier             []float64 `yaml:"extrusion_multiplier" toml:"extrusion_multiplier" ini:"extrusion_multiplier"`

	// layers and extrusion
	FirstLayerHeight         float64   `yaml:"first_layer_height" toml:"first_layer_height" ini:"first_layer_height"`
	MinLayerHeight           []float64 `yaml:"min_layer_height" toml:"min_layer_height" ini:"min_layer_height"`
	MaxLayerHeight           []float64 `yaml:"max_layer_height" toml:"max_layer_height" ini:"max_layer_height"`
	FirstLayerExtrusionWidth float64   `yaml:"first_layer_extrusion_width" toml:"first_layer_extrusion_width" ini:"first_layer_extrusion_width"`
	Resolution               float64   `yaml:"resolution" toml:"resolution" ini:"resolution"`
	GCodeResolution          float64   `yaml:"gcode_resolution" toml:"gcode_resolution" ini:"gcode_resolution"`
	SpiralVase               bool      `yaml:"spiral_vase" toml:"spiral_vase" ini:"spiral_vase"`
	CompleteObjects          bool      `yaml:"complete_objects" toml:"complete_objects" ini:"complete_objects"`
	InfillFirst              bool      `yaml:"infill_first" toml:"infill_first" ini:"infill_first"`
	TravelSpeed              float64   `yaml:"travel_speed" toml:"travel_speed" ini:"travel_speed"`
	FirstLayerSpeed          float64   `yaml:"first_layer_speed" toml:"first_layer_speed" ini:"first_layer_speed"`

	// skirt
	Skirts         int         `yaml:"skirts" toml:"skirts" ini:"skirts"`
	SkirtHeight    int         `yaml:"skirt_height" toml:"skirt_height" ini:"skirt_height"`
	SkirtDistance  float64     `yaml:"skirt_distance" toml:"skirt_distance" ini:"skirt_distance"`
	MinSkirtLength float64     `yaml:"min_skirt_length" toml:"min_skirt_length" ini:"min_skirt_length"`
	DraftShield    DraftShield `yaml:"draft_shield" toml:"draft_shield" ini:"draft_shield"`
	OozePrevention bool        `yaml:"ooze_prevention" toml:"ooze_prevention" ini:"ooze_prevention"`

	// multi-material
	SingleExtruderMultiMaterial  bool      `yaml:"single_extruder_multi_material" toml:"single_extruder_multi_material" ini:"single_extruder_multi_material"`
	WipeTower                    bool      `yaml:"wipe_tower" toml:"wipe_tower" ini:"wipe_tower"`
	WipeTowerWidth               float64   `yaml:"wipe_tower_width" toml:"wipe_tower_width" ini:"wipe_tower_width"`
	WipeTowerBrimWidth           float64   `yaml:"wipe_tower_brim_width" toml:"wipe_tower_brim_width" ini:"wipe_tower_brim_width"`
	WipeTowerConeAngle           float64   `yaml:"wipe_tower_cone_angle" toml:"wipe_tower_cone_angle" ini:"wipe_tower_cone_angle"`
	WipeTowerExtruder            int       `yaml:"wipe_tower_extruder" toml:"wipe_tower_extruder" ini:"wipe_tower_extruder"`
	WipeTowerNoSparseLayers      bool      `yaml:"wipe_tower_no_sparse_layers" toml:"wipe_tower_no_sparse_layers" ini:"wipe_tower_no_sparse_layers"`
	WipingVolumesMatrix          []float64 `yaml:"wiping_volumes_matrix" toml:"wiping_volumes_matrix" ini:"wiping_volumes_matrix"`
	AvoidCrossingPerimeters      bool      `yaml:"avoid_crossing_perimeters" toml:"avoid_crossing_perimeters" ini:"avoid_crossing_perimeters"`
	AvoidCrossingCurledOverhangs bool      `yaml:"avoid_crossing_curled_overhangs" toml:"avoid_crossing_curled_overhangs" ini:"avoid_crossing_curled_overhangs"`
}

// DefaultPrintConfig returns a single-extruder configuration with a 0.4 mm nozzle.
func DefaultPrintConfig() PrintConfig {
	return PrintConfig{
		NozzleDiameter:                  []float64{0.4},
		MaxPrintHeight:                  200,
		GCodeFlavor:                     "marlin2",
		UseRelativeEDistances:           true,
		ExtruderClearanceRadius:         20,
		ExtruderClearanceHeight:         20,
		RetractLength:                   []float64{2},
		FilamentDiameter:                []float64{1.75},
		FilamentType:                    []string{"PLA"},
		FilamentSoluble:                 []bool{false},
		FilamentMinimalPurgeOnWipeTower: []float64{15},
		Temperature:                     []int{210},
		FirstLayerTemperature:           []int{215},
		BedTemperature:                  []int{60},
		FirstLayerBedTemperature:        []int{60},
		ExtrusionMultiplier:             []float64{1},
		FirstLayerHeight:                0.2,
		MinLayerHeight:                  []float64{0.07},
		MaxLayerHeight:                  []float64{0},
		Resolution:                      0,
		GCodeResolution:                 0.0125,
		TravelSpeed:                     130,
		FirstLayerSpeed:                 30,
		Skirts:                          1,
		SkirtHeight:                     1,
		SkirtDistance:                   2,
		DraftShield:                     DraftShieldDisabled,
		WipeTowerWidth:                  60,
		WipeTowerBrimWidth:              2,
		WipeTowerConeAngle:              0,
		WipingVolumesMatrix:             []float64{0},
	}
}

// ExtruderCount returns the number of extruders the printer has.
func (c *PrintConfig) ExtruderCount() int {
	return len(c.NozzleDiameter)
}

// HasWipeTower reports whether a purge tower is generated for this configuration.
func (c *PrintConfig) HasWipeTower() bool {
	return !c.SpiralVase && c.WipeTower && c.ExtruderCount() > 1
}

// NozzleDiameterAt returns the nozzle diameter of extruder id.
func (c *PrintConfig) NozzleDiameterAt(id int) float64 {
	return valueAt(c.NozzleDiameter, id)
}

// FilamentDiameterAt returns the filament diameter loaded in extruder id.
func (c *PrintConfig) FilamentDiameterAt(id int) float64 {
	return valueAt(c.FilamentDiameter, id)
}

// MinimalPurgeAt returns the minimal purge volume of extruder id in mm³.
func (c *PrintConfig) MinimalPurgeAt(id int) float64 {
	return valueAt(c.FilamentMinimalPurgeOnWipeTower, id)
}

// MaxLayerHeightAt returns the maximum layer height of extruder id, defaulting
// to 75% of the nozzle diameter when unset.
func (c *PrintConfig) MaxLayerHeightAt(id int) float64 {
	if h := valueAt(c.MaxLayerHeight, id); h > 0 {
		return h
	}
	return 0.75 * c.NozzleDiameterAt(id)
}

// FilamentSolubleAt reports whether extruder id holds soluble filament.
func (c *PrintConfig) FilamentSolubleAt(id int) bool {
	return valueAt(c.FilamentSoluble, id)
}

// FilamentTypeAt returns the filament type of extruder id.
func (c *PrintConfig) FilamentTypeAt(id int) string {
	return valueAt(c.FilamentType, id)
}

// BedTemperatureAt returns the bed temperature requested by extruder id.
func (c *PrintConfig) BedTemperatureAt(id int) int {
	return valueAt(c.BedTemperature, id)
}

// DefaultPurgeVolume is used for matrix entries that are missing.
const DefaultPurgeVolume = 140.0

// WipeVolumes returns the n×n purge matrix in mm³, where entry [from][to] is the
// volume needed when switching from one extruder to another. A matrix of the
// wrong size is replaced by DefaultPurgeVolume off the diagonal.
func (c *PrintConfig) WipeVolumes() [][]float64 {
	n := c.ExtruderCount()
	out := make([][]float64, n)
	ok := len(c.WipingVolumesMatrix) == n*n
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			switch {
			case ok:
				out[i][j] = c.WipingVolumesMatrix[i*n+j]
			case i != j:
				out[i][j] = DefaultPurgeVolume
			}
		}
	}
	return out
}

func valueAt[T any](v []T, id int) T {
	if len(v) == 0 {
		var zero T
		return zero
	}
	if id < 0 || id >= len(v) {
		return v[0]
	}
	return v[id]
}
