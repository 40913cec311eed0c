package config

// BrimType selects where brim loops are generated.
type BrimType string

// Brim types.
const (
	BrimNone      BrimType = "no_brim"
	BrimOuterOnly BrimType = "outer_only"
)

// ObjectConfig holds options that may differ between objects.
type ObjectConfig struct {
	LayerHeight                      float64  `yaml:"layer_height" toml:"layer_height" ini:"layer_height"`
	SupportMaterial                  bool     `yaml:"support_material" toml:"support_material" ini:"support_material"`
	SupportMaterialAuto              bool     `yaml:"support_material_auto" toml:"support_material_auto" ini:"support_material_auto"`
	SupportMaterialThreshold         float64  `yaml:"support_material_threshold" toml:"support_material_threshold" ini:"support_material_threshold"`
	SupportMaterialExtruder          int      `yaml:"support_material_extruder" toml:"support_material_extruder" ini:"support_material_extruder"`
	SupportMaterialInterfaceExtruder int      `yaml:"support_material_interface_extruder" toml:"support_material_interface_extruder" ini:"support_material_interface_extruder"`
	SupportMaterialContactDistance   float64  `yaml:"support_material_contact_distance" toml:"support_material_contact_distance" ini:"support_material_contact_distance"`
	SupportMaterialExtrusionWidth    float64  `yaml:"support_material_extrusion_width" toml:"support_material_extrusion_width" ini:"support_material_extrusion_width"`
	SupportMaterialSpacing           float64  `yaml:"support_material_spacing" toml:"support_material_spacing" ini:"support_material_spacing"`
	BrimWidth                        float64  `yaml:"brim_width" toml:"brim_width" ini:"brim_width"`
	BrimSeparation                   float64  `yaml:"brim_separation" toml:"brim_separation" ini:"brim_separation"`
	BrimType                         BrimType `yaml:"brim_type" toml:"brim_type" ini:"brim_type"`
}

// DefaultObjectConfig returns object defaults.
func DefaultObjectConfig() ObjectConfig {
	return ObjectConfig{
		LayerHeight:                    0.2,
		SupportMaterialAuto:            true,
		SupportMaterialThreshold:       55,
		SupportMaterialContactDistance: 0.2,
		SupportMaterialSpacing:         2.5,
		BrimType:                       BrimOuterOnly,
	}
}

// HasBrim reports whether the object prints a brim.
func (c *ObjectConfig) HasBrim() bool {
	return c.BrimType != BrimNone && c.BrimWidth > 0
}

// RegionConfig holds options that may differ between volumes of one object.
// Extruder ids are one-based; zero means the default extruder.
type RegionConfig struct {
	Perimeters                       int     `yaml:"perimeters" toml:"perimeters" ini:"perimeters"`
	PerimeterExtruder                int     `yaml:"perimeter_extruder" toml:"perimeter_extruder" ini:"perimeter_extruder"`
	InfillExtruder                   int     `yaml:"infill_extruder" toml:"infill_extruder" ini:"infill_extruder"`
	SolidInfillExtruder              int     `yaml:"solid_infill_extruder" toml:"solid_infill_extruder" ini:"solid_infill_extruder"`
	FillDensity                      float64 `yaml:"fill_density" toml:"fill_density" ini:"fill_density"`
	FillAngle                        float64 `yaml:"fill_angle" toml:"fill_angle" ini:"fill_angle"`
	TopSolidLayers                   int     `yaml:"top_solid_layers" toml:"top_solid_layers" ini:"top_solid_layers"`
	BottomSolidLayers                int     `yaml:"bottom_solid_layers" toml:"bottom_solid_layers" ini:"bottom_solid_layers"`
	PerimeterExtrusionWidth          float64 `yaml:"perimeter_extrusion_width" toml:"perimeter_extrusion_width" ini:"perimeter_extrusion_width"`
	ExternalPerimeterExtrusionWidth  float64 `yaml:"external_perimeter_extrusion_width" toml:"external_perimeter_extrusion_width" ini:"external_perimeter_extrusion_width"`
	InfillExtrusionWidth             float64 `yaml:"infill_extrusion_width" toml:"infill_extrusion_width" ini:"infill_extrusion_width"`
	SolidInfillExtrusionWidth        float64 `yaml:"solid_infill_extrusion_width" toml:"solid_infill_extrusion_width" ini:"solid_infill_extrusion_width"`
	TopInfillExtrusionWidth          float64 `yaml:"top_infill_extrusion_width" toml:"top_infill_extrusion_width" ini:"top_infill_extrusion_width"`
	Ironing                          bool    `yaml:"ironing" toml:"ironing" ini:"ironing"`
	IroningSpacing                   float64 `yaml:"ironing_spacing" toml:"ironing_spacing" ini:"ironing_spacing"`
	IroningFlowrate                  float64 `yaml:"ironing_flowrate" toml:"ironing_flowrate" ini:"ironing_flowrate"`
	Overhangs                        bool    `yaml:"overhangs" toml:"overhangs" ini:"overhangs"`
	ThinWalls                        bool    `yaml:"thin_walls" toml:"thin_walls" ini:"thin_walls"`
	WipeIntoInfill                   bool    `yaml:"wipe_into_infill" toml:"wipe_into_infill" ini:"wipe_into_infill"`
	WipeIntoObjects                  bool    `yaml:"wipe_into_objects" toml:"wipe_into_objects" ini:"wipe_into_objects"`
	InfillSpeed                      float64 `yaml:"infill_speed" toml:"infill_speed" ini:"infill_speed"`
	PerimeterSpeed                   float64 `yaml:"perimeter_speed" toml:"perimeter_speed" ini:"perimeter_speed"`
	ExternalPerimeterSpeed           float64 `yaml:"external_perimeter_speed" toml:"external_perimeter_speed" ini:"external_perimeter_speed"`
	SolidInfillSpeed                 float64 `yaml:"solid_infill_speed" toml:"solid_infill_speed" ini:"solid_infill_speed"`
}

// DefaultRegionConfig returns region defaults.
func DefaultRegionConfig() RegionConfig {
	return RegionConfig{
		Perimeters:             2,
		PerimeterExtruder:      1,
		InfillExtruder:         1,
		SolidInfillExtruder:    1,
		FillDensity:            20,
		FillAngle:              45,
		TopSolidLayers:         3,
		BottomSolidLayers:      3,
		IroningSpacing:         0.1,
		IroningFlowrate:        15,
		Overhangs:              true,
		InfillSpeed:            80,
		PerimeterSpeed:         45,
		ExternalPerimeterSpeed: 25,
		SolidInfillSpeed:       20,
	}
}

// Extruders returns the zero-based extruders this region prints with.
func (c *RegionConfig) Extruders() []int {
	seen := make(map[int]bool, 3)
	var out []int
	add := func(one int) {
		id := max(one, 1) - 1
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if c.Perimeters > 0 {
		add(c.PerimeterExtruder)
	}
	if c.FillDensity > 0 {
		add(c.InfillExtruder)
	}
	if c.TopSolidLayers > 0 || c.BottomSolidLayers > 0 {
		add(c.SolidInfillExtruder)
	}
	return out
}
