// Package extrusion models extrusion paths and their grouping.
package extrusion

// Role classifies what an extrusion is printing.
type Role int

// Extrusion roles.
const (
	RoleNone Role = iota
	RolePerimeter
	RoleExternalPerimeter
	RoleOverhangPerimeter
	RoleInternalInfill
	RoleSolidInfill
	RoleTopSolidInfill
	RoleBridgeInfill
	RoleIroning
	RoleGapFill
	RoleSkirt
	RoleBrim
	RoleSupportMaterial
	RoleSupportMaterialInterface
	RoleWipeTower
)

var roleNames = map[Role]string{
	RoleNone:                     "none",
	RolePerimeter:                "perimeter",
	RoleExternalPerimeter:        "external perimeter",
	RoleOverhangPerimeter:        "overhang perimeter",
	RoleInternalInfill:           "internal infill",
	RoleSolidInfill:              "solid infill",
	RoleTopSolidInfill:           "top solid infill",
	RoleBridgeInfill:             "bridge infill",
	RoleIroning:                  "ironing",
	RoleGapFill:                  "gap fill",
	RoleSkirt:                    "skirt",
	RoleBrim:                     "brim",
	RoleSupportMaterial:          "support material",
	RoleSupportMaterialInterface: "support material interface",
	RoleWipeTower:                "wipe tower",
}

// String returns a human-readable role name.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// IsPerimeter reports whether r is any kind of perimeter.
func (r Role) IsPerimeter() bool {
	return r == RolePerimeter || r == RoleExternalPerimeter || r == RoleOverhangPerimeter
}

// IsInfill reports whether r is any kind of infill.
func (r Role) IsInfill() bool {
	switch r {
	case RoleInternalInfill, RoleSolidInfill, RoleTopSolidInfill, RoleBridgeInfill, RoleGapFill:
		return true
	}
	return false
}

// IsSolidInfill reports whether r is a solid infill role.
func (r Role) IsSolidInfill() bool {
	return r == RoleSolidInfill || r == RoleTopSolidInfill || r == RoleBridgeInfill || r == RoleGapFill
}

// IsSupport reports whether r is support material.
func (r Role) IsSupport() bool {
	return r == RoleSupportMaterial || r == RoleSupportMaterialInterface
}
