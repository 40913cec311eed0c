package extrusion

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidFlow is returned when a flow cannot be constructed.
var ErrInvalidFlow = errors.New("invalid flow")

// Flow describes the cross-section of an extrusion, in millimetres.
type Flow struct {
	Width          float64
	Height         float64
	NozzleDiameter float64
	Bridge         bool
}

// NewFlow builds a flow. A width of zero selects the automatic width for role.
func NewFlow(role Role, width, height, nozzle float64) (Flow, error) {
	if height <= 0 || nozzle <= 0 {
		return Flow{}, fmt.Errorf("%w: height %.3f, nozzle %.3f", ErrInvalidFlow, height, nozzle)
	}
	if width <= 0 {
		width = AutoWidth(role, nozzle)
	}
	if width <= height {
		return Flow{}, fmt.Errorf("%w: width %.3f not larger than layer height %.3f", ErrInvalidFlow, width, height)
	}
	return Flow{Width: width, Height: height, NozzleDiameter: nozzle}, nil
}

// BridgeFlow returns a round bridging flow for the nozzle.
func BridgeFlow(nozzle float64) Flow {
	return Flow{Width: nozzle, Height: nozzle, NozzleDiameter: nozzle, Bridge: true}
}

// AutoWidth returns the default extrusion width for role.
func AutoWidth(role Role, nozzle float64) float64 {
	switch role {
	case RoleExternalPerimeter:
		return 1.125 * nozzle
	case RoleTopSolidInfill:
		return nozzle
	case RoleSupportMaterial, RoleSupportMaterialInterface:
		return nozzle
	default:
		return 1.125 * nozzle
	}
}

// MM3PerMM returns the extruded volume per millimetre of path.
// Non-bridge flows are a rectangle with semicircular ends.
func (f Flow) MM3PerMM() float64 {
	if f.Bridge {
		return math.Pi * f.Width * f.Width / 4
	}
	return f.Height * (f.Width - f.Height*(1-math.Pi/4))
}

// Spacing returns the centre-to-centre distance between neighbouring extrusions.
func (f Flow) Spacing() float64 {
	if f.Bridge {
		return f.Width + 0.05
	}
	return f.Width - f.Height*(1-math.Pi/4)
}
