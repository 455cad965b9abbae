package transform

import (
	"math"

	"golang.org/x/image/math/f64"
)

// truncEpsilon keeps values like 49.99999999999998 (cos 270° noise) from
// truncating one pixel short.
const truncEpsilon = 1e-9

// Placement describes the canvas that holds a rotated image and where the
// unrotated source sits inside it before the rotation is applied.
type Placement struct {
	SourceWidth  int
	SourceHeight int
	CanvasWidth  int
	CanvasHeight int
	OffsetX      int
	OffsetY      int
	// Angle is the requested clockwise rotation in degrees.
	Angle float64
	// CounterClockwise is the complementary angle, mod(360-Angle, 360), the
	// canvas is sized with.
	CounterClockwise float64
}

// RotationApplies reports whether angle (clockwise degrees) requires a
// rotation pass. Zero and anything at or beyond a full turn are no-ops.
func RotationApplies(angle float64) bool {
	return angle > 0 && angle < 360
}

// RotatedCanvas sizes the canvas needed to rotate a w×h image clockwise by
// angle degrees without clipping. When the angle does not apply it returns the
// identity placement and false.
func RotatedCanvas(w, h int, angle float64) (Placement, bool) {
	if !RotationApplies(angle) {
		return Placement{
			SourceWidth:  w,
			SourceHeight: h,
			CanvasWidth:  w,
			CanvasHeight: h,
		}, false
	}

	complement := math.Mod(360-angle, 360)
	theta := complement * math.Pi / 180
	sin, cos := math.Sincos(theta)
	fw, fh := float64(w), float64(h)

	cw := math.Max(math.Abs(fw*cos-fh*sin), math.Abs(fw*cos+fh*sin))
	ch := math.Max(math.Abs(fw*sin-fh*cos), math.Abs(fw*sin+fh*cos))

	canvasW := int(math.Trunc(cw + truncEpsilon))
	canvasH := int(math.Trunc(ch + truncEpsilon))

	return Placement{
		SourceWidth:      w,
		SourceHeight:     h,
		CanvasWidth:      canvasW,
		CanvasHeight:     canvasH,
		OffsetX:          (canvasW - w) / 2,
		OffsetY:          (canvasH - h) / 2,
		Angle:            angle,
		CounterClockwise: complement,
	}, true
}

// Transform returns the source-to-canvas matrix: shift the source by the
// offset, then turn it clockwise by Angle about the center of the shifted
// rectangle. Image y grows downwards, so the standard rotation matrix turns
// clockwise on screen.
func (p Placement) Transform() f64.Aff3 {
	sin, cos := math.Sincos(p.Angle * math.Pi / 180)
	hw := float64(p.SourceWidth) / 2
	hh := float64(p.SourceHeight) / 2
	cx := float64(p.OffsetX) + hw
	cy := float64(p.OffsetY) + hh

	return f64.Aff3{
		cos, -sin, cx - hw*cos + hh*sin,
		sin, cos, cy - hw*sin - hh*cos,
	}
}
