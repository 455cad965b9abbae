package transform

// Geometry is the size an image is scaled to before any rotation.
type Geometry struct {
	Width       int
	Height      int
	NeedsResize bool
}

// ResolveDimensions computes the target size for a source of srcW×srcH given a
// requested width and height, where 0 means unspecified.
//
// With both unspecified the source size is kept. With one unspecified the
// missing axis follows the source aspect ratio, rounded half up. With both
// given they are used verbatim. Computed axes never drop below 1 pixel.
func ResolveDimensions(srcW, srcH, reqW, reqH int) Geometry {
	var w, h int
	switch {
	case reqW == 0 && reqH == 0:
		w, h = srcW, srcH
	case reqH == 0:
		w = reqW
		h = scaleAxis(reqW, srcH, srcW)
	case reqW == 0:
		h = reqH
		w = scaleAxis(reqH, srcW, srcH)
	default:
		w, h = reqW, reqH
	}

	return Geometry{
		Width:       w,
		Height:      h,
		NeedsResize: w != srcW || h != srcH,
	}
}

// scaleAxis returns round(present * srcMissing / srcPresent) using integer
// arithmetic only, so both axes scale identically for the same ratio.
func scaleAxis(present, srcMissing, srcPresent int) int {
	if srcPresent <= 0 {
		return 1
	}
	num := int64(present) * int64(srcMissing)
	den := int64(srcPresent)
	v := (2*num + den) / (2 * den)
	if v < 1 {
		return 1
	}
	return int(v)
}
