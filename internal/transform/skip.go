package transform

import "strings"

// Descriptor is what decoding a file tells the pipeline about it.
type Descriptor struct {
	Path   string
	Ext    string
	Width  int
	Height int
}

// Request is the per-file view of the run options that the skip decision
// depends on.
type Request struct {
	Width  int
	Height int
	// Ext is the extension the output would carry, before .jpeg is shortened.
	Ext   string
	Angle float64
}

// ShouldSkip reports whether d is already what req asks for: same extension
// and the only specified axis (or none) already matches. A pending rotation
// always means work.
func ShouldSkip(d Descriptor, req Request) bool {
	if RotationApplies(req.Angle) {
		return false
	}
	if !strings.EqualFold(req.Ext, d.Ext) {
		return false
	}

	switch {
	case req.Width == 0 && req.Height == 0:
		return true
	case req.Height == 0 && d.Width == req.Width:
		return true
	case req.Width == 0 && d.Height == req.Height:
		return true
	default:
		return false
	}
}
