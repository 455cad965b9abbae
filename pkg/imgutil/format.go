package imgutil

import (
	"fmt"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
)

// Format is an output encoding selectable on the command line.
// The zero value keeps each source file's own format.
type Format int

const (
	FormatOriginal Format = iota
	FormatBMP
	FormatGIF
	FormatJPEG
	FormatPNG
	FormatTIFF
)

var formatNames = map[string]Format{
	"bmp":  FormatBMP,
	"gif":  FormatGIF,
	"jpeg": FormatJPEG,
	"jpg":  FormatJPEG,
	"png":  FormatPNG,
	"tiff": FormatTIFF,
	"tif":  FormatTIFF,
}

var imagingFormats = map[Format]imaging.Format{
	FormatBMP:  imaging.BMP,
	FormatGIF:  imaging.GIF,
	FormatJPEG: imaging.JPEG,
	FormatPNG:  imaging.PNG,
	FormatTIFF: imaging.TIFF,
}

func (f Format) String() string {
	switch f {
	case FormatBMP:
		return "bmp"
	case FormatGIF:
		return "gif"
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatTIFF:
		return "tiff"
	default:
		return "original"
	}
}

// ParseFormat maps a user-supplied format name (case-insensitive, optional
// leading dot) to a Format.
func ParseFormat(name string) (Format, error) {
	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".")
	if f, ok := formatNames[key]; ok {
		return f, nil
	}
	return FormatOriginal, fmt.Errorf("unrecognized format %q (want one of %s)", name, strings.Join(FormatNames(), ", "))
}

// FormatForExt returns the format conventionally stored under the file
// extension ext (".JPG", "png", ...).
func FormatForExt(ext string) (Format, bool) {
	f, ok := formatNames[strings.TrimPrefix(strings.ToLower(ext), ".")]
	return f, ok
}

// FormatNames lists every accepted format name, sorted.
func FormatNames() []string {
	names := make([]string, 0, len(formatNames))
	for name := range formatNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Imaging returns the codec identifier used to encode f.
func (f Format) Imaging() (imaging.Format, bool) {
	v, ok := imagingFormats[f]
	return v, ok
}
