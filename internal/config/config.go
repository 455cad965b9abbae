// Package config turns flags and an optional defaults file into the immutable
// Options a run is executed with.
package config

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"reframe/internal/transform"
	"reframe/pkg/imgutil"
)

// OriginalFormat is the -e value that keeps each file's own format.
const OriginalFormat = "original"

// DefaultFilter lists the extensions scanned in a directory when no filter is
// given.
var DefaultFilter = []string{"jpg", "jpeg", "png", "bmp", "gif"}

// inputExtensions are the only extensions accepted for a single-file target.
var inputExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".png":  true,
	".bmp":  true,
}

var resampleFilters = map[string]imaging.ResampleFilter{
	"nearest":    imaging.NearestNeighbor,
	"linear":     imaging.Linear,
	"catmullrom": imaging.CatmullRom,
	"lanczos":    imaging.Lanczos,
}

// Settings is the editable layer: flag values and file values land here before
// Build validates them.
type Settings struct {
	Target    string   `yaml:"file" toml:"file"`
	Recursive bool     `yaml:"recursive" toml:"recursive"`
	Width     int      `yaml:"width" toml:"width"`
	Height    int      `yaml:"height" toml:"height"`
	Override  bool     `yaml:"override" toml:"override"`
	Ext       string   `yaml:"ext" toml:"ext"`
	Filter    []string `yaml:"filter" toml:"filter"`
	Quiet     bool     `yaml:"quiet" toml:"quiet"`
	Angle     float64  `yaml:"angle" toml:"angle"`
	Quality   int      `yaml:"quality" toml:"quality"`
	Resample  string   `yaml:"resample" toml:"resample"`
}

// Defaults returns the settings used when neither a flag nor the file sets a
// value.
func Defaults() Settings {
	return Settings{
		Filter:   append([]string(nil), DefaultFilter...),
		Quality:  95,
		Resample: "lanczos",
	}
}

// Options is the validated, read-only configuration of one run. It is passed
// by value; nothing mutates it after Build.
type Options struct {
	Target    string
	Recursive bool
	Width     int
	Height    int
	Overwrite bool
	// Format is JPEG unless the user chose another one; imgutil.FormatOriginal
	// keeps every file's own format.
	Format imgutil.Format
	// Extension is the lowercased output extension with its dot, as typed by
	// the user, or ".jpg" by default. Empty when Format is original.
	Extension string
	Angle     float64
	Filter    []string
	Quiet     bool
	Quality   int
	Resample  imaging.ResampleFilter
}

// Build validates s and produces Options.
func (s Settings) Build() (Options, error) {
	if strings.TrimSpace(s.Target) == "" {
		return Options{}, errors.New("a target file or directory is required (-f)")
	}
	if s.Width < 0 || s.Height < 0 {
		return Options{}, fmt.Errorf("width and height must not be negative (got %dx%d)", s.Width, s.Height)
	}
	if math.IsNaN(s.Angle) || math.IsInf(s.Angle, 0) || s.Angle < 0 {
		return Options{}, fmt.Errorf("angle must be a clockwise rotation of at least 0 degrees (got %v)", s.Angle)
	}
	if s.Quality < 1 || s.Quality > 100 {
		return Options{}, fmt.Errorf("quality must be between 1 and 100 (got %d)", s.Quality)
	}

	filter, ok := resampleFilters[strings.ToLower(s.Resample)]
	if !ok {
		return Options{}, fmt.Errorf("unknown resample filter %q (want nearest, linear, catmullrom or lanczos)", s.Resample)
	}

	opts := Options{
		Target:    s.Target,
		Recursive: s.Recursive,
		Width:     s.Width,
		Height:    s.Height,
		Overwrite: s.Override,
		Angle:     s.Angle,
		Filter:    normalizeFilter(s.Filter),
		Quiet:     s.Quiet,
		Quality:   s.Quality,
		Resample:  filter,
		Format:    imgutil.FormatJPEG,
		Extension: ".jpg",
	}

	switch ext := strings.TrimSpace(s.Ext); {
	case ext == "":
	case strings.EqualFold(ext, OriginalFormat):
		opts.Format = imgutil.FormatOriginal
		opts.Extension = ""
	default:
		format, err := imgutil.ParseFormat(ext)
		if err != nil {
			return Options{}, err
		}
		opts.Format = format
		opts.Extension = "." + strings.TrimPrefix(strings.ToLower(ext), ".")
	}

	return opts, nil
}

func normalizeFilter(in []string) []string {
	if len(in) == 0 {
		in = DefaultFilter
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, ext := range in {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	return out
}

// Output returns the format and extension a file with extension srcExt is
// written as. With the original format, extensions that have no encoder fall
// back to JPEG.
func (o Options) Output(srcExt string) (imgutil.Format, string) {
	if o.Format != imgutil.FormatOriginal {
		return o.Format, o.Extension
	}
	if f, ok := imgutil.FormatForExt(srcExt); ok {
		return f, strings.ToLower(srcExt)
	}
	return imgutil.FormatJPEG, ".jpg"
}

// Request is the per-file slice of the options used by the skip decision.
func (o Options) Request(srcExt string) transform.Request {
	_, ext := o.Output(srcExt)
	return transform.Request{
		Width:  o.Width,
		Height: o.Height,
		Ext:    ext,
		Angle:  o.Angle,
	}
}

// Matches reports whether path passes the directory scan filter.
func (o Options) Matches(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return false
	}
	for _, want := range o.Filter {
		if ext == want {
			return true
		}
	}
	return false
}

// SupportedInput reports whether path may be given as a single-file target.
func SupportedInput(path string) bool {
	return inputExtensions[strings.ToLower(filepath.Ext(path))]
}
