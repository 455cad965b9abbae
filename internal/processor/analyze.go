package processor

import (
	"errors"
	"io"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
)

// countExifTags returns how many EXIF tags the stream carries. Re-encoding
// drops all of them, so the count is only reported, never copied.
func countExifTags(rs io.ReadSeeker) (int, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	// The flat parser expects the TIFF header at offset 0, so find the blob
	// inside the container first.
	raw, err := exif.SearchAndExtractExifWithReader(rs)
	if err != nil {
		if isNoExif(err) {
			return 0, nil
		}
		return 0, err
	}

	tags, _, err := exif.GetFlatExifDataUniversalSearch(raw, nil, true)
	if err != nil {
		if isNoExif(err) {
			return 0, nil
		}
		return 0, err
	}
	return len(tags), nil
}

func isNoExif(err error) bool {
	if errors.Is(err, exif.ErrNoExif) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no exif")
}
