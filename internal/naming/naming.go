// Package naming picks the filename a processed image is written to.
package naming

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// NormalizeExt lowercases ext, ensures a leading dot and shortens ".jpeg" to
// ".jpg". The encoder is chosen separately, so this only affects the name.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if ext == ".jpeg" {
		return ".jpg"
	}
	return ext
}

// Resolve returns the path to write for base (a path without extension) and
// ext. With overwrite the plain name is returned as is. Otherwise base+ext,
// base+"1"+ext, base+"2"+ext, ... are probed until one does not exist.
//
// The probe is not atomic; a concurrent writer can still claim the name.
func Resolve(base, ext string, overwrite bool) (string, error) {
	ext = NormalizeExt(ext)
	if overwrite {
		return base + ext, nil
	}

	for n := 0; ; n++ {
		candidate := base + ext
		if n > 0 {
			candidate = base + strconv.Itoa(n) + ext
		}
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
}

func exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
