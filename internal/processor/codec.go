package processor

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"reframe/internal/transform"
	"reframe/pkg/imgutil"
)

type decoded struct {
	img      image.Image
	kind     imgutil.Kind
	exifTags int
	exifErr  error
}

// decodeImage reads path fully into memory. The file is closed before it
// returns so an overwrite can remove it afterwards.
func decodeImage(path string) (decoded, error) {
	var d decoded

	file, err := os.Open(path)
	if err != nil {
		return d, err
	}
	defer file.Close()

	kind, err := imgutil.SniffReader(file)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return d, errors.New("file too short to be an image")
		}
		return d, err
	}
	if kind == imgutil.KindUnknown {
		return d, errors.New("unrecognized image data")
	}
	d.kind = kind

	if kind == imgutil.KindJPEG || kind == imgutil.KindTIFF {
		d.exifTags, d.exifErr = countExifTags(file)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return d, err
	}
	img, err := imaging.Decode(file)
	if err != nil {
		return d, err
	}
	d.img = img
	return d, nil
}

// rotateImage draws img onto the canvas described by p.
func rotateImage(img image.Image, p transform.Placement) image.Image {
	if img.Bounds().Min != (image.Point{}) {
		img = imaging.Clone(img)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, p.CanvasWidth, p.CanvasHeight))
	draw.BiLinear.Transform(dst, p.Transform(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// writeImage encodes img to a temporary file next to dest and renames it into
// place once it is complete.
func writeImage(dest string, img image.Image, format imgutil.Format, quality int) error {
	codec, ok := format.Imaging()
	if !ok {
		return fmt.Errorf("no encoder for format %s", format)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), "reframe-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile.Name())

	if err := tmpFile.Chmod(0o644); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := imaging.Encode(tmpFile, img, codec, imaging.JPEGQuality(quality)); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return replaceFile(tmpFile.Name(), dest)
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}
