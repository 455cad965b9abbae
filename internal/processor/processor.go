// Package processor runs a reframe batch: it collects the target files and
// takes each one through decode, skip check, resize, rotation, optional
// removal of the source, naming and write, strictly one file at a time.
package processor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"reframe/internal/config"
	"reframe/internal/naming"
	"reframe/internal/transform"
	"reframe/pkg/imgutil"
)

var errUnsupportedInput = errors.New("only jpg, jpeg, gif, png and bmp are accepted")

// Runner executes one run with fixed options. Files are processed one at a
// time and a Runner is not safe for concurrent use.
type Runner struct {
	opts    config.Options
	logger  *log.Logger
	confirm Confirmer
	summary Summary
	remove  func(path string) error
}

// NewRunner returns a Runner. A nil confirm never stops a batch; a nil logger
// falls back to log.Default().
func NewRunner(opts config.Options, logger *log.Logger, confirm Confirmer) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	if confirm == nil {
		confirm = AlwaysContinue
	}
	return &Runner{opts: opts, logger: logger, confirm: confirm, remove: os.Remove}
}

// Summary returns the counts accumulated so far.
func (r *Runner) Summary() Summary {
	return r.summary
}

// Run processes the configured target. A directory is scanned and every
// failure is followed by a continue/abort question; a single file is processed
// and a failure is only reported. The returned error is ErrAborted when the
// operator stopped the batch, ctx.Err() when the context ended, or a scan
// error; per-file failures are never returned.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	target := r.opts.Target

	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Error("target file or directory does not exist", "path", target)
			return r.summary, nil
		}
		return r.summary, err
	}

	if !info.IsDir() {
		if !config.SupportedInput(target) {
			return r.summary, r.report(newError(CodeUnsupportedInput, target, errUnsupportedInput), false)
		}
		_, err := r.handle(Job{Path: target, Display: filepath.Base(target)}, false)
		return r.summary, err
	}

	jobs, err := Collect(target, r.opts)
	if err != nil {
		return r.summary, fmt.Errorf("scan %s: %w", target, err)
	}
	r.logger.Debug("collected files", "dir", target, "count", len(jobs), "recursive", r.opts.Recursive)

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return r.summary, err
		}
		if _, err := r.handle(job, true); err != nil {
			return r.summary, err
		}
	}
	return r.summary, nil
}

// ProcessFile takes one file through the pipeline with batch failure
// handling. It returns ErrAborted if the operator stops after a failure.
func (r *Runner) ProcessFile(path string) (Result, error) {
	return r.handle(Job{Path: path, Display: path}, true)
}

func (r *Runner) handle(job Job, batch bool) (Result, error) {
	res, err := r.processFile(job, batch)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
	}
	r.summary.add(res)

	if err == nil || errors.Is(err, ErrAborted) {
		return res, err
	}
	return res, r.report(err, batch)
}

// report logs a failure and, in a batch, asks whether to go on.
func (r *Runner) report(err error, batch bool) error {
	r.logger.Error("processing failed", "err", err)
	if batch && !r.confirm.Continue(err) {
		return ErrAborted
	}
	return nil
}

func (r *Runner) processFile(job Job, batch bool) (Result, error) {
	res := Result{Path: job.Path, Display: job.Display}
	ext := filepath.Ext(job.Path)

	d, err := decodeImage(job.Path)
	if err != nil {
		return res, newError(CodeDecode, job.Path, err)
	}
	res.ExifTags = d.exifTags
	if want, ok := imgutil.FormatForExt(ext); ok && d.kind.Format() != want {
		r.logger.Warn("content does not match the file extension", "file", job.Display, "content", d.kind)
	}

	bounds := d.img.Bounds()
	desc := transform.Descriptor{
		Path:   job.Path,
		Ext:    ext,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}
	res.Width, res.Height = desc.Width, desc.Height

	if transform.ShouldSkip(desc, r.opts.Request(ext)) {
		res.Outcome = OutcomeSkipped
		r.logger.Info("no processing needed", "file", job.Display)
		return res, nil
	}

	if d.exifErr != nil {
		r.logger.Debug("could not read EXIF metadata", "file", job.Display, "err", d.exifErr)
	} else if d.exifTags > 0 {
		r.logger.Debug("EXIF metadata is not carried over", "file", job.Display, "tags", d.exifTags)
	}

	img := d.img
	target := transform.ResolveDimensions(desc.Width, desc.Height, r.opts.Width, r.opts.Height)
	if target.NeedsResize {
		img = imaging.Resize(img, target.Width, target.Height, r.opts.Resample)
		r.logger.Debug("resized", "file", job.Display,
			"from", fmt.Sprintf("%dx%d", desc.Width, desc.Height),
			"to", fmt.Sprintf("%dx%d", target.Width, target.Height))
	}

	if placement, ok := transform.RotatedCanvas(target.Width, target.Height, r.opts.Angle); ok {
		img = rotateImage(img, placement)
		r.logger.Debug("rotated", "file", job.Display, "angle", r.opts.Angle,
			"canvas", fmt.Sprintf("%dx%d", placement.CanvasWidth, placement.CanvasHeight))
	}
	res.Width, res.Height = img.Bounds().Dx(), img.Bounds().Dy()

	overwrite := r.opts.Overwrite
	if overwrite {
		if err := r.remove(job.Path); err != nil {
			// The source stays, so the new file must not take its name.
			overwrite = false
			if abortErr := r.report(newError(CodeDelete, job.Path, err), batch); abortErr != nil {
				return res, abortErr
			}
		} else {
			res.Deleted = true
			r.logger.Info("deleted", "file", job.Display)
		}
	}

	format, outExt := r.opts.Output(ext)
	base := strings.TrimSuffix(job.Path, ext)
	dest, err := naming.Resolve(base, outExt, overwrite)
	if err != nil {
		return res, newError(CodeWrite, job.Path, err)
	}

	if err := writeImage(dest, img, format, r.opts.Quality); err != nil {
		return res, newError(CodeWrite, dest, err)
	}

	res.Outcome = OutcomeWritten
	res.Output = dest
	r.logger.Info("done", "file", dest, "size", fmt.Sprintf("%dx%d", res.Width, res.Height), "format", format)
	return res, nil
}
