package processor

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"reframe/internal/config"
	"reframe/pkg/imgutil"
)

func writeTestImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
}

func imageSize(t *testing.T, path string) (int, int) {
	t.Helper()
	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func mustExist(t *testing.T, path string, want bool) {
	t.Helper()
	_, err := os.Stat(path)
	if got := err == nil; got != want {
		t.Fatalf("%s exists = %v, want %v", path, got, want)
	}
}

func sniffKind(t *testing.T, path string) imgutil.Kind {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	kind, err := imgutil.SniffReader(f)
	if err != nil {
		t.Fatalf("sniff %s: %v", path, err)
	}
	return kind
}

func buildOptions(t *testing.T, mutate func(*config.Settings)) config.Options {
	t.Helper()
	s := config.Defaults()
	mutate(&s)
	opts, err := s.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return opts
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

type recordingConfirmer struct {
	answer bool
	errs   []error
}

func (c *recordingConfirmer) Continue(err error) bool {
	c.errs = append(c.errs, err)
	return c.answer
}

func TestRunDirectoryResizesFilteredFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "a.png"), 30, 30)
	writeTestImage(t, filepath.Join(dir, "b.jpg"), 300, 200)

	opts := buildOptions(t, func(s *config.Settings) {
		s.Target = dir
		s.Width = 150
		s.Filter = []string{"jpg"}
	})

	summary, err := NewRunner(opts, quietLogger(), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Total != 1 || summary.Written != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	if w, h := imageSize(t, filepath.Join(dir, "a.png")); w != 30 || h != 30 {
		t.Errorf("a.png changed to %dx%d", w, h)
	}
	if w, h := imageSize(t, filepath.Join(dir, "b.jpg")); w != 300 || h != 200 {
		t.Errorf("b.jpg should be untouched without override, got %dx%d", w, h)
	}
	if w, h := imageSize(t, filepath.Join(dir, "b1.jpg")); w != 150 || h != 100 {
		t.Errorf("b1.jpg = %dx%d, want 150x100", w, h)
	}
}

func TestRunDirectoryOverride(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "b.jpg"), 300, 200)

	opts := buildOptions(t, func(s *config.Settings) {
		s.Target = dir
		s.Width = 150
		s.Override = true
	})

	summary, err := NewRunner(opts, quietLogger(), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Written != 1 || summary.Deleted != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if w, h := imageSize(t, filepath.Join(dir, "b.jpg")); w != 150 || h != 100 {
		t.Errorf("b.jpg = %dx%d, want 150x100", w, h)
	}
	mustExist(t, filepath.Join(dir, "b1.jpg"), false)
}

func TestRunSkipsFilesAlreadyInShape(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.jpg")
	writeTestImage(t, src, 80, 60)

	opts := buildOptions(t, func(s *config.Settings) {
		s.Target = dir
		s.Width = 80
		s.Ext = "jpg"
	})

	summary, err := NewRunner(opts, quietLogger(), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Skipped != 1 || summary.Written != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	mustExist(t, filepath.Join(dir, "photo1.jpg"), false)
}

func TestRunSingleFileFormatConversion(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "icon.png")
	writeTestImage(t, src, 40, 20)

	opts := buildOptions(t, func(s *config.Settings) {
		s.Target = src
		s.Ext = "bmp"
	})

	summary, err := NewRunner(opts, quietLogger(), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Written != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	out := filepath.Join(dir, "icon.bmp")
	if kind := sniffKind(t, out); kind != imgutil.KindBMP {
		t.Errorf("output kind = %v, want bmp", kind)
	}
	if w, h := imageSize(t, out); w != 40 || h != 20 {
		t.Errorf("icon.bmp = %dx%d", w, h)
	}
	mustExist(t, src, true)
}

func TestRunJPEGNameIsCanonical(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "shot.png")
	writeTestImage(t, src, 20, 20)

	opts := buildOptions(t, func(s *config.Settings) {
		s.Target = src
		s.Ext = "Jpeg"
	})

	if _, err := NewRunner(opts, quietLogger(), nil).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	mustExist(t, filepath.Join(dir, "shot.jpg"), true)
	mustExist(t, filepath.Join(dir, "shot.jpeg"), false)
}

func TestRunRotatesOntoEnclosingCanvas(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "wide.png")
	writeTestImage(t, src, 40, 20)

	opts := buildOptions(t, func(s *config.Settings) {
		s.Target = src
		s.Angle = 90
	})

	if _, err := NewRunner(opts, quietLogger(), nil).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if w, h := imageSize(t, filepath.Join(dir, "wide.jpg")); w != 20 || h != 40 {
		t.Errorf("rotated = %dx%d, want 20x40", w, h)
	}
}

func TestRunDefaultsToJPEG(t *testing.T) {
	tests := []struct {
		name  string
		width int
	}{
		{"same width still converts", 100},
		{"resized", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "a.png")
			writeTestImage(t, src, 100, 50)

			opts := buildOptions(t, func(s *config.Settings) {
				s.Target = dir
				s.Width = tt.width
			})

			summary, err := NewRunner(opts, quietLogger(), nil).Run(context.Background())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if summary.Written != 1 || summary.Skipped != 0 {
				t.Fatalf("unexpected summary %+v", summary)
			}

			out := filepath.Join(dir, "a.jpg")
			if kind := sniffKind(t, out); kind != imgutil.KindJPEG {
				t.Errorf("a.jpg kind = %v, want jpeg", kind)
			}
			if w, h := imageSize(t, out); w != tt.width || h != tt.width/2 {
				t.Errorf("a.jpg = %dx%d", w, h)
			}
			mustExist(t, filepath.Join(dir, "a1.png"), false)
		})
	}
}

func TestRunOriginalFormatKeepsSourceFormat(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "a.png"), 100, 50)

	run := func(width int) Summary {
		opts := buildOptions(t, func(s *config.Settings) {
			s.Target = dir
			s.Width = width
			s.Ext = config.OriginalFormat
		})
		summary, err := NewRunner(opts, quietLogger(), nil).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return summary
	}

	if summary := run(100); summary.Skipped != 1 {
		t.Fatalf("expected skip, got %+v", summary)
	}
	if summary := run(50); summary.Written != 1 {
		t.Fatalf("expected write, got %+v", summary)
	}
	if kind := sniffKind(t, filepath.Join(dir, "a1.png")); kind != imgutil.KindPNG {
		t.Errorf("a1.png kind = %v, want png", kind)
	}
	mustExist(t, filepath.Join(dir, "a.jpg"), false)
}

func TestRunDeleteFailure(t *testing.T) {
	tests := []struct {
		name    string
		answer  bool
		wantErr error
		written bool
	}{
		{"continue writes beside the source", true, nil, true},
		{"decline aborts", false, ErrAborted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "b.jpg")
			writeTestImage(t, src, 300, 200)

			opts := buildOptions(t, func(s *config.Settings) {
				s.Target = dir
				s.Width = 150
				s.Override = true
			})

			confirm := &recordingConfirmer{answer: tt.answer}
			runner := NewRunner(opts, quietLogger(), confirm)
			runner.remove = func(string) error { return os.ErrPermission }

			summary, err := runner.Run(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(confirm.errs) != 1 || !IsCode(confirm.errs[0], CodeDelete) {
				t.Fatalf("confirm calls = %v", confirm.errs)
			}
			if !errors.Is(confirm.errs[0], os.ErrPermission) {
				t.Errorf("delete cause lost: %v", confirm.errs[0])
			}
			if summary.Deleted != 0 {
				t.Errorf("unexpected summary %+v", summary)
			}

			if w, h := imageSize(t, src); w != 300 || h != 200 {
				t.Errorf("b.jpg = %dx%d, want untouched 300x200", w, h)
			}
			out := filepath.Join(dir, "b1.jpg")
			mustExist(t, out, tt.written)
			if tt.written {
				if w, h := imageSize(t, out); w != 150 || h != 100 {
					t.Errorf("b1.jpg = %dx%d, want 150x100", w, h)
				}
			}
		})
	}
}

func TestRunWarnsOnMismatchedContent(t *testing.T) {
	dir := t.TempDir()
	jpg := filepath.Join(dir, "real.jpg")
	writeTestImage(t, jpg, 20, 10)
	fake := filepath.Join(dir, "fake.png")
	if err := os.Rename(jpg, fake); err != nil {
		t.Fatalf("rename: %v", err)
	}

	var buf bytes.Buffer
	opts := buildOptions(t, func(s *config.Settings) {
		s.Target = fake
		s.Width = 10
	})

	summary, err := NewRunner(opts, log.New(&buf), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Written != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !strings.Contains(buf.String(), "does not match") {
		t.Errorf("expected mismatch warning, got %q", buf.String())
	}
}

func TestRunAsksToContinueAfterFailure(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a-broken.jpg"), []byte("not an image at all"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	writeTestImage(t, filepath.Join(dir, "b-good.jpg"), 30, 20)

	opts := buildOptions(t, func(s *config.Settings) {
		s.Target = dir
		s.Height = 10
	})

	confirm := &recordingConfirmer{answer: true}
	summary, err := NewRunner(opts, quietLogger(), confirm).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(confirm.errs) != 1 || !IsCode(confirm.errs[0], CodeDecode) {
		t.Fatalf("confirm calls = %v", confirm.errs)
	}
	if summary.Errors != 1 || summary.Written != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if w, h := imageSize(t, filepath.Join(dir, "b-good1.jpg")); w != 15 || h != 10 {
		t.Errorf("b-good1.jpg = %dx%d, want 15x10", w, h)
	}
}

func TestRunAbortStopsBatch(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a-broken.jpg"), []byte("garbage bytes here"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	writeTestImage(t, filepath.Join(dir, "b-good.jpg"), 30, 20)

	opts := buildOptions(t, func(s *config.Settings) {
		s.Target = dir
		s.Height = 10
	})

	_, err := NewRunner(opts, quietLogger(), &recordingConfirmer{answer: false}).Run(context.Background())
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	mustExist(t, filepath.Join(dir, "b-good1.jpg"), false)
}

func TestRunSingleFileFailureDoesNotPrompt(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(src, []byte("definitely not png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	opts := buildOptions(t, func(s *config.Settings) { s.Target = src })
	confirm := &recordingConfirmer{answer: false}

	summary, err := NewRunner(opts, quietLogger(), confirm).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(confirm.errs) != 0 {
		t.Errorf("single file run should not prompt")
	}
	if summary.Errors != 1 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestRunUnsupportedSingleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "scan.tiff")
	writeTestImage(t, src, 10, 10)

	var buf bytes.Buffer
	opts := buildOptions(t, func(s *config.Settings) {
		s.Target = src
		s.Width = 5
	})

	summary, err := NewRunner(opts, log.New(&buf), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Total != 0 {
		t.Errorf("expected no work, got %+v", summary)
	}
	if !strings.Contains(buf.String(), string(CodeUnsupportedInput)) {
		t.Errorf("expected unsupported message, got %q", buf.String())
	}
	mustExist(t, filepath.Join(dir, "scan1.tiff"), false)
}

func TestRunMissingTarget(t *testing.T) {
	opts := buildOptions(t, func(s *config.Settings) {
		s.Target = filepath.Join(t.TempDir(), "nope")
	})
	if _, err := NewRunner(opts, quietLogger(), nil).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunHonoursCanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, filepath.Join(dir, "a.jpg"), 10, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := buildOptions(t, func(s *config.Settings) {
		s.Target = dir
		s.Width = 5
	})
	if _, err := NewRunner(opts, quietLogger(), nil).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestCollectOrderAndRecursion(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"z.jpg", "a.PNG", "notes.txt", filepath.Join("sub", "c.gif")} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	flat, err := Collect(dir, config.Options{Filter: config.DefaultFilter})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got := displays(flat); got != "a.PNG,z.jpg" {
		t.Errorf("flat = %s", got)
	}

	deep, err := Collect(dir, config.Options{Filter: config.DefaultFilter, Recursive: true})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := strings.Join([]string{"a.PNG", "z.jpg", filepath.Join("sub", "c.gif")}, ",")
	if got := displays(deep); got != want {
		t.Errorf("recursive = %s, want %s", got, want)
	}
}

func displays(jobs []Job) string {
	names := make([]string, len(jobs))
	for i, job := range jobs {
		names[i] = job.Display
	}
	return strings.Join(names, ",")
}

func TestLineConfirmer(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"\n", true},
		{"N\n", false},
		{"no\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		c := NewLineConfirmer(strings.NewReader(tt.input), &out)
		if got := c.Continue(errors.New("boom")); got != tt.want {
			t.Errorf("input %q: got %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Continue?") {
			t.Errorf("input %q: prompt not written", tt.input)
		}
	}
}

func TestErrorCodes(t *testing.T) {
	cause := errors.New("disk full")
	err := error(newError(CodeWrite, "/tmp/x.jpg", cause))

	if !IsCode(err, CodeWrite) || IsCode(err, CodeDecode) {
		t.Error("IsCode mismatch")
	}
	if !errors.Is(err, cause) {
		t.Error("cause not unwrapped")
	}
	if !strings.Contains(err.Error(), "WRITE_FAILED") {
		t.Errorf("message %q", err.Error())
	}
}

func TestCountExifTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.jpg")
	if err := buildJPEGWithExif(path, 16, 8); err != nil {
		t.Fatalf("build JPEG: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	n, err := countExifTags(file)
	if err != nil {
		t.Fatalf("countExifTags: %v", err)
	}
	if n == 0 {
		t.Error("expected EXIF tags")
	}

	d, err := decodeImage(path)
	if err != nil {
		t.Fatalf("decodeImage: %v", err)
	}
	if d.kind != imgutil.KindJPEG || d.exifErr != nil || d.exifTags != n {
		t.Errorf("decoded kind=%v tags=%d err=%v, want jpeg with %d tags", d.kind, d.exifTags, d.exifErr, n)
	}
	if b := d.img.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Errorf("decoded size %dx%d", b.Dx(), b.Dy())
	}
}

func TestCountExifTagsWithoutMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.png")
	writeTestImage(t, path, 8, 8)

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	if n, err := countExifTags(file); err != nil || n != 0 {
		t.Errorf("countExifTags = %d, %v; want 0, nil", n, err)
	}
}

// buildJPEGWithExif encodes a real w×h JPEG and splices an APP1 EXIF segment
// in right after SOI.
func buildJPEGWithExif(path string, w, h int) error {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	var encoded bytes.Buffer
	if err := jpeg.Encode(&encoded, img, nil); err != nil {
		return err
	}
	data := encoded.Bytes()

	exifData := buildExifTIFF()
	exif := append([]byte("Exif\x00\x00"), exifData...)

	var buf bytes.Buffer
	buf.Write(data[:2])
	buf.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(exif)+2))
	buf.Write(exif)
	buf.Write(data[2:])

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func buildExifTIFF() []byte {
	var tiff bytes.Buffer
	tiff.Write([]byte{0x49, 0x49, 0x2a, 0x00})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(2))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0110))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(2))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(38))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0132))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(2))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(20))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(46))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(0))
	tiff.Write([]byte("TestCam\x00"))
	tiff.Write([]byte("2024:01:02 03:04:05\x00"))
	return tiff.Bytes()
}
