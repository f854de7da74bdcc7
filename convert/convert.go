// Package convert turns directories of Darwin 2.0 JSON mask records into PNG
// mask images.
package convert

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/darwin-tools/darwinmask"
	"github.com/darwin-tools/darwinmask/darwin"
)

// DefaultSaveDir is where masks are written if Opts.SaveDir is empty.
const DefaultSaveDir = "Mask"

var (
	// ErrMaskDirNotFound is returned by ConvertDir for a missing mask directory.
	ErrMaskDirNotFound = errors.New("mask directory does not exist")

	// ErrNoRecords is returned by ConvertDir if the mask directory has no
	// JSON files.
	ErrNoRecords = errors.New("no json records found")

	// ErrPartial is returned by ConvertDir with Opts.KeepGoing when one or
	// more records failed.
	ErrPartial = errors.New("some records failed to convert")
)

// Opts are options for a Converter.
type Opts struct {
	SaveDir   string // Directory for PNG masks, created if needed. Default DefaultSaveDir.
	Verbose   bool   // Log each step.
	KeepGoing bool   // ConvertDir continues past failing records.
}

// Converter decodes mask records and writes them as PNG files.
type Converter struct {
	opts Opts
}

// RecordError is an error converting a single record file.
type RecordError struct {
	Path string
	Err  error
}

// Error returns the file path with the underlying error.
func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Result summarizes a ConvertDir run.
type Result struct {
	Converted []string       // Paths of written PNG files, in processing order.
	Failed    []*RecordError // Only with Opts.KeepGoing.
}

// New returns a converter that writes into opts.SaveDir, creating the
// directory if it does not exist yet. A nil opts uses defaults.
func New(opts *Opts) (*Converter, error) {
	var xopts Opts
	if opts != nil {
		xopts = *opts
	}
	if xopts.SaveDir == "" {
		xopts.SaveDir = DefaultSaveDir
	}
	if err := os.MkdirAll(xopts.SaveDir, 0755); err != nil {
		return nil, fmt.Errorf("making save directory: %w", err)
	}
	return &Converter{xopts}, nil
}

// SaveDir returns the directory masks are written to.
func (c *Converter) SaveDir() string {
	return c.opts.SaveDir
}

func (c *Converter) logf(format string, args ...interface{}) {
	if c.opts.Verbose {
		log.Printf(format, args...)
	}
}

// Name returns the record name for a record file: its base name up to the
// first dot.
func Name(path string) string {
	name := filepath.Base(path)
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	return name
}

// Output returns the path of the PNG mask for record file path.
func Output(saveDir, path string) string {
	return filepath.Join(saveDir, Name(path)+"_mask.png")
}

// ConvertFile converts the record at path and writes its mask, replacing an
// existing file. It returns the path of the PNG file. Errors are of type
// *RecordError.
func (c *Converter) ConvertFile(path string) (string, error) {
	out := Output(c.opts.SaveDir, path)
	img, err := c.decode(path)
	if err != nil {
		return "", &RecordError{path, err}
	}
	if err := writePNG(out, img); err != nil {
		return "", &RecordError{path, err}
	}
	return out, nil
}

func (c *Converter) decode(path string) (*image.Gray, error) {
	r, err := darwin.ReadFile(path)
	if err != nil {
		return nil, err
	}
	shape, err := r.Shape()
	if err != nil {
		return nil, err
	}
	rle, ok, err := r.DenseRLE()
	if err != nil {
		return nil, err
	}
	if !ok {
		c.logf("%s: no annotations, writing blank %s mask", Name(path), shape)
		return darwinmask.Blank(shape)
	}
	c.logf("%s: decoding %d runs into %s mask", Name(path), len(rle)/2, shape)
	return darwinmask.DecodeMask(rle, shape)
}

// Records returns the JSON record files in maskDir, sorted by name.
// ErrMaskDirNotFound is returned if maskDir does not exist or is not a
// directory, ErrNoRecords if it has no JSON files.
func Records(maskDir string) ([]string, error) {
	fi, err := os.Stat(maskDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMaskDirNotFound, maskDir)
		}
		return nil, fmt.Errorf("mask directory: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrMaskDirNotFound, maskDir)
	}

	paths, err := filepath.Glob(filepath.Join(maskDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoRecords, maskDir)
	}
	return paths, nil
}

// ConvertDir converts all JSON records in maskDir, in sorted order. See
// Records for the errors returned before any record is converted.
//
// Without Opts.KeepGoing, the first failing record stops the run and its
// *RecordError is returned. With KeepGoing, failures are collected in
// Result.Failed and ErrPartial is returned after all records were tried.
func (c *Converter) ConvertDir(maskDir string) (Result, error) {
	var res Result

	paths, err := Records(maskDir)
	if err != nil {
		return res, err
	}

	for _, path := range paths {
		log.Printf("converting %s", Name(path))
		out, err := c.ConvertFile(path)
		if err != nil {
			if !c.opts.KeepGoing {
				return res, err
			}
			log.Printf("%v", err)
			res.Failed = append(res.Failed, err.(*RecordError))
			continue
		}
		c.logf("wrote %s", out)
		res.Converted = append(res.Converted, out)
	}
	if len(res.Failed) > 0 {
		return res, fmt.Errorf("%w: %d of %d", ErrPartial, len(res.Failed), len(paths))
	}
	return res, nil
}

// writePNG writes img to a temporary file next to path and renames it into
// place, so readers never see a partial mask.
func writePNG(path string, img image.Image) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".mask-*.png")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if err := f.Chmod(0644); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("setting mode: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("encoding png: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("closing png: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
