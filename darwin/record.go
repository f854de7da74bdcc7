// Package darwin reads the parts of Darwin 2.0 JSON annotation records that
// describe a dense RLE raster mask.
package darwin

import (
	"errors"
	"fmt"
	"os"

	"github.com/darwin-tools/darwinmask"

	"github.com/goccy/go-json"
)

var (
	// ErrMalformed is returned for documents that are not valid JSON or do
	// not match the expected field types.
	ErrMalformed = errors.New("malformed darwin record")

	// ErrNoSlots is returned for records without item slots, so without
	// image dimensions.
	ErrNoSlots = errors.New("record has no item slots")

	// ErrBadShape is returned for slot dimensions that cannot describe a
	// mask.
	ErrBadShape = errors.New("record has invalid mask dimensions")

	// ErrNoRasterLayer is returned when annotations exist but none has a
	// dense RLE raster layer.
	ErrNoRasterLayer = errors.New("no annotation with raster_layer.dense_rle")
)

// Slot holds the dimensions of one item slot.
type Slot struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Item is the annotated item, typically one image.
type Item struct {
	Name  string `json:"name,omitempty"`
	Slots []Slot `json:"slots"`
}

// RasterLayer is the mask part of an annotation.
type RasterLayer struct {
	DenseRLE    []int `json:"dense_rle"`
	TotalPixels int   `json:"total_pixels,omitempty"`
}

// Annotation is a single annotation. Only annotations with a RasterLayer are
// of interest for mask decoding.
type Annotation struct {
	ID          string       `json:"id,omitempty"`
	Name        string       `json:"name,omitempty"`
	RasterLayer *RasterLayer `json:"raster_layer,omitempty"`
}

// Record is a Darwin 2.0 document.
type Record struct {
	Version     string       `json:"version,omitempty"`
	Item        Item         `json:"item"`
	Annotations []Annotation `json:"annotations"`
}

// Parse decodes a record from buf.
func Parse(buf []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(buf, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &r, nil
}

// ReadFile reads and parses the record at path.
func ReadFile(path string) (*Record, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(buf)
}

// Shape returns the mask dimensions, from the first item slot. Dimensions must
// be positive and cover at most darwinmask.MaxPixels pixels.
func (r *Record) Shape() (darwinmask.Shape, error) {
	if len(r.Item.Slots) == 0 {
		return darwinmask.Shape{}, ErrNoSlots
	}
	s := r.Item.Slots[0]
	shape := darwinmask.Shape{Height: s.Height, Width: s.Width}
	if !shape.Valid() {
		return darwinmask.Shape{}, fmt.Errorf("%w: %dx%d", ErrBadShape, s.Width, s.Height)
	}
	return shape, nil
}

// DenseRLE returns the RLE array of the first annotation that has one.
//
// For a record without annotations, ok is false and err is nil: the mask is
// all background. If there are annotations but none carries a raster layer,
// ErrNoRasterLayer is returned. A nonzero total_pixels that disagrees with the
// slot dimensions results in ErrBadShape.
func (r *Record) DenseRLE() (rle []int, ok bool, err error) {
	if len(r.Annotations) == 0 {
		return nil, false, nil
	}
	for _, a := range r.Annotations {
		if a.RasterLayer == nil || a.RasterLayer.DenseRLE == nil {
			continue
		}
		if n := a.RasterLayer.TotalPixels; n != 0 {
			shape, err := r.Shape()
			if err != nil {
				return nil, false, err
			}
			if n != shape.Pixels() {
				return nil, false, fmt.Errorf("%w: total_pixels %d, slot is %s", ErrBadShape, n, shape)
			}
		}
		return a.RasterLayer.DenseRLE, true, nil
	}
	return nil, false, ErrNoRasterLayer
}
