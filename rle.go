// Package darwinmask decodes dense run-length encoded binary masks, as found
// in the raster layers of Darwin 2.0 annotation records, into gray images.
package darwinmask

import (
	"fmt"
)

// Foreground is the pixel value written for runs with a nonzero flag.
const Foreground = 255

// MaxPixels is the largest mask, in pixels, that is decoded.
const MaxPixels = 1 << 30

// Shape is the size of a mask raster.
type Shape struct {
	Height int
	Width  int
}

// Pixels returns the number of pixels covered by the shape. Only meaningful
// for valid shapes.
func (s Shape) Pixels() int {
	return s.Height * s.Width
}

// Valid returns whether both dimensions are positive and the shape has at
// most MaxPixels pixels.
func (s Shape) Valid() bool {
	return s.Height > 0 && s.Width > 0 && s.Width <= MaxPixels/s.Height
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Pair is a single run: Length consecutive pixels that are foreground if Flag
// is nonzero, background otherwise.
type Pair struct {
	Flag   int
	Length int
}

// RLEErrorKind tells what is wrong with an RLE array.
type RLEErrorKind int

const (
	RLEOddLength   RLEErrorKind = iota // Array does not consist of whole pairs.
	RLENegative                        // A flag or length is negative.
	RLESumMismatch                     // Run lengths do not add up to the pixel count.
	RLEBadShape                        // Target shape is not positive or exceeds MaxPixels.
)

// RLEError is returned for RLE data that cannot describe a mask of the
// requested shape.
type RLEError struct {
	Kind  RLEErrorKind
	Index int // Offending array index, for RLENegative.
	Sum   int // Total run length, for RLESumMismatch. Negative if runs exceed the shape.
	Shape Shape
}

// Error returns a human-readable description of the problem.
func (e *RLEError) Error() string {
	switch e.Kind {
	case RLEOddLength:
		return "rle: array length is odd, expected (flag, length) pairs"
	case RLENegative:
		return fmt.Sprintf("rle: negative value at index %d", e.Index)
	case RLESumMismatch:
		if e.Sum < 0 {
			return fmt.Sprintf("rle: runs cover more than the %d pixels of shape %s", e.Shape.Pixels(), e.Shape)
		}
		return fmt.Sprintf("rle: runs cover %d pixels, shape %s has %d", e.Sum, e.Shape, e.Shape.Pixels())
	case RLEBadShape:
		return fmt.Sprintf("rle: invalid shape %s", e.Shape)
	}
	return "rle: invalid data"
}

// Ensure RLEError implements the error interface.
var _ error = (*RLEError)(nil)

// Pairs interprets rle as consecutive (flag, length) pairs, in order.
func Pairs(rle []int) ([]Pair, error) {
	if len(rle)%2 != 0 {
		return nil, &RLEError{Kind: RLEOddLength}
	}
	pairs := make([]Pair, 0, len(rle)/2)
	for i := 0; i < len(rle); i += 2 {
		if rle[i] < 0 {
			return nil, &RLEError{Kind: RLENegative, Index: i}
		}
		if rle[i+1] < 0 {
			return nil, &RLEError{Kind: RLENegative, Index: i + 1}
		}
		pairs = append(pairs, Pair{rle[i], rle[i+1]})
	}
	return pairs, nil
}

// Validate checks that rle is a dense RLE array for a mask of the given shape:
// whole pairs, no negative values, and runs covering exactly every pixel.
func Validate(rle []int, shape Shape) error {
	_, err := validPairs(rle, shape)
	return err
}

func validPairs(rle []int, shape Shape) ([]Pair, error) {
	if !shape.Valid() {
		return nil, &RLEError{Kind: RLEBadShape, Shape: shape}
	}
	pairs, err := Pairs(rle)
	if err != nil {
		return nil, err
	}
	total := shape.Pixels()
	sum := 0
	for _, p := range pairs {
		if p.Length > total-sum {
			return nil, &RLEError{Kind: RLESumMismatch, Sum: -1, Shape: shape}
		}
		sum += p.Length
	}
	if sum != total {
		return nil, &RLEError{Kind: RLESumMismatch, Sum: sum, Shape: shape}
	}
	return pairs, nil
}

// Decode expands rle into a flat buffer of shape.Pixels() bytes, each 0 or
// Foreground. The buffer is in storage order, see Orient.
func Decode(rle []int, shape Shape) ([]byte, error) {
	pairs, err := validPairs(rle, shape)
	if err != nil {
		return nil, err
	}
	flat := make([]byte, shape.Pixels())
	cur := 0
	for _, p := range pairs {
		if p.Length > len(flat)-cur {
			return nil, &RLEError{Kind: RLESumMismatch, Sum: -1, Shape: shape}
		}
		if p.Flag != 0 {
			run := flat[cur : cur+p.Length]
			for i := range run {
				run[i] = Foreground
			}
		}
		cur += p.Length
	}
	return flat, nil
}

// Encode is the inverse of Decode: it returns alternating background and
// foreground runs for flat, starting with a background run that may be
// empty. Any nonzero byte counts as foreground.
func Encode(flat []byte) []int {
	rle := []int{}
	flag := 0
	n := 0
	for _, b := range flat {
		f := 0
		if b != 0 {
			f = 1
		}
		if f != flag {
			rle = append(rle, flag, n)
			flag = f
			n = 0
		}
		n++
	}
	if n > 0 || len(rle) == 0 {
		rle = append(rle, flag, n)
	}
	return rle
}
