package darwinmask

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Orient turns a flat decode buffer into a mask image of shape.Width by
// shape.Height pixels.
//
// The buffer is reshaped to (height, width) and transposed, because the
// stored runs walk the mask column-major relative to the final image. The
// result then goes through a fixed flip, rotate and resize chain that undoes
// the coordinate convention of the annotation tool. The chain is applied step
// by step, gray values introduced by resampling are kept as is.
func Orient(flat []byte, shape Shape) (*image.Gray, error) {
	if !shape.Valid() {
		return nil, &RLEError{Kind: RLEBadShape, Shape: shape}
	}
	if len(flat) != shape.Pixels() {
		return nil, fmt.Errorf("buffer has %d bytes, shape %s needs %d", len(flat), shape, shape.Pixels())
	}

	h, w := shape.Height, shape.Width

	// Transposed grid: h pixels wide, w pixels high.
	t := image.NewGray(image.Rect(0, 0, h, w))
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			t.Pix[c*t.Stride+r] = flat[r*w+c]
		}
	}

	var img image.Image = t
	img = imaging.FlipH(img)
	img = imaging.Rotate(img, 90, color.Black)
	img = imaging.Resize(img, w, h, imaging.Linear)

	return toGray(img), nil
}

// DecodeMask decodes rle and orients the result, see Decode and Orient.
func DecodeMask(rle []int, shape Shape) (*image.Gray, error) {
	flat, err := Decode(rle, shape)
	if err != nil {
		return nil, err
	}
	return Orient(flat, shape)
}

// Blank returns an all-background mask of the given shape.
func Blank(shape Shape) (*image.Gray, error) {
	if !shape.Valid() {
		return nil, &RLEError{Kind: RLEBadShape, Shape: shape}
	}
	return image.NewGray(image.Rect(0, 0, shape.Width, shape.Height)), nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}
