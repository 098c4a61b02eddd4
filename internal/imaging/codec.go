package imaging

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
)

// FromImage converts a decoded image into a sample buffer.
//
// Gray and Gray16 images become rank 2 buffers; everything else is
// composited to non-premultiplied RGBA and becomes a rank 3 (rows, cols, 3)
// buffer with the alpha channel dropped.
func FromImage(img image.Image) Array {
	b := img.Bounds()
	rows, cols := b.Dy(), b.Dx()

	switch src := img.(type) {
	case *image.Gray:
		out := NewArray(rows, cols)
		for y := 0; y < rows; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Data[y*cols:(y+1)*cols], src.Pix[off:off+cols])
		}
		return out
	case *image.Gray16:
		out := NewArray(rows, cols)
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				out.Data[y*cols+x] = uint8(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y >> 8)
			}
		}
		return out
	}

	out := NewArray(rows, cols, 3)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := (y*cols + x) * 3
			out.Data[i], out.Data[i+1], out.Data[i+2] = c.R, c.G, c.B
		}
	}
	return out
}

// Image converts the buffer into an *image.Gray (rank 2) or an opaque
// *image.NRGBA (rank 3).
func (a Array) Image() (image.Image, error) {
	kind, rows, cols, err := classify(a)
	if err != nil {
		return nil, err
	}

	rect := image.Rect(0, 0, cols, rows)
	if kind == Grayscale {
		g := image.NewGray(rect)
		copy(g.Pix, a.Data)
		return g, nil
	}

	n := image.NewNRGBA(rect)
	for i, j := 0, 0; i < len(a.Data); i, j = i+3, j+4 {
		n.Pix[j], n.Pix[j+1], n.Pix[j+2], n.Pix[j+3] = a.Data[i], a.Data[i+1], a.Data[i+2], 0xff
	}
	return n, nil
}

// Image converts the entity's buffer into a standard library image.
func (img *Image) Image() image.Image {
	// The buffer was validated at construction.
	out, _ := Array{Shape: img.Shape(), Data: img.pix}.Image()
	return out
}

// Decode reads an encoded JPEG, PNG, GIF, TIFF or BMP stream into a buffer.
// EXIF orientation is applied.
func Decode(r io.Reader) (Array, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return Array{}, fmt.Errorf("failed to decode image: %w", err)
	}
	return FromImage(img), nil
}
