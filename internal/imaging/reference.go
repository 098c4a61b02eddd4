package imaging

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/convolution"
)

// SuffixReference marks images produced by ReferenceConvolve.
const SuffixReference = "_conv_bild"

// ReferenceConvolveArray convolves a with k using bild's parallel
// correlation.
//
// bild extends edge pixels instead of padding with zeros, so the result
// agrees with ConvolveArray everywhere except within k.Rows/2 rows and
// k.Cols/2 columns of the border.
func ReferenceConvolveArray(a Array, k Kernel) (Array, error) {
	kind, _, _, err := classify(a)
	if err != nil {
		return Array{}, err
	}
	if err := k.validate(); err != nil {
		return Array{}, err
	}

	src, err := a.Image()
	if err != nil {
		return Array{}, err
	}

	bk := convolution.NewKernel(k.Cols, k.Rows)
	copy(bk.Matrix, k.Data)
	dst := convolution.Convolve(src, bk, &convolution.Options{Wrap: false, KeepAlpha: true})

	return fromRGBA(dst, kind), nil
}

// ReferenceConvolve is the bild-backed counterpart of Convolve.
func ReferenceConvolve(img *Image, k Kernel) (*Image, error) {
	out, err := ReferenceConvolveArray(Array{Shape: img.Shape(), Data: img.pix}, k)
	if err != nil {
		return nil, fmt.Errorf("failed to convolve with bild: %w", err)
	}
	return img.derive(SuffixReference, img.kind, out.Data), nil
}

func fromRGBA(src *image.RGBA, kind Kind) Array {
	b := src.Bounds()
	rows, cols := b.Dy(), b.Dx()

	if kind == Grayscale {
		out := NewArray(rows, cols)
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				out.Data[y*cols+x] = src.Pix[y*src.Stride+x*4]
			}
		}
		return out
	}

	out := NewArray(rows, cols, 3)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			p := y*src.Stride + x*4
			copy(out.Data[(y*cols+x)*3:], src.Pix[p:p+3])
		}
	}
	return out
}
