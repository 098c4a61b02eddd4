package imaging

import "fmt"

// Correlate slides k over the buffer a with zero padding and returns the
// unclipped response for every sample, in the same row-major, interleaved
// layout as a.Data.
//
// The padding is (k.Rows/2, k.Cols/2) using integer division, so the
// window for output (i, j) starts at input (i-k.Rows/2, j-k.Cols/2). Color
// buffers are processed per channel with the same kernel. The kernel is not
// flipped.
func Correlate(a Array, k Kernel) ([]float64, error) {
	kind, rows, cols, err := classify(a)
	if err != nil {
		return nil, err
	}
	if err := k.validate(); err != nil {
		return nil, err
	}
	return correlate(a.Data, rows, cols, kind.Channels(), k), nil
}

func correlate(pix []uint8, rows, cols, channels int, k Kernel) []float64 {
	out := make([]float64, len(pix))
	padH, padW := k.Rows/2, k.Cols/2

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			for c := 0; c < channels; c++ {
				var sum float64
				for u := 0; u < k.Rows; u++ {
					y := i + u - padH
					if y < 0 || y >= rows {
						continue
					}
					for v := 0; v < k.Cols; v++ {
						x := j + v - padW
						if x < 0 || x >= cols {
							continue
						}
						sum += float64(pix[(y*cols+x)*channels+c]) * k.Data[u*k.Cols+v]
					}
				}
				out[(i*cols+j)*channels+c] = sum
			}
		}
	}
	return out
}

// ConvolveArray convolves a with k and returns a buffer of the same shape,
// every response clipped to [0, 255] and truncated to 8 bits.
func ConvolveArray(a Array, k Kernel) (Array, error) {
	resp, err := Correlate(a, k)
	if err != nil {
		return Array{}, fmt.Errorf("failed to convolve: %w", err)
	}
	out := Array{Shape: append([]int(nil), a.Shape...), Data: make([]uint8, len(resp))}
	for i, v := range resp {
		out.Data[i] = ClampUint8(v)
	}
	return out, nil
}

// ApplyKernel convolves the image buffer with k. Grayscale images are
// convolved as a single plane; color images convolve each channel against
// the kernel broadcast across channels.
func (img *Image) ApplyKernel(k Kernel) (Array, error) {
	switch img.kind {
	case Grayscale, Color:
		return ConvolveArray(Array{Shape: img.Shape(), Data: img.pix}, k)
	default:
		return Array{}, fmt.Errorf("%w: kind %v", ErrUnsupportedRank, img.kind)
	}
}

// Convolve returns a new image holding img convolved with k, named with
// the "_conv" suffix.
func Convolve(img *Image, k Kernel) (*Image, error) {
	out, err := img.ApplyKernel(k)
	if err != nil {
		return nil, err
	}
	return img.derive(SuffixConvolution, img.kind, out.Data), nil
}
