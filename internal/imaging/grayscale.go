package imaging

import "fmt"

// Luma projects a buffer onto a single luminance plane.
//
// Rank 2 buffers are copied. Rank 3 buffers are weighted
// 0.299R + 0.587G + 0.114B, evaluated in integer arithmetic as
// (299R + 587G + 114B) / 1000 so that a gray triplet (v, v, v) maps back to
// exactly v.
func Luma(a Array) (Array, error) {
	kind, rows, cols, err := classify(a)
	if err != nil {
		return Array{}, err
	}

	out := NewArray(rows, cols)
	switch kind {
	case Grayscale:
		copy(out.Data, a.Data)
	case Color:
		for i := range out.Data {
			p := a.Data[i*3 : i*3+3]
			out.Data[i] = uint8((299*int(p[0]) + 587*int(p[1]) + 114*int(p[2])) / 1000)
		}
	}
	return out, nil
}

// ToGrayscale returns the single-channel version of img with the "_gray"
// suffix. Grayscale input is copied unchanged.
func ToGrayscale(img *Image) *Image {
	out, err := Luma(Array{Shape: img.Shape(), Data: img.pix})
	if err != nil {
		panic(fmt.Sprintf("imaging: entity holds invalid buffer: %v", err))
	}
	return img.derive(SuffixGrayscale, Grayscale, out.Data)
}

// Expand replicates a buffer's luminance into three channels. Rank 3
// buffers are copied.
func Expand(a Array) (Array, error) {
	kind, rows, cols, err := classify(a)
	if err != nil {
		return Array{}, err
	}

	out := NewArray(rows, cols, 3)
	switch kind {
	case Grayscale:
		for i, v := range a.Data {
			out.Data[i*3], out.Data[i*3+1], out.Data[i*3+2] = v, v, v
		}
	case Color:
		copy(out.Data, a.Data)
	}
	return out, nil
}

// ToColor returns the three-channel version of img with the "_rgb" suffix.
// Color input is copied unchanged.
func ToColor(img *Image) *Image {
	out, err := Expand(Array{Shape: img.Shape(), Data: img.pix})
	if err != nil {
		panic(fmt.Sprintf("imaging: entity holds invalid buffer: %v", err))
	}
	return img.derive(SuffixColor, Color, out.Data)
}
