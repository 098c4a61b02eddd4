package detection

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/raster-pipeline/internal/imaging"
)

// SuffixEdges is appended to the name of edge maps.
const SuffixEdges = "_edge"

// Sobel kernels used by the edge detector.
var (
	SobelX = imaging.MustKernel([][]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	})
	SobelY = imaging.MustKernel([][]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	})
)

// EdgesArray computes the normalized Sobel gradient magnitude of a buffer.
//
// The buffer is converted to luminance and correlated with SobelX and
// SobelY without clipping. The magnitude sqrt(gx² + gy²) is scaled so that
// its maximum maps to 255. A flat input, whose maximum magnitude is 0,
// yields an all-zero buffer. The result is always rank 2.
func EdgesArray(a imaging.Array) (imaging.Array, error) {
	gray, err := imaging.Luma(a)
	if err != nil {
		return imaging.Array{}, fmt.Errorf("failed to convert to grayscale: %w", err)
	}

	gx, err := imaging.Correlate(gray, SobelX)
	if err != nil {
		return imaging.Array{}, err
	}
	gy, err := imaging.Correlate(gray, SobelY)
	if err != nil {
		return imaging.Array{}, err
	}

	magnitude := make([]float64, len(gx))
	for i := range gx {
		magnitude[i] = math.Hypot(gx[i], gy[i])
	}

	out := imaging.NewArray(gray.Shape...)
	peak := floats.Max(magnitude)
	if peak == 0 {
		return out, nil
	}
	for i, m := range magnitude {
		out.Data[i] = imaging.ClampUint8(m / peak * 255)
	}
	return out, nil
}

// DetectEdges returns the Sobel edge map of img as a grayscale image named
// with the "_edge" suffix.
func DetectEdges(img *imaging.Image) (*imaging.Image, error) {
	out, err := EdgesArray(img.Array())
	if err != nil {
		return nil, err
	}
	return img.Derive(SuffixEdges, out)
}
