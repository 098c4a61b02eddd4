package detection

import (
	"errors"
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/raster-pipeline/internal/imaging"
)

// SuffixCorners is appended to the name of corner-annotated images.
const SuffixCorners = "_corn"

// ErrInvalidOptions is returned when corner detection parameters are out of range.
var ErrInvalidOptions = errors.New("invalid corner options")

// Gradient kernels for the Harris detector. They are the Sobel kernels with
// the sign flipped, which does not affect the structure tensor.
var (
	HarrisX = imaging.MustKernel([][]float64{
		{1, 0, -1},
		{2, 0, -2},
		{1, 0, -1},
	})
	HarrisY = imaging.MustKernel([][]float64{
		{1, 2, 1},
		{0, 0, 0},
		{-1, -2, -1},
	})
)

// CornerOptions configures Harris corner detection.
type CornerOptions struct {
	// K is the Harris sensitivity constant.
	K float64

	// Sigma is the standard deviation of the Gaussian applied to the
	// structure tensor. Zero or negative disables smoothing.
	Sigma float64

	// NMSRadius is the half-width of the non-maximum suppression window,
	// which spans (2*NMSRadius+1)² pixels. Values below 1 are treated as 1.
	NMSRadius int

	// Threshold is the fraction of the maximum response a pixel must exceed.
	Threshold float64

	// MarkerRadius is the radius of the filled circle drawn at each corner.
	MarkerRadius int

	// MarkerColor is a "#rrggbb" hex color for the markers.
	MarkerColor string
}

// DefaultCornerOptions returns the standard Harris parameters:
// k = 0.04, sigma = 1, a 3×3 suppression window, 1% threshold and red
// markers of radius 2.
func DefaultCornerOptions() CornerOptions {
	return CornerOptions{
		K:            0.04,
		Sigma:        1.0,
		NMSRadius:    1,
		Threshold:    0.01,
		MarkerRadius: 2,
		MarkerColor:  "#ff0000",
	}
}

// Validate checks that the options can be used for detection.
func (o CornerOptions) Validate() error {
	if math.IsNaN(o.K) || math.IsInf(o.K, 0) {
		return fmt.Errorf("%w: k = %v", ErrInvalidOptions, o.K)
	}
	if math.IsNaN(o.Sigma) || math.IsInf(o.Sigma, 0) {
		return fmt.Errorf("%w: sigma = %v", ErrInvalidOptions, o.Sigma)
	}
	if o.Threshold < 0 || o.Threshold > 1 || math.IsNaN(o.Threshold) {
		return fmt.Errorf("%w: threshold %v outside [0, 1]", ErrInvalidOptions, o.Threshold)
	}
	if o.MarkerRadius < 0 {
		return fmt.Errorf("%w: marker radius %d", ErrInvalidOptions, o.MarkerRadius)
	}
	if _, err := colorful.Hex(o.MarkerColor); err != nil {
		return fmt.Errorf("%w: marker color %q: %v", ErrInvalidOptions, o.MarkerColor, err)
	}
	return nil
}

func (o CornerOptions) nmsRadius() int {
	if o.NMSRadius < 1 {
		return 1
	}
	return o.NMSRadius
}

// Corner is a detected corner location and its Harris response.
type Corner struct {
	Row      int     `json:"row"`
	Col      int     `json:"col"`
	Response float64 `json:"response"`
}

// HarrisResponse computes the Harris response map of a buffer.
//
// The buffer is converted to luminance, differentiated with HarrisX and
// HarrisY on the unclipped path, and the structure tensor products
// Ix·Ix, Iy·Iy and Ix·Iy are smoothed with a Gaussian of the given sigma.
// The response is det(M) - k·trace(M)². The returned plane is row-major
// with the buffer's rows and cols.
func HarrisResponse(a imaging.Array, k, sigma float64) ([]float64, error) {
	gray, err := imaging.Luma(a)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to grayscale: %w", err)
	}
	rows, cols := gray.Shape[0], gray.Shape[1]

	ix, err := imaging.Correlate(gray, HarrisX)
	if err != nil {
		return nil, err
	}
	iy, err := imaging.Correlate(gray, HarrisY)
	if err != nil {
		return nil, err
	}

	n := len(ix)
	ixx := make([]float64, n)
	iyy := make([]float64, n)
	ixy := make([]float64, n)
	for i := 0; i < n; i++ {
		ixx[i] = ix[i] * ix[i]
		iyy[i] = iy[i] * iy[i]
		ixy[i] = ix[i] * iy[i]
	}

	sxx := gaussianBlur(ixx, rows, cols, sigma)
	syy := gaussianBlur(iyy, rows, cols, sigma)
	sxy := gaussianBlur(ixy, rows, cols, sigma)

	response := make([]float64, n)
	for i := 0; i < n; i++ {
		det := sxx[i]*syy[i] - sxy[i]*sxy[i]
		trace := sxx[i] + syy[i]
		response[i] = det - k*trace*trace
	}
	return response, nil
}

// FindCorners returns the corners of a buffer in row-major order.
//
// A pixel is a corner when its response exceeds Threshold·max(R) and
// equals the maximum response inside the (2r+1)² window around it, where
// the window is clipped at the image border. An empty list is returned
// when the maximum response is not positive.
func FindCorners(a imaging.Array, opts CornerOptions) ([]Corner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	response, err := HarrisResponse(a, opts.K, opts.Sigma)
	if err != nil {
		return nil, err
	}
	return selectCorners(response, a.Shape[0], a.Shape[1], opts), nil
}

func selectCorners(response []float64, rows, cols int, opts CornerOptions) []Corner {
	peak := floats.Max(response)
	if !(peak > 0) || math.IsInf(peak, 1) {
		return nil
	}

	threshold := opts.Threshold * peak
	radius := opts.nmsRadius()

	var corners []Corner
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			r := response[y*cols+x]
			if r <= threshold {
				continue
			}
			if !isLocalMax(response, rows, cols, y, x, radius) {
				continue
			}
			corners = append(corners, Corner{Row: y, Col: x, Response: r})
		}
	}
	return corners
}

// isLocalMax reports whether the response at (y, x) equals the maximum of
// its neighborhood of the given radius.
func isLocalMax(response []float64, rows, cols, y, x, radius int) bool {
	center := response[y*cols+x]
	y0, y1 := clamp(y-radius, 0, rows-1), clamp(y+radius, 0, rows-1)
	x0, x1 := clamp(x-radius, 0, cols-1), clamp(x+radius, 0, cols-1)

	for ny := y0; ny <= y1; ny++ {
		for nx := x0; nx <= x1; nx++ {
			if response[ny*cols+nx] > center {
				return false
			}
		}
	}
	return true
}

// MarkCorners draws a filled circle at every corner onto a color copy of a.
func MarkCorners(a imaging.Array, corners []Corner, opts CornerOptions) (imaging.Array, error) {
	marker, err := colorful.Hex(opts.MarkerColor)
	if err != nil {
		return imaging.Array{}, fmt.Errorf("%w: marker color %q: %v", ErrInvalidOptions, opts.MarkerColor, err)
	}
	r, g, b := marker.RGB255()

	out, err := imaging.Expand(a)
	if err != nil {
		return imaging.Array{}, err
	}
	rows, cols := out.Shape[0], out.Shape[1]
	for _, c := range corners {
		fillCircle(out.Data, rows, cols, c.Row, c.Col, opts.MarkerRadius, [3]uint8{r, g, b})
	}
	return out, nil
}

// fillCircle paints every pixel with dy² + dx² <= radius² around (cy, cx)
// in a rows×cols RGB buffer.
func fillCircle(pix []uint8, rows, cols, cy, cx, radius int, rgb [3]uint8) {
	y0, y1 := clamp(cy-radius, 0, rows-1), clamp(cy+radius, 0, rows-1)
	x0, x1 := clamp(cx-radius, 0, cols-1), clamp(cx+radius, 0, cols-1)

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dy, dx := y-cy, x-cx
			if dy*dy+dx*dx > radius*radius {
				continue
			}
			copy(pix[(y*cols+x)*3:], rgb[:])
		}
	}
}

// CornersArray runs Harris detection on a buffer and returns the marked
// color buffer with the corner list. When no corner is found, the returned
// buffer is a copy of a with its original rank.
func CornersArray(a imaging.Array, opts CornerOptions) (imaging.Array, []Corner, error) {
	corners, err := FindCorners(a, opts)
	if err != nil {
		return imaging.Array{}, nil, err
	}
	if len(corners) == 0 {
		return a.Clone(), nil, nil
	}

	out, err := MarkCorners(a, corners, opts)
	if err != nil {
		return imaging.Array{}, nil, err
	}
	return out, corners, nil
}

// DetectCorners finds Harris corners in img and returns a color copy with
// the corners marked, named with the "_corn" suffix.
//
// If the response map has no positive maximum, img itself is returned with
// no corners.
func DetectCorners(img *imaging.Image, opts CornerOptions) (*imaging.Image, []Corner, error) {
	out, corners, err := CornersArray(img.Array(), opts)
	if err != nil {
		return nil, nil, err
	}
	if len(corners) == 0 {
		return img, nil, nil
	}

	marked, err := img.Derive(SuffixCorners, out)
	if err != nil {
		return nil, nil, err
	}
	return marked, corners, nil
}
