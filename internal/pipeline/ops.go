package pipeline

import (
	"fmt"

	"github.com/ironsheep/raster-pipeline/internal/detection"
	"github.com/ironsheep/raster-pipeline/internal/imaging"
)

// Op is a pure buffer transformation run by the worker pool.
//
// Apply must not retain or modify its input and returns the new buffer
// together with the suffix appended to the image name.
type Op interface {
	Name() string
	Apply(a imaging.Array) (imaging.Array, string, error)
}

// validator is implemented by ops whose parameters can be checked before
// any work is dispatched.
type validator interface {
	Validate() error
}

// Convolve applies the naive zero-padded convolution engine.
type Convolve struct {
	Kernel imaging.Kernel
}

func (Convolve) Name() string { return "convolution" }

func (c Convolve) Validate() error {
	_, err := imaging.NewKernel(c.Kernel.Shape(), c.Kernel.Data)
	return err
}

func (c Convolve) Apply(a imaging.Array) (imaging.Array, string, error) {
	out, err := imaging.ConvolveArray(a, c.Kernel)
	return out, imaging.SuffixConvolution, err
}

// BildConvolve convolves with the bild library instead of the naive engine.
type BildConvolve struct {
	Kernel imaging.Kernel
}

func (BildConvolve) Name() string { return "convolution-bild" }

func (c BildConvolve) Validate() error { return Convolve(c).Validate() }

func (c BildConvolve) Apply(a imaging.Array) (imaging.Array, string, error) {
	out, err := imaging.ReferenceConvolveArray(a, c.Kernel)
	return out, imaging.SuffixReference, err
}

// Grayscale projects the buffer onto luminance.
type Grayscale struct{}

func (Grayscale) Name() string { return "grayscale" }

func (Grayscale) Apply(a imaging.Array) (imaging.Array, string, error) {
	out, err := imaging.Luma(a)
	return out, imaging.SuffixGrayscale, err
}

// Color replicates grayscale buffers into three channels.
type Color struct{}

func (Color) Name() string { return "color" }

func (Color) Apply(a imaging.Array) (imaging.Array, string, error) {
	out, err := imaging.Expand(a)
	return out, imaging.SuffixColor, err
}

// Edges computes the Sobel edge map.
type Edges struct{}

func (Edges) Name() string { return "edges" }

func (Edges) Apply(a imaging.Array) (imaging.Array, string, error) {
	out, err := detection.EdgesArray(a)
	return out, detection.SuffixEdges, err
}

// Corners marks Harris corners. Images without corners pass through
// unchanged and keep their name.
type Corners struct {
	Options detection.CornerOptions
}

func (Corners) Name() string { return "corners" }

func (c Corners) Validate() error { return c.Options.Validate() }

func (c Corners) Apply(a imaging.Array) (imaging.Array, string, error) {
	out, corners, err := detection.CornersArray(a, c.Options)
	if err != nil || len(corners) == 0 {
		return out, "", err
	}
	return out, detection.SuffixCorners, nil
}

// Gamma applies a precomputed gamma table.
type Gamma struct {
	G *imaging.Gamma
}

func (Gamma) Name() string { return "gamma" }

func (g Gamma) Validate() error {
	if g.G == nil {
		return fmt.Errorf("%w: no gamma table", imaging.ErrInvalidGamma)
	}
	return nil
}

func (g Gamma) Apply(a imaging.Array) (imaging.Array, string, error) {
	out, err := g.G.ApplyArray(a)
	return out, g.G.Suffix(), err
}

// Validate checks an op's parameters without running it.
func Validate(op Op) error {
	if op == nil {
		return fmt.Errorf("%w: no operation", ErrInvalidRequest)
	}
	if v, ok := op.(validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("invalid %s operation: %w", op.Name(), err)
		}
	}
	return nil
}

// ApplyOp runs op on a single image outside the pool and derives the
// resulting entity.
func ApplyOp(op Op, img *imaging.Image) (*imaging.Image, error) {
	if err := Validate(op); err != nil {
		return nil, err
	}
	out, suffix, err := op.Apply(img.Array())
	if err != nil {
		return nil, fmt.Errorf("failed to apply %s: %w", op.Name(), err)
	}
	return img.Derive(suffix, out)
}
