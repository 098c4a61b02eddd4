package imaging

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidGamma is returned for non-positive or non-finite gamma values.
var ErrInvalidGamma = errors.New("gamma must be a positive finite number")

// DefaultGamma is the gamma used by the batch command when none is given.
const DefaultGamma = 10.0

// Gamma is a precomputed gamma-correction lookup table.
type Gamma struct {
	g   float64
	lut [256]uint8
}

// NewGamma builds the lookup table clip((i/255)^(1/g) * 255) for every
// 8-bit sample i.
func NewGamma(g float64) (*Gamma, error) {
	if !(g > 0) || math.IsInf(g, 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGamma, g)
	}

	gm := &Gamma{g: g}
	inv := 1 / g
	for i := range gm.lut {
		gm.lut[i] = ClampUint8(math.Pow(float64(i)/255, inv) * 255)
	}
	return gm, nil
}

// Value returns the gamma the table was built for.
func (gm *Gamma) Value() float64 { return gm.g }

// Suffix returns the name suffix for corrected images, such as
// "_gamma2.2" or "_gamma10.0".
func (gm *Gamma) Suffix() string {
	s := strconv.FormatFloat(gm.g, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return "_gamma" + s
}

// Map returns the corrected value of a single sample.
func (gm *Gamma) Map(v uint8) uint8 { return gm.lut[v] }

// ApplyArray maps every sample of a through the table.
func (gm *Gamma) ApplyArray(a Array) (Array, error) {
	if _, _, _, err := classify(a); err != nil {
		return Array{}, err
	}
	out := Array{Shape: append([]int(nil), a.Shape...), Data: make([]uint8, len(a.Data))}
	for i, v := range a.Data {
		out.Data[i] = gm.lut[v]
	}
	return out, nil
}

// Apply returns a gamma-corrected copy of img. Both variants are supported
// and the variant is preserved.
func (gm *Gamma) Apply(img *Image) *Image {
	pix := make([]uint8, len(img.pix))
	for i, v := range img.pix {
		pix[i] = gm.lut[v]
	}
	return img.derive(gm.Suffix(), img.kind, pix)
}
