package detection

import "math"

// gaussianKernel1D returns a normalized 1D Gaussian of the given sigma,
// truncated at int(4*sigma+0.5) samples on either side of the center.
func gaussianKernel1D(sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	kernel := make([]float64, 2*radius+1)

	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+radius] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// gaussianBlur smooths a rows×cols float plane with a separable Gaussian.
// Borders are reflected about the edge (d c b a | a b c d | d c b a). A
// non-positive sigma returns a copy of the input.
func gaussianBlur(plane []float64, rows, cols int, sigma float64) []float64 {
	out := make([]float64, len(plane))
	if sigma <= 0 {
		copy(out, plane)
		return out
	}

	kernel := gaussianKernel1D(sigma)
	radius := len(kernel) / 2

	// Horizontal pass
	tmp := make([]float64, len(plane))
	for y := 0; y < rows; y++ {
		row := plane[y*cols : (y+1)*cols]
		for x := 0; x < cols; x++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				sum += row[reflect(x+k, cols)] * kernel[k+radius]
			}
			tmp[y*cols+x] = sum
		}
	}

	// Vertical pass
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				sum += tmp[reflect(y+k, rows)*cols+x] * kernel[k+radius]
			}
			out[y*cols+x] = sum
		}
	}
	return out
}

// reflect maps an out-of-range index back into [0, n) by mirroring about
// the edges, repeating the edge sample.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i - 1
	}
	return i
}

// clamp limits val to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
