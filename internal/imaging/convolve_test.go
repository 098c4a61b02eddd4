package imaging

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelConstruction(t *testing.T) {
	t.Run("from shape", func(t *testing.T) {
		k, err := NewKernel([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
		require.NoError(t, err)
		assert.Equal(t, 6.0, k.At(1, 2))
		assert.Equal(t, []int{2, 3}, k.Shape())
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := NewKernel([]int{3}, []float64{1, 2, 3})
		assert.ErrorIs(t, err, ErrInvalidKernel)
		_, err = NewKernel([]int{2, 2}, []float64{1, 2, 3})
		assert.ErrorIs(t, err, ErrInvalidKernel)
		_, err = NewKernel([]int{0, 2}, nil)
		assert.ErrorIs(t, err, ErrInvalidKernel)
		_, err = KernelFromRows([][]float64{{1, 2}, {3}})
		assert.ErrorIs(t, err, ErrInvalidKernel)
		_, err = KernelFromRows(nil)
		assert.ErrorIs(t, err, ErrInvalidKernel)
		_, err = BoxKernel(0, 1)
		assert.ErrorIs(t, err, ErrInvalidKernel)
	})

	t.Run("must kernel panics", func(t *testing.T) {
		assert.Panics(t, func() { MustKernel([][]float64{}) })
	})

	t.Run("default", func(t *testing.T) {
		k := DefaultKernel()
		assert.Equal(t, 3, k.Rows)
		assert.Equal(t, 3, k.Cols)
		for _, v := range k.Data {
			assert.InDelta(t, 0.01, v, 1e-12)
		}
	})
}

func TestConvolveIdentity(t *testing.T) {
	identity := MustKernel([][]float64{{0, 0, 0}, {0, 1, 0}, {0, 0, 0}})

	for _, a := range []Array{rampColor(5, 4), grayArray([]uint8{1, 2, 3}, []uint8{4, 5, 6})} {
		img := mustImage(t, Info{Name: "cat", Ext: ".jpg"}, a)
		out, err := Convolve(img, identity)
		require.NoError(t, err)
		assert.True(t, out.Array().Equal(a), "identity kernel must reproduce the input")
		assert.Equal(t, "cat_conv", out.Name())
		assert.Equal(t, img.Kind(), out.Kind())
	}
}

func TestConvolveZeroPadding(t *testing.T) {
	ones := grayArray(
		[]uint8{10, 10, 10},
		[]uint8{10, 10, 10},
		[]uint8{10, 10, 10},
	)
	box := MustKernel([][]float64{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}})

	out, err := ConvolveArray(ones, box)
	require.NoError(t, err)
	// Corners see 4 pixels, edges 6 and the center 9.
	assert.Equal(t, []uint8{40, 60, 40, 60, 90, 60, 40, 60, 40}, out.Data)
}

func TestConvolveBoxAveragesRamp(t *testing.T) {
	a := NewArray(5, 5)
	for r := range 5 {
		for c := range 5 {
			a.Data[r*5+c] = uint8(10 * (r + c))
		}
	}
	box, err := BoxKernel(3, 1.0/9)
	require.NoError(t, err)

	out, err := ConvolveArray(a, box)
	require.NoError(t, err)

	// A linear ramp equals its own local average away from the border.
	for r := 1; r < 4; r++ {
		for c := 1; c < 4; c++ {
			assert.InDelta(t, float64(a.Data[r*5+c]), float64(out.Data[r*5+c]), 1, "(%d,%d)", r, c)
		}
	}
	// Border windows include zero padding.
	for _, rc := range [][2]int{{0, 2}, {4, 2}, {2, 0}, {2, 4}, {4, 4}} {
		i := rc[0]*5 + rc[1]
		assert.Less(t, out.Data[i], a.Data[i], "(%d,%d)", rc[0], rc[1])
	}
}

func TestConvolveClipsAndTruncates(t *testing.T) {
	a := grayArray([]uint8{100, 200})

	up, err := ConvolveArray(a, MustKernel([][]float64{{1.999}}))
	require.NoError(t, err)
	assert.Equal(t, []uint8{199, 255}, up.Data)

	down, err := ConvolveArray(a, MustKernel([][]float64{{-1}}))
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 0}, down.Data)
}

func TestConvolveEvenKernel(t *testing.T) {
	a := grayArray(
		[]uint8{1, 2, 3},
		[]uint8{4, 5, 6},
	)
	// Padding is (1, 1), so output (i, j) sums input rows i-1..i and cols j-1..j.
	out, err := ConvolveArray(a, MustKernel([][]float64{{1, 1}, {1, 1}}))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, out.Shape)
	assert.Equal(t, []uint8{1, 3, 5, 5, 12, 16}, out.Data)
}

func TestConvolveColorChannelsIndependent(t *testing.T) {
	a := NewArray(1, 2, 3)
	copy(a.Data, []uint8{10, 20, 30, 1, 2, 3})

	out, err := ConvolveArray(a, MustKernel([][]float64{{1, 1}}))
	require.NoError(t, err)
	// Output col j sums cols j-1 and j of the same channel.
	assert.Equal(t, []uint8{10, 20, 30, 11, 22, 33}, out.Data)
}

func TestCorrelateKeepsSign(t *testing.T) {
	a := grayArray([]uint8{0, 0, 255})
	resp, err := Correlate(a, MustKernel([][]float64{{1, 0, -1}}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, -255, 0}, resp)
}

func TestConvolveErrors(t *testing.T) {
	_, err := ConvolveArray(NewArray(4), DefaultKernel())
	assert.ErrorIs(t, err, ErrUnsupportedRank)

	_, err = ConvolveArray(NewArray(2, 2), Kernel{Rows: 2, Cols: 2})
	assert.ErrorIs(t, err, ErrInvalidKernel)
}

func TestReferenceConvolveParity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	kernels := map[string]Kernel{
		"box":      DefaultKernel(),
		"sharpen":  MustKernel([][]float64{{0, -1, 0}, {-1, 5, -1}, {0, -1, 0}}),
		"blur 5x5": func() Kernel { k, _ := BoxKernel(5, 1.0/25); return k }(),
		"sobel":    MustKernel([][]float64{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}),
	}

	for _, shape := range [][]int{{12, 9}, {12, 9, 3}} {
		a := NewArray(shape...)
		for i := range a.Data {
			a.Data[i] = uint8(rng.Intn(256))
		}

		for name, k := range kernels {
			t.Run(name, func(t *testing.T) {
				want, err := ConvolveArray(a, k)
				require.NoError(t, err)
				got, err := ReferenceConvolveArray(a, k)
				require.NoError(t, err)
				require.Equal(t, want.Shape, got.Shape)

				ch := 1
				if len(shape) == 3 {
					ch = 3
				}
				rows, cols := shape[0], shape[1]
				padH, padW := k.Rows/2, k.Cols/2
				for i := padH; i < rows-padH; i++ {
					for j := padW; j < cols-padW; j++ {
						for c := 0; c < ch; c++ {
							idx := (i*cols+j)*ch + c
							assert.InDelta(t, float64(want.Data[idx]), float64(got.Data[idx]), 1,
								"sample (%d,%d,%d)", i, j, c)
						}
					}
				}
			})
		}
	}
}

func TestReferenceConvolveNaming(t *testing.T) {
	img := mustImage(t, Info{Name: "cat"}, rampColor(4, 4))
	out, err := ReferenceConvolve(img, DefaultKernel())
	require.NoError(t, err)
	assert.Equal(t, "cat_conv_bild", out.Name())
	assert.Equal(t, Color, out.Kind())
}
