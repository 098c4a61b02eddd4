package detection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/raster-pipeline/internal/imaging"
)

func TestDefaultCornerOptions(t *testing.T) {
	opts := DefaultCornerOptions()
	assert.Equal(t, 0.04, opts.K)
	assert.Equal(t, 1.0, opts.Sigma)
	assert.Equal(t, 1, opts.NMSRadius)
	assert.Equal(t, 0.01, opts.Threshold)
	assert.Equal(t, 2, opts.MarkerRadius)
	assert.NoError(t, opts.Validate())
}

func TestCornerOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CornerOptions)
	}{
		{"nan k", func(o *CornerOptions) { o.K = math.NaN() }},
		{"infinite sigma", func(o *CornerOptions) { o.Sigma = math.Inf(1) }},
		{"negative threshold", func(o *CornerOptions) { o.Threshold = -0.1 }},
		{"threshold above one", func(o *CornerOptions) { o.Threshold = 1.5 }},
		{"negative marker radius", func(o *CornerOptions) { o.MarkerRadius = -1 }},
		{"bad marker color", func(o *CornerOptions) { o.MarkerColor = "red" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultCornerOptions()
			tt.mutate(&opts)
			assert.ErrorIs(t, opts.Validate(), ErrInvalidOptions)

			_, err := FindCorners(filledArray(4, 4, 0), opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestFindCornersSquare(t *testing.T) {
	const size = 30
	a := squareArray(size, size, 10, 10, 10)
	want := [][2]int{{10, 10}, {10, 19}, {19, 10}, {19, 19}}

	corners, err := FindCorners(a, DefaultCornerOptions())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(corners), 4)

	near := func(c Corner, p [2]int) bool {
		return abs(c.Row-p[0]) <= 4 && abs(c.Col-p[1]) <= 4
	}

	for _, c := range corners {
		found := false
		for _, p := range want {
			if near(c, p) {
				found = true
			}
		}
		assert.True(t, found, "corner %+v is not near a square corner", c)
		assert.Greater(t, c.Response, 0.0)
	}
	for _, p := range want {
		found := false
		for _, c := range corners {
			if near(c, p) {
				found = true
			}
		}
		assert.True(t, found, "square corner %v was not detected", p)
	}

	for i := 1; i < len(corners); i++ {
		prev, cur := corners[i-1], corners[i]
		assert.True(t, prev.Row < cur.Row || (prev.Row == cur.Row && prev.Col < cur.Col),
			"corners must be in row-major order")
	}
}

func TestFindCornersNMSProperty(t *testing.T) {
	a := imaging.NewArray(24, 24)
	for i := range a.Data {
		a.Data[i] = uint8((i*37 + (i/24)*91) % 256)
	}

	for _, radius := range []int{1, 2, 3} {
		opts := DefaultCornerOptions()
		opts.NMSRadius = radius
		corners, err := FindCorners(a, opts)
		require.NoError(t, err)
		require.NotEmpty(t, corners)

		for _, c := range corners {
			for _, o := range corners {
				if abs(c.Row-o.Row) <= radius && abs(c.Col-o.Col) <= radius {
					assert.False(t, o.Response > c.Response,
						"radius %d: %+v suppressed by %+v", radius, c, o)
				}
			}
		}
	}
}

func TestSelectCorners(t *testing.T) {
	// 1×6 response map with two neighbouring peaks and one weak pixel.
	response := []float64{0, 5, 4, 0, 0.01, 3}
	opts := DefaultCornerOptions()

	corners := selectCorners(response, 1, 6, opts)
	assert.Equal(t, []Corner{{0, 1, 5}, {0, 5, 3}}, corners)

	// A radius below 1 is raised to 1.
	opts.NMSRadius = 0
	assert.Equal(t, corners, selectCorners(response, 1, 6, opts))

	// A larger window suppresses the second peak only if it is within reach.
	opts.NMSRadius = 4
	assert.Equal(t, []Corner{{0, 1, 5}}, selectCorners(response, 1, 6, opts))

	opts.NMSRadius = 1
	opts.Threshold = 0.7
	assert.Equal(t, []Corner{{0, 1, 5}}, selectCorners(response, 1, 6, opts))
}

func TestSelectCornersNoResponse(t *testing.T) {
	opts := DefaultCornerOptions()
	assert.Empty(t, selectCorners([]float64{0, 0, 0, 0}, 2, 2, opts))
	assert.Empty(t, selectCorners([]float64{-1, -3, -2, -8}, 2, 2, opts))
	assert.Empty(t, selectCorners([]float64{math.NaN(), 0, 0, 0}, 2, 2, opts))
}

func TestDetectCornersFlatReturnsInput(t *testing.T) {
	img, err := imaging.New(imaging.Info{Name: "flat"}, filledArray(8, 8, 0))
	require.NoError(t, err)

	out, corners, err := DetectCorners(img, DefaultCornerOptions())
	require.NoError(t, err)
	assert.Same(t, img, out)
	assert.Empty(t, corners)

	buf, corners, err := CornersArray(filledArray(8, 8, 0), DefaultCornerOptions())
	require.NoError(t, err)
	assert.Empty(t, corners)
	assert.Equal(t, []int{8, 8}, buf.Shape, "no corners keeps the input rank")
}

func TestDetectCornersMarksColorCopy(t *testing.T) {
	img, err := imaging.New(imaging.Info{Index: 5, Name: "sq", Ext: ".png"}, squareArray(30, 30, 10, 10, 10))
	require.NoError(t, err)

	out, corners, err := DetectCorners(img, DefaultCornerOptions())
	require.NoError(t, err)
	require.NotEmpty(t, corners)

	assert.Equal(t, "sq_corn", out.Name())
	assert.Equal(t, 5, out.Index())
	assert.Equal(t, imaging.Color, out.Kind())
	assert.Equal(t, imaging.Grayscale, img.Kind(), "input must be unchanged")

	c := corners[0]
	assert.Equal(t, uint8(255), out.At(c.Row, c.Col, 0))
	assert.Equal(t, uint8(0), out.At(c.Row, c.Col, 1))
	assert.Equal(t, uint8(0), out.At(c.Row, c.Col, 2))

	// Far from any corner the original gray value is replicated.
	assert.Equal(t, uint8(255), out.At(15, 15, 1))
	assert.Equal(t, uint8(0), out.At(0, 29, 0))
}

func TestMarkCorners(t *testing.T) {
	opts := DefaultCornerOptions()
	opts.MarkerColor = "#00ff80"

	out, err := MarkCorners(filledArray(9, 9, 0), []Corner{{Row: 4, Col: 4}}, opts)
	require.NoError(t, err)
	require.Equal(t, []int{9, 9, 3}, out.Shape)

	painted := 0
	for i := 0; i < len(out.Data); i += 3 {
		if out.Data[i+1] == 255 {
			painted++
			assert.Equal(t, []uint8{0, 255, 128}, out.Data[i:i+3])
		}
	}
	// dx² + dy² <= 4 covers 13 pixels.
	assert.Equal(t, 13, painted)

	opts.MarkerColor = "nope"
	_, err = MarkCorners(filledArray(3, 3, 0), nil, opts)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestFillCircleClipsAtBorder(t *testing.T) {
	pix := make([]uint8, 4*4*3)
	fillCircle(pix, 4, 4, 0, 0, 2, [3]uint8{1, 2, 3})

	painted := 0
	for i := 0; i < len(pix); i += 3 {
		if pix[i] == 1 {
			painted++
		}
	}
	// The quarter disc (0,0) (0,1) (0,2) (1,0) (1,1) (2,0).
	assert.Equal(t, 6, painted)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
