package imaging

import (
	"errors"
	"fmt"
	"slices"
)

// Construction errors. They are fatal to the operation that produced them
// and are always wrapped with the offending shape or value.
var (
	// ErrUnsupportedRank is returned when a buffer is neither rank 2
	// (grayscale) nor rank 3 with a trailing dimension of 3 (color).
	ErrUnsupportedRank = errors.New("unsupported buffer rank")

	// ErrInvalidShape is returned when a buffer's dimensions are not
	// positive or do not match the length of its sample data.
	ErrInvalidShape = errors.New("invalid buffer shape")

	// ErrShapeMismatch is returned when two images are combined but their
	// buffers differ in shape.
	ErrShapeMismatch = errors.New("buffer shapes differ")
)

// Name suffixes appended by the transformations in this package.
const (
	SuffixConvolution = "_conv"
	SuffixGrayscale   = "_gray"
	SuffixColor       = "_rgb"
)

// Kind identifies which variant of pixel buffer an Image holds.
type Kind int

const (
	// Grayscale images hold one 8-bit sample per pixel (rank 2 buffer).
	Grayscale Kind = iota + 1

	// Color images hold an R, G, B triplet per pixel (rank 3 buffer, last dimension 3).
	Color
)

// String returns "grayscale" or "color".
func (k Kind) String() string {
	switch k {
	case Grayscale:
		return "grayscale"
	case Color:
		return "color"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Channels returns the number of samples per pixel for the variant.
func (k Kind) Channels() int {
	switch k {
	case Grayscale:
		return 1
	case Color:
		return 3
	default:
		return 0
	}
}

// Array is a dense, row-major n-dimensional buffer of 8-bit samples.
//
// Image buffers are either rank 2 (rows, cols) or rank 3 (rows, cols, 3).
// The zero value is an empty rank-0 array.
type Array struct {
	Shape []int
	Data  []uint8
}

// NewArray allocates a zero-filled array with the given shape.
func NewArray(shape ...int) Array {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n < 0 {
		n = 0
	}
	return Array{Shape: slices.Clone(shape), Data: make([]uint8, n)}
}

// Rank returns the number of dimensions.
func (a Array) Rank() int { return len(a.Shape) }

// Clone returns a deep copy of the array.
func (a Array) Clone() Array {
	return Array{Shape: slices.Clone(a.Shape), Data: slices.Clone(a.Data)}
}

// Equal reports whether both arrays have the same shape and samples.
func (a Array) Equal(b Array) bool {
	return slices.Equal(a.Shape, b.Shape) && slices.Equal(a.Data, b.Data)
}

// Tag is an opaque piece of passthrough metadata, such as a breed record
// returned by the acquisition service.
type Tag map[string]any

// Info is the identity and metadata of an image. It is copied forward by
// every transformation, except for Name which gains a suffix.
type Info struct {
	// Index is the sequence index assigned at acquisition. It is used only
	// to restore batch order and never as identity.
	Index int

	// Name is the file stem; transformations append suffixes such as "_edge".
	Name string

	// Ext is the file extension including the dot (".jpg"). It selects the
	// encoder when the image is persisted.
	Ext string

	// Origin is the URL the image was acquired from, empty if unknown.
	Origin string

	// Tags holds ordered passthrough metadata.
	Tags []Tag
}

func (i Info) clone() Info {
	i.Tags = slices.Clone(i.Tags)
	return i
}

// Image is an immutable pixel buffer with identity and metadata.
//
// An Image is created by New (or by a transformation) and never changes
// afterwards: accessors return copies, and every operation builds a new
// Image. Images may therefore be shared freely between goroutines.
type Image struct {
	info Info
	kind Kind
	rows int
	cols int
	pix  []uint8
}

// New constructs the Image variant matching the rank of a.
//
// A rank 2 buffer yields a Grayscale image and a rank 3 buffer whose last
// dimension is 3 yields a Color image. Any other rank fails with
// ErrUnsupportedRank. The buffer and tags are copied, so the caller may
// reuse them.
func New(info Info, a Array) (*Image, error) {
	kind, rows, cols, err := classify(a)
	if err != nil {
		return nil, err
	}
	return newImage(info.clone(), kind, rows, cols, slices.Clone(a.Data)), nil
}

// classify inspects the rank once and returns the variant tag.
func classify(a Array) (Kind, int, int, error) {
	var kind Kind
	switch a.Rank() {
	case 2:
		kind = Grayscale
	case 3:
		if a.Shape[2] != 3 {
			return 0, 0, 0, fmt.Errorf("%w: trailing dimension %d, want 3", ErrUnsupportedRank, a.Shape[2])
		}
		kind = Color
	default:
		return 0, 0, 0, fmt.Errorf("%w: rank %d", ErrUnsupportedRank, a.Rank())
	}

	rows, cols := a.Shape[0], a.Shape[1]
	if rows <= 0 || cols <= 0 {
		return 0, 0, 0, fmt.Errorf("%w: %v", ErrInvalidShape, a.Shape)
	}
	if want := rows * cols * kind.Channels(); len(a.Data) != want {
		return 0, 0, 0, fmt.Errorf("%w: shape %v needs %d samples, got %d", ErrInvalidShape, a.Shape, want, len(a.Data))
	}
	return kind, rows, cols, nil
}

// newImage wraps pix without copying. pix must not be referenced elsewhere.
func newImage(info Info, kind Kind, rows, cols int, pix []uint8) *Image {
	return &Image{info: info, kind: kind, rows: rows, cols: cols, pix: pix}
}

// derive builds a new image carrying img's metadata, the name extended by
// suffix, and the freshly allocated buffer pix.
func (img *Image) derive(suffix string, kind Kind, pix []uint8) *Image {
	info := img.info.clone()
	info.Name += suffix
	return newImage(info, kind, img.rows, img.cols, pix)
}

// Derive returns a new image with img's metadata, Name extended by suffix
// and the pixel buffer a. The variant follows the rank of a, so a color
// image may derive a grayscale one and vice versa.
func (img *Image) Derive(suffix string, a Array) (*Image, error) {
	info := img.info.clone()
	info.Name += suffix
	return New(info, a)
}

// Info returns a copy of the image metadata.
func (img *Image) Info() Info { return img.info.clone() }

// Index returns the acquisition sequence index.
func (img *Image) Index() int { return img.info.Index }

// Name returns the name including all transformation suffixes.
func (img *Image) Name() string { return img.info.Name }

// Ext returns the file extension, including the dot.
func (img *Image) Ext() string { return img.info.Ext }

// Origin returns the source URL, or "" if the image was not downloaded.
func (img *Image) Origin() string { return img.info.Origin }

// Tags returns a copy of the passthrough metadata list.
func (img *Image) Tags() []Tag { return slices.Clone(img.info.Tags) }

// Kind returns the buffer variant.
func (img *Image) Kind() Kind { return img.kind }

// Rows returns the image height in pixels.
func (img *Image) Rows() int { return img.rows }

// Cols returns the image width in pixels.
func (img *Image) Cols() int { return img.cols }

// Channels returns 1 for grayscale and 3 for color images.
func (img *Image) Channels() int { return img.kind.Channels() }

// Shape returns the buffer shape: (rows, cols) or (rows, cols, 3).
func (img *Image) Shape() []int {
	switch img.kind {
	case Grayscale:
		return []int{img.rows, img.cols}
	case Color:
		return []int{img.rows, img.cols, 3}
	default:
		panic(fmt.Sprintf("imaging: unknown kind %v", img.kind))
	}
}

// Array returns a copy of the pixel buffer.
func (img *Image) Array() Array {
	return Array{Shape: img.Shape(), Data: slices.Clone(img.pix)}
}

// At returns the sample at (row, col) in channel ch. Grayscale images only
// have channel 0.
func (img *Image) At(row, col, ch int) uint8 {
	return img.pix[(row*img.cols+col)*img.Channels()+ch]
}

// Add returns the elementwise, saturating sum of two images of equal shape.
//
// The result keeps img's index, extension and origin, is named
// "<img>_plus_<other>", and carries the tags of both operands.
func (img *Image) Add(other *Image) (*Image, error) {
	return img.combine(other, "_plus_", func(a, b int) int { return a + b })
}

// Sub returns the elementwise, saturating difference of two images of equal
// shape. Naming and metadata follow Add, with "_minus_" as the separator.
func (img *Image) Sub(other *Image) (*Image, error) {
	return img.combine(other, "_minus_", func(a, b int) int { return a - b })
}

func (img *Image) combine(other *Image, sep string, op func(a, b int) int) (*Image, error) {
	if other == nil {
		return nil, fmt.Errorf("%w: missing operand", ErrShapeMismatch)
	}
	if img.kind != other.kind || img.rows != other.rows || img.cols != other.cols {
		return nil, fmt.Errorf("%w: %v and %v", ErrShapeMismatch, img.Shape(), other.Shape())
	}

	pix := make([]uint8, len(img.pix))
	for i := range pix {
		pix[i] = ClampUint8(float64(op(int(img.pix[i]), int(other.pix[i]))))
	}

	info := img.info.clone()
	info.Name = img.info.Name + sep + other.info.Name
	info.Tags = append(info.Tags, other.info.Tags...)
	return newImage(info, img.kind, img.rows, img.cols, pix), nil
}

// String describes the image for log output.
func (img *Image) String() string {
	return fmt.Sprintf("Image(name=%s, ext=%s, shape=%v, origin=%s)", img.info.Name, img.info.Ext, img.Shape(), img.info.Origin)
}

// ClampUint8 clips v to [0, 255] and truncates it to an 8-bit sample.
// NaN maps to 0.
func ClampUint8(v float64) uint8 {
	switch {
	case v != v, v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
