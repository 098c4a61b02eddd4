package imaging

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidKernel is returned for kernels that are not a non-empty,
// rectangular two-dimensional matrix.
var ErrInvalidKernel = errors.New("invalid kernel")

// Kernel is a rank-2 matrix of weights, stored row-major.
type Kernel struct {
	Rows int
	Cols int
	Data []float64
}

// NewKernel builds a kernel from a shape and row-major weights. The shape
// must have exactly two positive dimensions matching len(data).
func NewKernel(shape []int, data []float64) (Kernel, error) {
	if len(shape) != 2 {
		return Kernel{}, fmt.Errorf("%w: rank %d, want 2", ErrInvalidKernel, len(shape))
	}
	k := Kernel{Rows: shape[0], Cols: shape[1], Data: slices.Clone(data)}
	if err := k.validate(); err != nil {
		return Kernel{}, err
	}
	return k, nil
}

// KernelFromRows builds a kernel from a slice of equally long rows.
func KernelFromRows(rows [][]float64) (Kernel, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return Kernel{}, fmt.Errorf("%w: empty", ErrInvalidKernel)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return Kernel{}, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidKernel, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return Kernel{Rows: len(rows), Cols: cols, Data: data}, nil
}

// MustKernel is like KernelFromRows but panics on error. It is intended for
// package-level kernel literals.
func MustKernel(rows [][]float64) Kernel {
	k, err := KernelFromRows(rows)
	if err != nil {
		panic(err)
	}
	return k
}

// BoxKernel returns an n×n kernel with every weight set to v.
func BoxKernel(n int, v float64) (Kernel, error) {
	if n <= 0 {
		return Kernel{}, fmt.Errorf("%w: size %d", ErrInvalidKernel, n)
	}
	data := make([]float64, n*n)
	for i := range data {
		data[i] = v
	}
	return Kernel{Rows: n, Cols: n, Data: data}, nil
}

// DefaultKernel is the 3×3 averaging kernel of 1/100 weights used by the
// batch convolution command when no kernel is given.
func DefaultKernel() Kernel {
	k, _ := BoxKernel(3, 0.01)
	return k
}

// At returns the weight at (row, col).
func (k Kernel) At(row, col int) float64 {
	return k.Data[row*k.Cols+col]
}

// Shape returns (rows, cols).
func (k Kernel) Shape() []int { return []int{k.Rows, k.Cols} }

func (k Kernel) validate() error {
	if k.Rows <= 0 || k.Cols <= 0 {
		return fmt.Errorf("%w: shape [%d %d]", ErrInvalidKernel, k.Rows, k.Cols)
	}
	if len(k.Data) != k.Rows*k.Cols {
		return fmt.Errorf("%w: shape [%d %d] needs %d weights, got %d", ErrInvalidKernel, k.Rows, k.Cols, k.Rows*k.Cols, len(k.Data))
	}
	return nil
}
