package tensor

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrDimensionMismatch indicates that two matrices have incompatible shapes
// for the requested operation.
var ErrDimensionMismatch = errors.New("tensor: dimension mismatch")

// Matrix represents a 2D matrix of float64 values
type Matrix struct {
	Rows int
	Cols int
	Data [][]float64
}

// NewMatrix creates a new zero matrix with the specified dimensions
func NewMatrix(rows, cols int) (*Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid matrix dimensions: rows=%d, cols=%d (must be positive)", rows, cols)
	}

	data := make([][]float64, rows)
	for i := range data {
		data[i] = make([]float64, cols)
	}

	return &Matrix{
		Rows: rows,
		Cols: cols,
		Data: data,
	}, nil
}

// MustNewMatrix creates a new matrix with the specified dimensions.
// Panics if dimensions are invalid.
func MustNewMatrix(rows, cols int) *Matrix {
	m, err := NewMatrix(rows, cols)
	if err != nil {
		panic(err)
	}
	return m
}

// NewRandomMatrix creates a new matrix with small uniform random values
func NewRandomMatrix(rows, cols int) (*Matrix, error) {
	m, err := NewMatrix(rows, cols)
	if err != nil {
		return nil, err
	}

	// Small random values for training stability
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Data[i][j] = rand.Float64()*0.2 - 0.1
		}
	}

	return m, nil
}

// MustNewRandomMatrix creates a new matrix with random values.
// Panics if dimensions are invalid.
func MustNewRandomMatrix(rows, cols int) *Matrix {
	m, err := NewRandomMatrix(rows, cols)
	if err != nil {
		panic(err)
	}
	return m
}

// NewMatrixFromRows builds a matrix by copying the given rows. All rows must
// have the same non-zero length.
func NewMatrixFromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("cannot build matrix from zero rows")
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("cannot build matrix from empty rows")
	}

	m, err := NewMatrix(len(rows), cols)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has length %d, want %d: %w", i, len(row), cols, ErrDimensionMismatch)
		}
		copy(m.Data[i], row)
	}
	return m, nil
}

// Clone creates a deep copy of the matrix
func (m *Matrix) Clone() *Matrix {
	clone := MustNewMatrix(m.Rows, m.Cols)
	for i := 0; i < m.Rows; i++ {
		copy(clone.Data[i], m.Data[i])
	}
	return clone
}

// Zero resets all elements to zero in place
func (m *Matrix) Zero() {
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			m.Data[i][j] = 0
		}
	}
}

// Apply returns a new matrix with f applied to every element
func (m *Matrix) Apply(f func(float64) float64) *Matrix {
	out := MustNewMatrix(m.Rows, m.Cols)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			out.Data[i][j] = f(m.Data[i][j])
		}
	}
	return out
}

// Scale multiplies every element by s in place
func (m *Matrix) Scale(s float64) {
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			m.Data[i][j] *= s
		}
	}
}

// MatMul performs matrix multiplication
func MatMul(a, b *Matrix) (*Matrix, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("cannot multiply nil matrices")
	}
	if a.Cols != b.Rows {
		return nil, fmt.Errorf("matmul %dx%d by %dx%d: %w", a.Rows, a.Cols, b.Rows, b.Cols, ErrDimensionMismatch)
	}

	out, err := NewMatrix(a.Rows, b.Cols)
	if err != nil {
		return nil, err
	}
	for i := 0; i < a.Rows; i++ {
		for k := 0; k < a.Cols; k++ {
			aik := a.Data[i][k]
			if aik == 0 {
				continue
			}
			for j := 0; j < b.Cols; j++ {
				out.Data[i][j] += aik * b.Data[k][j]
			}
		}
	}
	return out, nil
}

// Transpose returns a new transposed matrix
func (m *Matrix) Transpose() *Matrix {
	out := MustNewMatrix(m.Cols, m.Rows)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			out.Data[j][i] = m.Data[i][j]
		}
	}
	return out
}

// Add performs element-wise addition
func Add(a, b *Matrix) (*Matrix, error) {
	if a.Rows != b.Rows || a.Cols != b.Cols {
		return nil, fmt.Errorf("add %dx%d and %dx%d: %w", a.Rows, a.Cols, b.Rows, b.Cols, ErrDimensionMismatch)
	}
	out := MustNewMatrix(a.Rows, a.Cols)
	for i := 0; i < a.Rows; i++ {
		for j := 0; j < a.Cols; j++ {
			out.Data[i][j] = a.Data[i][j] + b.Data[i][j]
		}
	}
	return out, nil
}

// AddInPlace adds b into a element-wise
func AddInPlace(a, b *Matrix) error {
	if a.Rows != b.Rows || a.Cols != b.Cols {
		return fmt.Errorf("add %dx%d and %dx%d: %w", a.Rows, a.Cols, b.Rows, b.Cols, ErrDimensionMismatch)
	}
	for i := 0; i < a.Rows; i++ {
		for j := 0; j < a.Cols; j++ {
			a.Data[i][j] += b.Data[i][j]
		}
	}
	return nil
}

// Hadamard performs element-wise multiplication
func Hadamard(a, b *Matrix) (*Matrix, error) {
	if a.Rows != b.Rows || a.Cols != b.Cols {
		return nil, fmt.Errorf("hadamard %dx%d and %dx%d: %w", a.Rows, a.Cols, b.Rows, b.Cols, ErrDimensionMismatch)
	}
	out := MustNewMatrix(a.Rows, a.Cols)
	for i := 0; i < a.Rows; i++ {
		for j := 0; j < a.Cols; j++ {
			out.Data[i][j] = a.Data[i][j] * b.Data[i][j]
		}
	}
	return out, nil
}

// AddRowVector adds a 1xC bias row to every row of m in place
func (m *Matrix) AddRowVector(bias *Matrix) error {
	if bias.Rows != 1 || bias.Cols != m.Cols {
		return fmt.Errorf("bias is %dx%d, want 1x%d: %w", bias.Rows, bias.Cols, m.Cols, ErrDimensionMismatch)
	}
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			m.Data[i][j] += bias.Data[0][j]
		}
	}
	return nil
}

// ConcatColumns concatenates a and b along the feature (column) axis
func ConcatColumns(a, b *Matrix) (*Matrix, error) {
	if a.Rows != b.Rows {
		return nil, fmt.Errorf("concat columns of %dx%d and %dx%d: %w", a.Rows, a.Cols, b.Rows, b.Cols, ErrDimensionMismatch)
	}
	out, err := NewMatrix(a.Rows, a.Cols+b.Cols)
	if err != nil {
		return nil, err
	}
	for i := 0; i < a.Rows; i++ {
		copy(out.Data[i][:a.Cols], a.Data[i])
		copy(out.Data[i][a.Cols:], b.Data[i])
	}
	return out, nil
}

// ConcatRows concatenates a and b along the row axis
func ConcatRows(a, b *Matrix) (*Matrix, error) {
	if a.Cols != b.Cols {
		return nil, fmt.Errorf("concat rows of %dx%d and %dx%d: %w", a.Rows, a.Cols, b.Rows, b.Cols, ErrDimensionMismatch)
	}
	out, err := NewMatrix(a.Rows+b.Rows, a.Cols)
	if err != nil {
		return nil, err
	}
	for i := 0; i < a.Rows; i++ {
		copy(out.Data[i], a.Data[i])
	}
	for i := 0; i < b.Rows; i++ {
		copy(out.Data[a.Rows+i], b.Data[i])
	}
	return out, nil
}

// SplitColumns splits m at column index at, returning the left and right parts
func SplitColumns(m *Matrix, at int) (*Matrix, *Matrix, error) {
	if at <= 0 || at >= m.Cols {
		return nil, nil, fmt.Errorf("cannot split %d columns at %d: %w", m.Cols, at, ErrDimensionMismatch)
	}
	left := MustNewMatrix(m.Rows, at)
	right := MustNewMatrix(m.Rows, m.Cols-at)
	for i := 0; i < m.Rows; i++ {
		copy(left.Data[i], m.Data[i][:at])
		copy(right.Data[i], m.Data[i][at:])
	}
	return left, right, nil
}

// SplitRows splits m at row index at, returning the top and bottom parts
func SplitRows(m *Matrix, at int) (*Matrix, *Matrix, error) {
	if at <= 0 || at >= m.Rows {
		return nil, nil, fmt.Errorf("cannot split %d rows at %d: %w", m.Rows, at, ErrDimensionMismatch)
	}
	top := MustNewMatrix(at, m.Cols)
	bottom := MustNewMatrix(m.Rows-at, m.Cols)
	for i := 0; i < at; i++ {
		copy(top.Data[i], m.Data[i])
	}
	for i := at; i < m.Rows; i++ {
		copy(bottom.Data[i-at], m.Data[i])
	}
	return top, bottom, nil
}
