package nn

import (
	"fmt"
	"math"

	"github.com/dualword/chemicalx/pkg/tensor"
)

// ReLU is a rectified linear activation layer
type ReLU struct {
	input *tensor.Matrix
}

// NewReLU creates a new ReLU activation
func NewReLU() *ReLU {
	return &ReLU{}
}

// Forward zeroes negative elements
func (r *ReLU) Forward(input *tensor.Matrix) (*tensor.Matrix, error) {
	r.input = input
	return input.Apply(func(x float64) float64 {
		if x < 0 {
			return 0
		}
		return x
	}), nil
}

// Backward passes gradient only where the input was positive
func (r *ReLU) Backward(grad *tensor.Matrix) (*tensor.Matrix, error) {
	if r.input == nil {
		return nil, fmt.Errorf("relu backward called before forward")
	}
	if grad.Rows != r.input.Rows || grad.Cols != r.input.Cols {
		return nil, fmt.Errorf("relu backward got %dx%d gradient, want %dx%d: %w",
			grad.Rows, grad.Cols, r.input.Rows, r.input.Cols, tensor.ErrDimensionMismatch)
	}
	out := tensor.MustNewMatrix(grad.Rows, grad.Cols)
	for i := 0; i < grad.Rows; i++ {
		for j := 0; j < grad.Cols; j++ {
			if r.input.Data[i][j] > 0 {
				out.Data[i][j] = grad.Data[i][j]
			}
		}
	}
	return out, nil
}

// Parameters returns nil, ReLU has no weights
func (r *ReLU) Parameters() []*Parameter { return nil }

// SetTraining is a no-op for activations
func (r *ReLU) SetTraining(bool) {}

// Sigmoid is a logistic activation layer mapping values into (0,1)
type Sigmoid struct {
	output *tensor.Matrix
}

// NewSigmoid creates a new sigmoid activation
func NewSigmoid() *Sigmoid {
	return &Sigmoid{}
}

// Forward applies the logistic function element-wise
func (s *Sigmoid) Forward(input *tensor.Matrix) (*tensor.Matrix, error) {
	out := input.Apply(func(x float64) float64 {
		return 1.0 / (1.0 + math.Exp(-x))
	})
	s.output = out
	return out, nil
}

// Backward multiplies the gradient by y*(1-y)
func (s *Sigmoid) Backward(grad *tensor.Matrix) (*tensor.Matrix, error) {
	if s.output == nil {
		return nil, fmt.Errorf("sigmoid backward called before forward")
	}
	if grad.Rows != s.output.Rows || grad.Cols != s.output.Cols {
		return nil, fmt.Errorf("sigmoid backward got %dx%d gradient, want %dx%d: %w",
			grad.Rows, grad.Cols, s.output.Rows, s.output.Cols, tensor.ErrDimensionMismatch)
	}
	out := tensor.MustNewMatrix(grad.Rows, grad.Cols)
	for i := 0; i < grad.Rows; i++ {
		for j := 0; j < grad.Cols; j++ {
			y := s.output.Data[i][j]
			out.Data[i][j] = grad.Data[i][j] * y * (1 - y)
		}
	}
	return out, nil
}

// Parameters returns nil, Sigmoid has no weights
func (s *Sigmoid) Parameters() []*Parameter { return nil }

// SetTraining is a no-op for activations
func (s *Sigmoid) SetTraining(bool) {}
