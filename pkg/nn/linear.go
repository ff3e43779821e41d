package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/dualword/chemicalx/pkg/tensor"
)

// Linear is a fully connected layer computing input*W + b
type Linear struct {
	InputDim  int
	OutputDim int
	W         *Parameter
	B         *Parameter

	input *tensor.Matrix
}

// NewLinear creates a new fully connected layer with Xavier-uniform weights
func NewLinear(inputDim, outputDim int) (*Linear, error) {
	if inputDim <= 0 || outputDim <= 0 {
		return nil, fmt.Errorf("invalid linear dimensions: in=%d, out=%d (must be positive)", inputDim, outputDim)
	}

	w := tensor.MustNewMatrix(inputDim, outputDim)
	limit := math.Sqrt(6.0 / float64(inputDim+outputDim))
	for i := 0; i < inputDim; i++ {
		for j := 0; j < outputDim; j++ {
			w.Data[i][j] = (rand.Float64()*2 - 1) * limit
		}
	}

	return &Linear{
		InputDim:  inputDim,
		OutputDim: outputDim,
		W:         NewParameter("weight", w),
		B:         NewParameter("bias", tensor.MustNewMatrix(1, outputDim)),
	}, nil
}

// MustNewLinear creates a new fully connected layer.
// Panics if dimensions are invalid.
func MustNewLinear(inputDim, outputDim int) *Linear {
	l, err := NewLinear(inputDim, outputDim)
	if err != nil {
		panic(err)
	}
	return l
}

// Forward computes input*W + b and caches the input for Backward
func (l *Linear) Forward(input *tensor.Matrix) (*tensor.Matrix, error) {
	if input.Cols != l.InputDim {
		return nil, fmt.Errorf("linear expects %d input features, got %d: %w", l.InputDim, input.Cols, tensor.ErrDimensionMismatch)
	}

	out, err := tensor.MatMul(input, l.W.Value)
	if err != nil {
		return nil, fmt.Errorf("linear forward: %w", err)
	}
	if err := out.AddRowVector(l.B.Value); err != nil {
		return nil, fmt.Errorf("linear bias: %w", err)
	}

	l.input = input
	return out, nil
}

// Backward accumulates weight gradients and returns the input gradient
func (l *Linear) Backward(grad *tensor.Matrix) (*tensor.Matrix, error) {
	if l.input == nil {
		return nil, fmt.Errorf("linear backward called before forward")
	}
	if grad.Rows != l.input.Rows || grad.Cols != l.OutputDim {
		return nil, fmt.Errorf("linear backward got %dx%d gradient, want %dx%d: %w",
			grad.Rows, grad.Cols, l.input.Rows, l.OutputDim, tensor.ErrDimensionMismatch)
	}

	dw, err := tensor.MatMul(l.input.Transpose(), grad)
	if err != nil {
		return nil, fmt.Errorf("linear weight gradient: %w", err)
	}
	if err := tensor.AddInPlace(l.W.Grad, dw); err != nil {
		return nil, err
	}

	for j := 0; j < l.OutputDim; j++ {
		sum := 0.0
		for i := 0; i < grad.Rows; i++ {
			sum += grad.Data[i][j]
		}
		l.B.Grad.Data[0][j] += sum
	}

	dx, err := tensor.MatMul(grad, l.W.Value.Transpose())
	if err != nil {
		return nil, fmt.Errorf("linear input gradient: %w", err)
	}
	return dx, nil
}

// Parameters returns the weight and bias
func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.W, l.B}
}

// SetTraining is a no-op for linear layers
func (l *Linear) SetTraining(bool) {}
