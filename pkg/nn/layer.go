// Package nn provides the neural network layers used by the synergy
// prediction models: linear transforms, activations, dropout and a
// sequential container. Layers cache their forward inputs so that
// Backward can be called once per Forward.
package nn

import "github.com/dualword/chemicalx/pkg/tensor"

// Parameter is a trainable weight with its accumulated gradient
type Parameter struct {
	Name  string
	Value *tensor.Matrix
	Grad  *tensor.Matrix
}

// NewParameter wraps a weight matrix with a zero gradient of the same shape
func NewParameter(name string, value *tensor.Matrix) *Parameter {
	return &Parameter{
		Name:  name,
		Value: value,
		Grad:  tensor.MustNewMatrix(value.Rows, value.Cols),
	}
}

// ZeroGrad resets the accumulated gradient
func (p *Parameter) ZeroGrad() {
	p.Grad.Zero()
}

// Layer is a differentiable network stage. Forward must be called before
// Backward; Backward consumes the gradient of the loss with respect to the
// layer output and returns it with respect to the layer input.
type Layer interface {
	Forward(input *tensor.Matrix) (*tensor.Matrix, error)
	Backward(grad *tensor.Matrix) (*tensor.Matrix, error)
	Parameters() []*Parameter
	SetTraining(training bool)
}
