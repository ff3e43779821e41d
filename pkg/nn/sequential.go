package nn

import (
	"fmt"

	"github.com/dualword/chemicalx/pkg/tensor"
)

// Sequential chains layers, feeding each output into the next layer
type Sequential struct {
	layers []Layer
}

// NewSequential creates a container over the given layers
func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{layers: layers}
}

// Forward runs the input through every layer in order
func (s *Sequential) Forward(input *tensor.Matrix) (*tensor.Matrix, error) {
	out := input
	var err error
	for i, layer := range s.layers {
		out, err = layer.Forward(out)
		if err != nil {
			return nil, fmt.Errorf("layer %d forward: %w", i, err)
		}
	}
	return out, nil
}

// Backward propagates the gradient through every layer in reverse order
func (s *Sequential) Backward(grad *tensor.Matrix) (*tensor.Matrix, error) {
	out := grad
	var err error
	for i := len(s.layers) - 1; i >= 0; i-- {
		out, err = s.layers[i].Backward(out)
		if err != nil {
			return nil, fmt.Errorf("layer %d backward: %w", i, err)
		}
	}
	return out, nil
}

// Parameters collects the parameters of every layer
func (s *Sequential) Parameters() []*Parameter {
	var params []*Parameter
	for _, layer := range s.layers {
		params = append(params, layer.Parameters()...)
	}
	return params
}

// SetTraining propagates the mode flag to every layer
func (s *Sequential) SetTraining(training bool) {
	for _, layer := range s.layers {
		layer.SetTraining(training)
	}
}

// Layers exposes the contained layers
func (s *Sequential) Layers() []Layer {
	return s.layers
}
