// Package models implements drug-pair synergy prediction models on top of
// pkg/nn. Each model unpacks the tensors it needs from a DrugPairBatch,
// scores one row per drug pair, and supports an explicit backward pass
// for training.
package models

import (
	"errors"
	"fmt"

	"github.com/dualword/chemicalx/pkg/data"
	"github.com/dualword/chemicalx/pkg/nn"
	"github.com/dualword/chemicalx/pkg/tensor"
)

// ErrMissingField indicates that a batch lacks a tensor the model needs,
// usually because the generator flag for that category was disabled.
var ErrMissingField = errors.New("models: missing batch field")

// Model is a trainable synergy scorer. Unpack projects the tensors the
// model consumes out of a batch, in the order Forward expects them.
type Model interface {
	Unpack(batch *data.DrugPairBatch) ([]*tensor.Matrix, error)
	Forward(inputs ...*tensor.Matrix) (*tensor.Matrix, error)
	Backward(grad *tensor.Matrix) error
	Parameters() []*nn.Parameter
	SetTraining(training bool)
}

// unpackPairFeatures returns (context, left drug, right drug) features,
// failing on any absent field
func unpackPairFeatures(batch *data.DrugPairBatch) ([]*tensor.Matrix, error) {
	if batch.ContextFeatures == nil {
		return nil, fmt.Errorf("%w: context features", ErrMissingField)
	}
	if batch.DrugFeaturesLeft == nil {
		return nil, fmt.Errorf("%w: left drug features", ErrMissingField)
	}
	if batch.DrugFeaturesRight == nil {
		return nil, fmt.Errorf("%w: right drug features", ErrMissingField)
	}
	return []*tensor.Matrix{batch.ContextFeatures, batch.DrugFeaturesLeft, batch.DrugFeaturesRight}, nil
}
