package nn

import (
	"fmt"
	"math/rand"

	"github.com/dualword/chemicalx/pkg/tensor"
)

// Dropout is an inverted-dropout regularization layer. Outside training
// mode it is the identity.
type Dropout struct {
	Rate float64

	rng      *rand.Rand
	training bool
	mask     *tensor.Matrix
}

// NewDropout creates a new dropout layer with the specified drop rate
func NewDropout(rate float64) (*Dropout, error) {
	if rate < 0 || rate >= 1 {
		return nil, fmt.Errorf("invalid dropout rate %f (must be in [0,1))", rate)
	}
	return &Dropout{Rate: rate}, nil
}

// MustNewDropout creates a new dropout layer.
// Panics if the rate is invalid.
func MustNewDropout(rate float64) *Dropout {
	d, err := NewDropout(rate)
	if err != nil {
		panic(err)
	}
	return d
}

// SetRand replaces the random source, for reproducible masks
func (d *Dropout) SetRand(rng *rand.Rand) {
	d.rng = rng
}

func (d *Dropout) random() float64 {
	if d.rng != nil {
		return d.rng.Float64()
	}
	return rand.Float64()
}

// Forward drops elements with probability Rate during training, scaling
// the survivors by 1/(1-Rate) to keep the expected value
func (d *Dropout) Forward(input *tensor.Matrix) (*tensor.Matrix, error) {
	if !d.training || d.Rate == 0 {
		d.mask = nil
		return input, nil
	}

	scale := 1.0 / (1.0 - d.Rate)
	d.mask = tensor.MustNewMatrix(input.Rows, input.Cols)
	out := tensor.MustNewMatrix(input.Rows, input.Cols)
	for i := 0; i < input.Rows; i++ {
		for j := 0; j < input.Cols; j++ {
			if d.random() > d.Rate {
				d.mask.Data[i][j] = scale
				out.Data[i][j] = input.Data[i][j] * scale
			}
		}
	}
	return out, nil
}

// Backward applies the mask recorded during the forward pass
func (d *Dropout) Backward(grad *tensor.Matrix) (*tensor.Matrix, error) {
	if d.mask == nil {
		return grad, nil
	}
	out, err := tensor.Hadamard(grad, d.mask)
	if err != nil {
		return nil, fmt.Errorf("dropout backward: %w", err)
	}
	return out, nil
}

// Parameters returns nil, Dropout has no weights
func (d *Dropout) Parameters() []*Parameter { return nil }

// SetTraining toggles mask generation
func (d *Dropout) SetTraining(training bool) {
	d.training = training
}
