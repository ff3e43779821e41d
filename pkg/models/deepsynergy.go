package models

import (
	"fmt"

	"github.com/dualword/chemicalx/pkg/data"
	"github.com/dualword/chemicalx/pkg/nn"
	"github.com/dualword/chemicalx/pkg/tensor"
)

// DeepSynergyConfig fixes the channel widths of a DeepSynergy model
type DeepSynergyConfig struct {
	ContextChannels      int
	DrugChannels         int
	InputHiddenChannels  int
	MiddleHiddenChannels int
	OutChannels          int
	DropoutRate          float64
}

// DefaultDeepSynergyConfig returns the reference hyperparameters for the
// given feature widths
func DefaultDeepSynergyConfig(contextChannels, drugChannels int) DeepSynergyConfig {
	return DeepSynergyConfig{
		ContextChannels:      contextChannels,
		DrugChannels:         drugChannels,
		InputHiddenChannels:  32,
		MiddleHiddenChannels: 32,
		OutChannels:          1,
		DropoutRate:          0.5,
	}
}

// DeepSynergy is a single-tower baseline: the context and both drug
// feature vectors are concatenated, passed through input dropout and two
// hidden Linear+ReLU blocks, then projected and squashed with a sigmoid.
// Unlike MatchMaker it has no shared encoder; pair order still matters
// through the concatenation order.
type DeepSynergy struct {
	cfg DeepSynergyConfig
	net *nn.Sequential
}

// NewDeepSynergy constructs the model from its configuration
func NewDeepSynergy(cfg DeepSynergyConfig) (*DeepSynergy, error) {
	if cfg.ContextChannels <= 0 || cfg.DrugChannels <= 0 {
		return nil, fmt.Errorf("deepsynergy needs positive context and drug channels, got %d and %d",
			cfg.ContextChannels, cfg.DrugChannels)
	}
	if cfg.InputHiddenChannels <= 0 || cfg.MiddleHiddenChannels <= 0 || cfg.OutChannels <= 0 {
		return nil, fmt.Errorf("deepsynergy needs positive hidden widths")
	}

	dropIn, err := nn.NewDropout(cfg.DropoutRate)
	if err != nil {
		return nil, err
	}
	dropHidden, err := nn.NewDropout(cfg.DropoutRate)
	if err != nil {
		return nil, err
	}

	net := nn.NewSequential(
		dropIn,
		nn.MustNewLinear(cfg.ContextChannels+2*cfg.DrugChannels, cfg.InputHiddenChannels),
		nn.NewReLU(),
		nn.MustNewLinear(cfg.InputHiddenChannels, cfg.MiddleHiddenChannels),
		nn.NewReLU(),
		dropHidden,
		nn.MustNewLinear(cfg.MiddleHiddenChannels, cfg.OutChannels),
		nn.NewSigmoid(),
	)

	return &DeepSynergy{cfg: cfg, net: net}, nil
}

// Config returns the construction-time configuration
func (d *DeepSynergy) Config() DeepSynergyConfig {
	return d.cfg
}

// Unpack returns the context, left drug and right drug feature tensors
func (d *DeepSynergy) Unpack(batch *data.DrugPairBatch) ([]*tensor.Matrix, error) {
	return unpackPairFeatures(batch)
}

// Forward scores each drug pair from the concatenated features
func (d *DeepSynergy) Forward(inputs ...*tensor.Matrix) (*tensor.Matrix, error) {
	if len(inputs) != 3 {
		return nil, fmt.Errorf("deepsynergy forward expects 3 inputs, got %d", len(inputs))
	}
	context, left, right := inputs[0], inputs[1], inputs[2]

	pair, err := tensor.ConcatColumns(left, right)
	if err != nil {
		return nil, fmt.Errorf("drug pair input: %w", err)
	}
	joined, err := tensor.ConcatColumns(context, pair)
	if err != nil {
		return nil, fmt.Errorf("joined input: %w", err)
	}

	scores, err := d.net.Forward(joined)
	if err != nil {
		return nil, fmt.Errorf("deepsynergy net: %w", err)
	}
	return scores, nil
}

// Backward propagates the score gradient through the stack
func (d *DeepSynergy) Backward(grad *tensor.Matrix) error {
	if _, err := d.net.Backward(grad); err != nil {
		return fmt.Errorf("deepsynergy backward: %w", err)
	}
	return nil
}

// Parameters returns the stack parameters
func (d *DeepSynergy) Parameters() []*nn.Parameter {
	return d.net.Parameters()
}

// SetTraining toggles dropout
func (d *DeepSynergy) SetTraining(training bool) {
	d.net.SetTraining(training)
}
