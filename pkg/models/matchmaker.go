package models

import (
	"fmt"

	"github.com/dualword/chemicalx/pkg/data"
	"github.com/dualword/chemicalx/pkg/nn"
	"github.com/dualword/chemicalx/pkg/tensor"
)

// MatchMakerConfig fixes the channel widths of a MatchMaker at
// construction time
type MatchMakerConfig struct {
	ContextChannels      int
	DrugChannels         int
	InputHiddenChannels  int
	MiddleHiddenChannels int
	FinalHiddenChannels  int
	OutChannels          int
	DropoutRate          float64
}

// DefaultMatchMakerConfig returns the reference hyperparameters for the
// given feature widths
func DefaultMatchMakerConfig(contextChannels, drugChannels int) MatchMakerConfig {
	return MatchMakerConfig{
		ContextChannels:      contextChannels,
		DrugChannels:         drugChannels,
		InputHiddenChannels:  32,
		MiddleHiddenChannels: 32,
		FinalHiddenChannels:  32,
		OutChannels:          1,
		DropoutRate:          0.5,
	}
}

// MatchMaker is a dual-tower synergy model. One shared encoder maps
// context+left-drug and context+right-drug to middle-channel embeddings;
// the concatenated embeddings pass through a scoring head ending in a
// sigmoid, so scores land strictly in (0,1).
//
// The weight sharing between the towers is load-bearing: both towers are
// the same encoder instance, applied to the row-stacked pair of inputs in
// a single pass so its activation caches stay valid for Backward.
type MatchMaker struct {
	cfg     MatchMakerConfig
	encoder *nn.Sequential
	head    *nn.Sequential

	batchRows int
}

// NewMatchMaker constructs the model from its configuration
func NewMatchMaker(cfg MatchMakerConfig) (*MatchMaker, error) {
	if cfg.ContextChannels <= 0 || cfg.DrugChannels <= 0 {
		return nil, fmt.Errorf("matchmaker needs positive context and drug channels, got %d and %d",
			cfg.ContextChannels, cfg.DrugChannels)
	}
	if cfg.InputHiddenChannels <= 0 || cfg.MiddleHiddenChannels <= 0 ||
		cfg.FinalHiddenChannels <= 0 || cfg.OutChannels <= 0 {
		return nil, fmt.Errorf("matchmaker needs positive hidden widths")
	}

	dropIn, err := nn.NewDropout(cfg.DropoutRate)
	if err != nil {
		return nil, err
	}
	dropMid, err := nn.NewDropout(cfg.DropoutRate)
	if err != nil {
		return nil, err
	}
	dropHead, err := nn.NewDropout(cfg.DropoutRate)
	if err != nil {
		return nil, err
	}

	encoder := nn.NewSequential(
		nn.MustNewLinear(cfg.ContextChannels+cfg.DrugChannels, cfg.InputHiddenChannels),
		nn.NewReLU(),
		dropIn,
		nn.MustNewLinear(cfg.InputHiddenChannels, cfg.MiddleHiddenChannels),
		nn.NewReLU(),
		dropMid,
		nn.MustNewLinear(cfg.MiddleHiddenChannels, cfg.MiddleHiddenChannels),
	)

	head := nn.NewSequential(
		nn.MustNewLinear(2*cfg.MiddleHiddenChannels, cfg.FinalHiddenChannels),
		nn.NewReLU(),
		dropHead,
		nn.MustNewLinear(cfg.FinalHiddenChannels, cfg.OutChannels),
		nn.NewSigmoid(),
	)

	return &MatchMaker{cfg: cfg, encoder: encoder, head: head}, nil
}

// Config returns the construction-time configuration
func (m *MatchMaker) Config() MatchMakerConfig {
	return m.cfg
}

// Unpack returns the context, left drug and right drug feature tensors
func (m *MatchMaker) Unpack(batch *data.DrugPairBatch) ([]*tensor.Matrix, error) {
	return unpackPairFeatures(batch)
}

// Forward scores each drug pair. It expects exactly the three tensors
// returned by Unpack: context, left drug and right drug features.
func (m *MatchMaker) Forward(inputs ...*tensor.Matrix) (*tensor.Matrix, error) {
	if len(inputs) != 3 {
		return nil, fmt.Errorf("matchmaker forward expects 3 inputs, got %d", len(inputs))
	}
	context, left, right := inputs[0], inputs[1], inputs[2]

	hiddenLeft, err := tensor.ConcatColumns(context, left)
	if err != nil {
		return nil, fmt.Errorf("left tower input: %w", err)
	}
	hiddenRight, err := tensor.ConcatColumns(context, right)
	if err != nil {
		return nil, fmt.Errorf("right tower input: %w", err)
	}

	// Both towers share one encoder: stack the rows, encode once, split.
	stacked, err := tensor.ConcatRows(hiddenLeft, hiddenRight)
	if err != nil {
		return nil, err
	}
	encoded, err := m.encoder.Forward(stacked)
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}

	embeddingLeft, embeddingRight, err := tensor.SplitRows(encoded, context.Rows)
	if err != nil {
		return nil, err
	}
	merged, err := tensor.ConcatColumns(embeddingLeft, embeddingRight)
	if err != nil {
		return nil, err
	}

	scores, err := m.head.Forward(merged)
	if err != nil {
		return nil, fmt.Errorf("scoring head: %w", err)
	}

	m.batchRows = context.Rows
	return scores, nil
}

// Backward propagates the score gradient through the head and the shared
// encoder, accumulating parameter gradients
func (m *MatchMaker) Backward(grad *tensor.Matrix) error {
	if m.batchRows == 0 {
		return fmt.Errorf("matchmaker backward called before forward")
	}

	mergedGrad, err := m.head.Backward(grad)
	if err != nil {
		return fmt.Errorf("scoring head backward: %w", err)
	}

	leftGrad, rightGrad, err := tensor.SplitColumns(mergedGrad, m.cfg.MiddleHiddenChannels)
	if err != nil {
		return err
	}
	stackedGrad, err := tensor.ConcatRows(leftGrad, rightGrad)
	if err != nil {
		return err
	}

	if _, err := m.encoder.Backward(stackedGrad); err != nil {
		return fmt.Errorf("encoder backward: %w", err)
	}
	m.batchRows = 0
	return nil
}

// Parameters returns the encoder and head parameters. The encoder set
// appears once: both towers read and update the same weights.
func (m *MatchMaker) Parameters() []*nn.Parameter {
	return append(m.encoder.Parameters(), m.head.Parameters()...)
}

// SetTraining toggles dropout in both stages
func (m *MatchMaker) SetTraining(training bool) {
	m.encoder.SetTraining(training)
	m.head.SetTraining(training)
}
