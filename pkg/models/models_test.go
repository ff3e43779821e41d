package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dualword/chemicalx/pkg/data"
	"github.com/dualword/chemicalx/pkg/nn"
	"github.com/dualword/chemicalx/pkg/tensor"
)

func smallMatchMaker(t *testing.T) *MatchMaker {
	t.Helper()
	cfg := MatchMakerConfig{
		ContextChannels:      2,
		DrugChannels:         3,
		InputHiddenChannels:  8,
		MiddleHiddenChannels: 4,
		FinalHiddenChannels:  6,
		OutChannels:          1,
		DropoutRate:          0, // deterministic forward
	}
	m, err := NewMatchMaker(cfg)
	require.NoError(t, err)
	return m
}

func TestMatchMakerForwardOnZeros(t *testing.T) {
	m := smallMatchMaker(t)

	context := tensor.MustNewMatrix(5, 2)
	left := tensor.MustNewMatrix(5, 3)
	right := tensor.MustNewMatrix(5, 3)

	out, err := m.Forward(context, left, right)
	require.NoError(t, err)
	require.Equal(t, 5, out.Rows)
	require.Equal(t, 1, out.Cols)
	for i := 0; i < out.Rows; i++ {
		assert.Greater(t, out.Data[i][0], 0.0)
		assert.Less(t, out.Data[i][0], 1.0)
	}
}

func TestMatchMakerSwapChangesScore(t *testing.T) {
	m := smallMatchMaker(t)

	context, err := tensor.NewMatrixFromRows([][]float64{{0.2, -0.4}})
	require.NoError(t, err)
	left, err := tensor.NewMatrixFromRows([][]float64{{1, 0, -1}})
	require.NoError(t, err)
	right, err := tensor.NewMatrixFromRows([][]float64{{-0.5, 0.7, 0.1}})
	require.NoError(t, err)

	straight, err := m.Forward(context, left, right)
	require.NoError(t, err)
	swapped, err := m.Forward(context, right, left)
	require.NoError(t, err)

	// The towers share weights but the embedding concatenation order is
	// left-before-right, so swapped inputs land on different head inputs.
	assert.Greater(t, math.Abs(straight.Data[0][0]-swapped.Data[0][0]), 1e-12)
}

func TestMatchMakerRejectsMismatchedRows(t *testing.T) {
	m := smallMatchMaker(t)
	context := tensor.MustNewMatrix(4, 2)
	left := tensor.MustNewMatrix(3, 3)
	right := tensor.MustNewMatrix(4, 3)

	_, err := m.Forward(context, left, right)
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch)
}

func TestMatchMakerRejectsWrongArity(t *testing.T) {
	m := smallMatchMaker(t)
	_, err := m.Forward(tensor.MustNewMatrix(1, 2))
	assert.Error(t, err)
}

func TestMatchMakerUnpack(t *testing.T) {
	m := smallMatchMaker(t)

	batch := &data.DrugPairBatch{
		Identifiers:       []data.LabeledTriple{{DrugLeft: "a", DrugRight: "b", Context: "c"}},
		ContextFeatures:   tensor.MustNewMatrix(1, 2),
		DrugFeaturesLeft:  tensor.MustNewMatrix(1, 3),
		DrugFeaturesRight: tensor.MustNewMatrix(1, 3),
	}
	inputs, err := m.Unpack(batch)
	require.NoError(t, err)
	require.Len(t, inputs, 3)
	assert.Same(t, batch.ContextFeatures, inputs[0])
	assert.Same(t, batch.DrugFeaturesLeft, inputs[1])
	assert.Same(t, batch.DrugFeaturesRight, inputs[2])
}

func TestMatchMakerUnpackMissingField(t *testing.T) {
	m := smallMatchMaker(t)

	tests := []struct {
		name  string
		batch *data.DrugPairBatch
	}{
		{"no context", &data.DrugPairBatch{
			DrugFeaturesLeft:  tensor.MustNewMatrix(1, 3),
			DrugFeaturesRight: tensor.MustNewMatrix(1, 3),
		}},
		{"no left drug", &data.DrugPairBatch{
			ContextFeatures:   tensor.MustNewMatrix(1, 2),
			DrugFeaturesRight: tensor.MustNewMatrix(1, 3),
		}},
		{"no right drug", &data.DrugPairBatch{
			ContextFeatures:  tensor.MustNewMatrix(1, 2),
			DrugFeaturesLeft: tensor.MustNewMatrix(1, 3),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Unpack(tt.batch)
			assert.ErrorIs(t, err, ErrMissingField)
		})
	}
}

func TestMatchMakerParameterSharing(t *testing.T) {
	m := smallMatchMaker(t)

	// 3 encoder linears + 2 head linears, each with weight and bias. The
	// encoder set appears once even though it serves both towers.
	params := m.Parameters()
	assert.Len(t, params, 10)
}

// TestMatchMakerGradientCheck verifies the shared-encoder backward pass
// against central finite differences with loss = sum(scores).
func TestMatchMakerGradientCheck(t *testing.T) {
	m := smallMatchMaker(t)

	context, err := tensor.NewMatrixFromRows([][]float64{{0.3, -0.1}, {0.5, 0.2}})
	require.NoError(t, err)
	left, err := tensor.NewMatrixFromRows([][]float64{{0.4, -0.6, 0.2}, {-0.3, 0.1, 0.9}})
	require.NoError(t, err)
	right, err := tensor.NewMatrixFromRows([][]float64{{-0.2, 0.8, 0.5}, {0.6, -0.4, 0.3}})
	require.NoError(t, err)

	lossOf := func() float64 {
		out, err := m.Forward(context, left, right)
		require.NoError(t, err)
		total := 0.0
		for i := 0; i < out.Rows; i++ {
			total += out.Data[i][0]
		}
		return total
	}

	out, err := m.Forward(context, left, right)
	require.NoError(t, err)
	grad := tensor.MustNewMatrix(out.Rows, out.Cols)
	for i := 0; i < grad.Rows; i++ {
		grad.Data[i][0] = 1
	}
	require.NoError(t, m.Backward(grad))

	const eps = 1e-6
	for _, p := range m.Parameters() {
		for r := 0; r < p.Value.Rows; r++ {
			for c := 0; c < p.Value.Cols; c++ {
				orig := p.Value.Data[r][c]
				p.Value.Data[r][c] = orig + eps
				plus := lossOf()
				p.Value.Data[r][c] = orig - eps
				minus := lossOf()
				p.Value.Data[r][c] = orig

				numeric := (plus - minus) / (2 * eps)
				analytic := p.Grad.Data[r][c]
				if math.Abs(numeric) < 1e-10 && math.Abs(analytic) < 1e-10 {
					continue
				}
				assert.InDelta(t, numeric, analytic, 1e-4)
			}
		}
	}
}

func TestMatchMakerBackwardBeforeForward(t *testing.T) {
	m := smallMatchMaker(t)
	err := m.Backward(tensor.MustNewMatrix(1, 1))
	assert.Error(t, err)
}

func TestMatchMakerInvalidConfig(t *testing.T) {
	_, err := NewMatchMaker(MatchMakerConfig{ContextChannels: 0, DrugChannels: 3})
	assert.Error(t, err)

	cfg := DefaultMatchMakerConfig(2, 3)
	cfg.MiddleHiddenChannels = 0
	_, err = NewMatchMaker(cfg)
	assert.Error(t, err)
}

func TestDefaultMatchMakerConfig(t *testing.T) {
	cfg := DefaultMatchMakerConfig(112, 256)
	assert.Equal(t, 112, cfg.ContextChannels)
	assert.Equal(t, 256, cfg.DrugChannels)
	assert.Equal(t, 32, cfg.InputHiddenChannels)
	assert.Equal(t, 32, cfg.MiddleHiddenChannels)
	assert.Equal(t, 32, cfg.FinalHiddenChannels)
	assert.Equal(t, 1, cfg.OutChannels)
	assert.Equal(t, 0.5, cfg.DropoutRate)
}

func TestDeepSynergyForwardOnZeros(t *testing.T) {
	cfg := DefaultDeepSynergyConfig(2, 3)
	cfg.DropoutRate = 0
	d, err := NewDeepSynergy(cfg)
	require.NoError(t, err)

	out, err := d.Forward(tensor.MustNewMatrix(4, 2), tensor.MustNewMatrix(4, 3), tensor.MustNewMatrix(4, 3))
	require.NoError(t, err)
	require.Equal(t, 4, out.Rows)
	require.Equal(t, 1, out.Cols)
	for i := 0; i < out.Rows; i++ {
		assert.Greater(t, out.Data[i][0], 0.0)
		assert.Less(t, out.Data[i][0], 1.0)
	}
}

func TestDeepSynergyStackLayout(t *testing.T) {
	d, err := NewDeepSynergy(DefaultDeepSynergyConfig(2, 3))
	require.NoError(t, err)

	layers := d.net.Layers()
	require.Len(t, layers, 8)
	assert.IsType(t, &nn.Dropout{}, layers[0])
	assert.IsType(t, &nn.Linear{}, layers[1])
	assert.IsType(t, &nn.ReLU{}, layers[2])
	assert.IsType(t, &nn.Linear{}, layers[3])
	assert.IsType(t, &nn.ReLU{}, layers[4])
	assert.IsType(t, &nn.Dropout{}, layers[5])
	assert.IsType(t, &nn.Linear{}, layers[6])
	assert.IsType(t, &nn.Sigmoid{}, layers[7])

	// 3 linears, each with weight and bias
	assert.Len(t, d.Parameters(), 6)
}

// TestDeepSynergyGradientCheck verifies the stack's backward pass against
// central finite differences with loss = sum(scores).
func TestDeepSynergyGradientCheck(t *testing.T) {
	cfg := DeepSynergyConfig{
		ContextChannels:      2,
		DrugChannels:         3,
		InputHiddenChannels:  8,
		MiddleHiddenChannels: 4,
		OutChannels:          1,
		DropoutRate:          0, // deterministic forward
	}
	d, err := NewDeepSynergy(cfg)
	require.NoError(t, err)

	context, err := tensor.NewMatrixFromRows([][]float64{{0.3, -0.1}, {0.5, 0.2}})
	require.NoError(t, err)
	left, err := tensor.NewMatrixFromRows([][]float64{{0.4, -0.6, 0.2}, {-0.3, 0.1, 0.9}})
	require.NoError(t, err)
	right, err := tensor.NewMatrixFromRows([][]float64{{-0.2, 0.8, 0.5}, {0.6, -0.4, 0.3}})
	require.NoError(t, err)

	lossOf := func() float64 {
		out, err := d.Forward(context, left, right)
		require.NoError(t, err)
		total := 0.0
		for i := 0; i < out.Rows; i++ {
			total += out.Data[i][0]
		}
		return total
	}

	out, err := d.Forward(context, left, right)
	require.NoError(t, err)
	grad := tensor.MustNewMatrix(out.Rows, out.Cols)
	for i := 0; i < grad.Rows; i++ {
		grad.Data[i][0] = 1
	}
	require.NoError(t, d.Backward(grad))

	const eps = 1e-6
	for _, p := range d.Parameters() {
		for r := 0; r < p.Value.Rows; r++ {
			for c := 0; c < p.Value.Cols; c++ {
				orig := p.Value.Data[r][c]
				p.Value.Data[r][c] = orig + eps
				plus := lossOf()
				p.Value.Data[r][c] = orig - eps
				minus := lossOf()
				p.Value.Data[r][c] = orig

				numeric := (plus - minus) / (2 * eps)
				analytic := p.Grad.Data[r][c]
				if math.Abs(numeric) < 1e-10 && math.Abs(analytic) < 1e-10 {
					continue
				}
				assert.InDelta(t, numeric, analytic, 1e-4)
			}
		}
	}
}

func TestDeepSynergyInvalidConfig(t *testing.T) {
	_, err := NewDeepSynergy(DeepSynergyConfig{ContextChannels: 0, DrugChannels: 3})
	assert.Error(t, err)

	cfg := DefaultDeepSynergyConfig(2, 3)
	cfg.MiddleHiddenChannels = 0
	_, err = NewDeepSynergy(cfg)
	assert.Error(t, err)
}

func TestDeepSynergyUnpackMatchesMatchMaker(t *testing.T) {
	cfg := DefaultDeepSynergyConfig(2, 3)
	d, err := NewDeepSynergy(cfg)
	require.NoError(t, err)

	batch := &data.DrugPairBatch{
		ContextFeatures:   tensor.MustNewMatrix(1, 2),
		DrugFeaturesLeft:  tensor.MustNewMatrix(1, 3),
		DrugFeaturesRight: tensor.MustNewMatrix(1, 3),
	}
	inputs, err := d.Unpack(batch)
	require.NoError(t, err)
	assert.Len(t, inputs, 3)

	_, err = d.Unpack(&data.DrugPairBatch{})
	assert.ErrorIs(t, err, ErrMissingField)
}
