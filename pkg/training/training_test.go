package training

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dualword/chemicalx/pkg/data"
	"github.com/dualword/chemicalx/pkg/models"
	"github.com/dualword/chemicalx/pkg/nn"
	"github.com/dualword/chemicalx/pkg/tensor"
)

func TestBCELossKnownValues(t *testing.T) {
	predictions, err := tensor.NewMatrixFromRows([][]float64{{0.9}, {0.1}})
	require.NoError(t, err)
	targets, err := tensor.NewMatrixFromRows([][]float64{{1}, {0}})
	require.NoError(t, err)

	loss, grad, err := BCELoss(predictions, targets)
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(0.9), loss, 1e-9)

	// Confident correct predictions pull gently toward the target
	assert.Less(t, grad.Data[0][0], 0.0)
	assert.Greater(t, grad.Data[1][0], 0.0)
}

func TestBCELossClampsExtremes(t *testing.T) {
	predictions, err := tensor.NewMatrixFromRows([][]float64{{0}, {1}})
	require.NoError(t, err)
	targets, err := tensor.NewMatrixFromRows([][]float64{{1}, {0}})
	require.NoError(t, err)

	loss, _, err := BCELoss(predictions, targets)
	require.NoError(t, err)
	assert.False(t, math.IsInf(loss, 0))
	assert.False(t, math.IsNaN(loss))
}

func TestBCELossShapeMismatch(t *testing.T) {
	_, _, err := BCELoss(tensor.MustNewMatrix(2, 1), tensor.MustNewMatrix(3, 1))
	assert.ErrorIs(t, err, tensor.ErrDimensionMismatch)
}

func TestAUROC(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		labels []float64
		want   float64
	}{
		{"perfect ranking", []float64{0.9, 0.8, 0.3, 0.2}, []float64{1, 1, 0, 0}, 1.0},
		{"inverted ranking", []float64{0.1, 0.2, 0.8, 0.9}, []float64{1, 1, 0, 0}, 0.0},
		{"random ties", []float64{0.5, 0.5, 0.5, 0.5}, []float64{1, 0, 1, 0}, 0.5},
		{"partial", []float64{0.9, 0.4, 0.6, 0.2}, []float64{1, 0, 0, 0}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUROC(tt.scores, tt.labels)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestAUROCNeedsBothClasses(t *testing.T) {
	_, err := AUROC([]float64{0.1, 0.9}, []float64{1, 1})
	assert.Error(t, err)
	_, err = AUROC([]float64{0.1}, []float64{1, 0})
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	s, err := Summarize([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, s.Mean, 1e-9)
	assert.InDelta(t, 1.0, s.StdDev, 1e-9)

	single, err := Summarize([]float64{4})
	require.NoError(t, err)
	assert.Equal(t, 4.0, single.Mean)
	assert.Zero(t, single.StdDev)

	_, err = Summarize(nil)
	assert.Error(t, err)
}

func TestSGDStep(t *testing.T) {
	p := nn.NewParameter("w", tensor.MustNewMatrix(1, 1))
	p.Value.Data[0][0] = 1.0
	p.Grad.Data[0][0] = 0.5

	opt, err := NewSGD([]*nn.Parameter{p}, 0.1, 0)
	require.NoError(t, err)
	require.NoError(t, opt.Step())
	assert.InDelta(t, 0.95, p.Value.Data[0][0], 1e-12)

	opt.ZeroGrad()
	assert.Zero(t, p.Grad.Data[0][0])
}

func TestSGDMomentumAccumulates(t *testing.T) {
	p := nn.NewParameter("w", tensor.MustNewMatrix(1, 1))
	opt, err := NewSGD([]*nn.Parameter{p}, 1.0, 0.5)
	require.NoError(t, err)

	p.Grad.Data[0][0] = 1
	require.NoError(t, opt.Step()) // v=1, w=-1
	require.NoError(t, opt.Step()) // v=1.5, w=-2.5
	assert.InDelta(t, -2.5, p.Value.Data[0][0], 1e-12)
}

func TestAdamStepDirection(t *testing.T) {
	p := nn.NewParameter("w", tensor.MustNewMatrix(1, 1))
	p.Grad.Data[0][0] = 2.0

	opt, err := NewAdam([]*nn.Parameter{p}, 0.01)
	require.NoError(t, err)
	require.NoError(t, opt.Step())

	// First bias-corrected step moves by roughly -lr in the gradient direction
	assert.Less(t, p.Value.Data[0][0], 0.0)
	assert.InDelta(t, -0.01, p.Value.Data[0][0], 1e-3)
}

func TestOptimizerInvalidConfig(t *testing.T) {
	_, err := NewSGD(nil, 0, 0)
	assert.Error(t, err)
	_, err = NewSGD(nil, 0.1, 1.0)
	assert.Error(t, err)
	_, err = NewAdam(nil, -1)
	assert.Error(t, err)
}

// synthetic dataset where synergy depends only on the left drug, so a
// trained model must separate it
func syntheticDataset(t *testing.T) (*data.FeatureSet, *data.DrugFeatureSet, *data.LabeledTriples) {
	t.Helper()
	rng := rand.New(rand.NewSource(11))

	contexts := map[string][]float64{}
	for i := 0; i < 3; i++ {
		vec := make([]float64, 4)
		for j := range vec {
			vec[j] = rng.Float64()
		}
		contexts[fmt.Sprintf("c%d", i)] = vec
	}
	contextSet, err := data.NewFeatureSet(contexts)
	require.NoError(t, err)

	drugs := map[string]*data.DrugEntry{}
	for i := 0; i < 6; i++ {
		vec := make([]float64, 5)
		for j := range vec {
			vec[j] = rng.Float64()
		}
		// Make the synergistic drugs clearly separable
		if i < 3 {
			vec[0] += 2.0
		}
		drugs[fmt.Sprintf("d%d", i)] = &data.DrugEntry{Features: vec}
	}
	drugSet, err := data.NewDrugFeatureSet(drugs)
	require.NoError(t, err)

	var rows []data.LabeledTriple
	for i := 0; i < 96; i++ {
		leftIdx := i % 6
		label := 0.0
		if leftIdx < 3 {
			label = 1.0
		}
		rows = append(rows, data.LabeledTriple{
			DrugLeft:  fmt.Sprintf("d%d", leftIdx),
			DrugRight: fmt.Sprintf("d%d", (i+1)%6),
			Context:   fmt.Sprintf("c%d", i%3),
			Label:     label,
		})
	}
	return contextSet, drugSet, data.NewLabeledTriples(rows)
}

func TestTrainerReducesLoss(t *testing.T) {
	contextSet, drugSet, triples := syntheticDataset(t)

	cfg := models.MatchMakerConfig{
		ContextChannels:      4,
		DrugChannels:         5,
		InputHiddenChannels:  16,
		MiddleHiddenChannels: 8,
		FinalHiddenChannels:  8,
		OutChannels:          1,
		DropoutRate:          0,
	}
	model, err := models.NewMatchMaker(cfg)
	require.NoError(t, err)

	opt, err := NewAdam(model.Parameters(), 0.01)
	require.NoError(t, err)
	gen, err := data.NewBatchGenerator(16, true, true, false, true)
	require.NoError(t, err)

	trainer, err := NewTrainer(model, opt, gen, 40)
	require.NoError(t, err)
	trainer.Shuffle = true
	trainer.Rng = rand.New(rand.NewSource(5))

	losses, err := trainer.Fit(contextSet, drugSet, triples)
	require.NoError(t, err)
	require.Len(t, losses, 40)
	assert.Less(t, losses[len(losses)-1], losses[0])
	assert.Less(t, losses[len(losses)-1], 0.5)
}

func TestTrainerReducesLossDeepSynergy(t *testing.T) {
	contextSet, drugSet, triples := syntheticDataset(t)

	cfg := models.DeepSynergyConfig{
		ContextChannels:      4,
		DrugChannels:         5,
		InputHiddenChannels:  16,
		MiddleHiddenChannels: 8,
		OutChannels:          1,
		DropoutRate:          0,
	}
	model, err := models.NewDeepSynergy(cfg)
	require.NoError(t, err)

	opt, err := NewAdam(model.Parameters(), 0.01)
	require.NoError(t, err)
	gen, err := data.NewBatchGenerator(16, true, true, false, true)
	require.NoError(t, err)

	trainer, err := NewTrainer(model, opt, gen, 40)
	require.NoError(t, err)
	trainer.Shuffle = true
	trainer.Rng = rand.New(rand.NewSource(5))

	losses, err := trainer.Fit(contextSet, drugSet, triples)
	require.NoError(t, err)
	require.Len(t, losses, 40)
	assert.Less(t, losses[len(losses)-1], losses[0])
	assert.Less(t, losses[len(losses)-1], 0.5)
}

func TestTrainerRequiresLabels(t *testing.T) {
	contextSet, drugSet, triples := syntheticDataset(t)

	model, err := models.NewMatchMaker(models.DefaultMatchMakerConfig(4, 5))
	require.NoError(t, err)
	opt, err := NewAdam(model.Parameters(), 0.01)
	require.NoError(t, err)
	gen, err := data.NewBatchGenerator(16, true, true, false, false)
	require.NoError(t, err)

	trainer, err := NewTrainer(model, opt, gen, 1)
	require.NoError(t, err)
	_, err = trainer.Fit(contextSet, drugSet, triples)
	assert.ErrorContains(t, err, "labels")
}

func TestTrainerDoesNotReorderCallerTriples(t *testing.T) {
	contextSet, drugSet, triples := syntheticDataset(t)
	before := make([]data.LabeledTriple, triples.Len())
	for i := 0; i < triples.Len(); i++ {
		before[i] = triples.Row(i)
	}

	model, err := models.NewMatchMaker(models.DefaultMatchMakerConfig(4, 5))
	require.NoError(t, err)
	opt, err := NewSGD(model.Parameters(), 0.01, 0)
	require.NoError(t, err)
	gen, err := data.NewBatchGenerator(32, true, true, false, true)
	require.NoError(t, err)

	trainer, err := NewTrainer(model, opt, gen, 2)
	require.NoError(t, err)
	trainer.Shuffle = true
	trainer.Rng = rand.New(rand.NewSource(9))

	_, err = trainer.Fit(contextSet, drugSet, triples)
	require.NoError(t, err)
	for i := 0; i < triples.Len(); i++ {
		assert.Equal(t, before[i], triples.Row(i))
	}
}

func TestEvaluateModel(t *testing.T) {
	contextSet, drugSet, triples := syntheticDataset(t)

	cfg := models.MatchMakerConfig{
		ContextChannels:      4,
		DrugChannels:         5,
		InputHiddenChannels:  16,
		MiddleHiddenChannels: 8,
		FinalHiddenChannels:  8,
		OutChannels:          1,
		DropoutRate:          0,
	}
	model, err := models.NewMatchMaker(cfg)
	require.NoError(t, err)
	opt, err := NewAdam(model.Parameters(), 0.01)
	require.NoError(t, err)
	gen, err := data.NewBatchGenerator(16, true, true, false, true)
	require.NoError(t, err)

	trainer, err := NewTrainer(model, opt, gen, 40)
	require.NoError(t, err)
	_, err = trainer.Fit(contextSet, drugSet, triples)
	require.NoError(t, err)

	result, err := EvaluateModel(model, gen, contextSet, drugSet, triples)
	require.NoError(t, err)
	assert.Equal(t, 96, result.Rows)
	assert.Greater(t, result.AUROC, 0.9)
	assert.Greater(t, result.Accuracy, 0.8)
	assert.Less(t, result.Loss, 0.6)
}

func TestEvaluateModelRejectsMultiColumnPredictions(t *testing.T) {
	contextSet, drugSet, triples := syntheticDataset(t)

	cfg := models.DefaultMatchMakerConfig(4, 5)
	cfg.OutChannels = 2
	cfg.DropoutRate = 0
	model, err := models.NewMatchMaker(cfg)
	require.NoError(t, err)
	gen, err := data.NewBatchGenerator(16, true, true, false, true)
	require.NoError(t, err)

	_, err = EvaluateModel(model, gen, contextSet, drugSet, triples)
	assert.ErrorContains(t, err, "single-column")
}

func TestTrainerInvalidEpochs(t *testing.T) {
	_, err := NewTrainer(nil, nil, nil, 0)
	assert.Error(t, err)
}
