package training

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"github.com/rs/zerolog/log"

	"github.com/dualword/chemicalx/pkg/data"
	"github.com/dualword/chemicalx/pkg/models"
)

// Trainer runs epochs of mini-batch gradient descent over a labeled
// triples table
type Trainer struct {
	Model     models.Model
	Optimizer Optimizer
	Generator *data.BatchGenerator
	Epochs    int
	Shuffle   bool
	Rng       *rand.Rand
}

// NewTrainer wires a model, optimizer and generator into a trainer
func NewTrainer(model models.Model, optimizer Optimizer, generator *data.BatchGenerator, epochs int) (*Trainer, error) {
	if epochs <= 0 {
		return nil, fmt.Errorf("epochs must be positive, got %d", epochs)
	}
	return &Trainer{
		Model:     model,
		Optimizer: optimizer,
		Generator: generator,
		Epochs:    epochs,
	}, nil
}

// Fit trains the model and returns the mean training loss per epoch. The
// caller's triples table is cloned, so per-epoch shuffling never reorders
// the caller's data.
func (t *Trainer) Fit(contextSet *data.FeatureSet, drugSet *data.DrugFeatureSet, triples *data.LabeledTriples) ([]float64, error) {
	if triples.Len() == 0 {
		return nil, fmt.Errorf("cannot train on an empty triples table")
	}

	epochTriples := triples.Clone()
	t.Model.SetTraining(true)
	defer t.Model.SetTraining(false)

	losses := make([]float64, 0, t.Epochs)
	for epoch := 1; epoch <= t.Epochs; epoch++ {
		if t.Shuffle && t.Rng != nil {
			epochTriples.Shuffle(t.Rng)
		}
		t.Generator.SetData(contextSet, drugSet, epochTriples)

		loss, err := t.runEpoch()
		if err != nil {
			return losses, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		losses = append(losses, loss)

		log.Info().
			Int("epoch", epoch).
			Int("batches", t.Generator.Steps()).
			Float64("loss", loss).
			Msg("Epoch finished")
	}
	return losses, nil
}

func (t *Trainer) runEpoch() (float64, error) {
	it := t.Generator.Iter()
	total := 0.0
	rows := 0
	for {
		batch, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		if batch.Labels == nil {
			return 0, fmt.Errorf("training requires the labels category to be enabled")
		}

		loss, err := t.trainStep(batch)
		if err != nil {
			return 0, err
		}
		total += loss * float64(batch.Size())
		rows += batch.Size()
	}
	if rows == 0 {
		return 0, fmt.Errorf("generator yielded no batches")
	}
	return total / float64(rows), nil
}

func (t *Trainer) trainStep(batch *data.DrugPairBatch) (float64, error) {
	inputs, err := t.Model.Unpack(batch)
	if err != nil {
		return 0, err
	}
	predictions, err := t.Model.Forward(inputs...)
	if err != nil {
		return 0, err
	}
	loss, grad, err := BCELoss(predictions, batch.Labels)
	if err != nil {
		return 0, err
	}

	t.Optimizer.ZeroGrad()
	if err := t.Model.Backward(grad); err != nil {
		return 0, err
	}
	if err := t.Optimizer.Step(); err != nil {
		return 0, err
	}
	return loss, nil
}
