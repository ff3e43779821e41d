package commands

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dualword/chemicalx/pkg/data"
	"github.com/dualword/chemicalx/pkg/models"
	"github.com/dualword/chemicalx/pkg/training"
)

var (
	trainDataDir   string
	trainModelName string
	trainEpochs    int
	trainBatchSize int
	trainLR        float64
	trainOptimizer string
	trainMomentum  float64
	trainFraction  float64
	trainSeed      int64
)

// NewTrainCmd creates the train command
func NewTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a synergy model and evaluate it on a holdout split",
		Long: `Train a synergy prediction model on a local dataset directory.

The labeled triples are shuffled with the given seed, split into a train
and a holdout portion, and the trained model is evaluated on the holdout.

Examples:
  chemicalx train --data ./drugcombdb
  chemicalx train --data ./drugcombdb --model deepsynergy --epochs 50
  chemicalx train --data ./drugcombdb --optimizer sgd --lr 0.01`,
		RunE: runTrain,
	}

	cmd.Flags().StringVar(&trainDataDir, "data", "", "Dataset directory (required)")
	cmd.Flags().StringVar(&trainModelName, "model", "matchmaker", "Model to train: matchmaker or deepsynergy")
	cmd.Flags().IntVar(&trainEpochs, "epochs", 20, "Training epochs")
	cmd.Flags().IntVar(&trainBatchSize, "batch-size", 512, "Mini-batch size")
	cmd.Flags().Float64Var(&trainLR, "lr", 0.001, "Learning rate")
	cmd.Flags().StringVar(&trainOptimizer, "optimizer", "adam", "Optimizer: adam or sgd")
	cmd.Flags().Float64Var(&trainMomentum, "momentum", 0.9, "SGD momentum")
	cmd.Flags().Float64Var(&trainFraction, "train-frac", 0.8, "Fraction of triples used for training")
	cmd.Flags().Int64Var(&trainSeed, "seed", 42, "Shuffle seed")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runTrain(cmd *cobra.Command, args []string) error {
	loader, err := data.NewDirLoader(trainDataDir)
	if err != nil {
		return err
	}
	contextSet, drugSet, triples, err := loadDataset(loader)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(trainSeed))
	shuffled := triples.Clone()
	shuffled.Shuffle(rng)
	trainTriples, testTriples, err := shuffled.Split(trainFraction)
	if err != nil {
		return fmt.Errorf("splitting triples: %w", err)
	}

	model, err := buildModel(trainModelName, contextSet.Dim(), drugSet.Dim())
	if err != nil {
		return err
	}
	optimizer, err := buildOptimizer(model)
	if err != nil {
		return err
	}

	generator, err := data.NewBatchGenerator(trainBatchSize, true, true, false, true)
	if err != nil {
		return err
	}
	trainer, err := training.NewTrainer(model, optimizer, generator, trainEpochs)
	if err != nil {
		return err
	}
	trainer.Shuffle = true
	trainer.Rng = rng

	log.Info().
		Str("model", trainModelName).
		Int("trainRows", trainTriples.Len()).
		Int("testRows", testTriples.Len()).
		Int("contextChannels", contextSet.Dim()).
		Int("drugChannels", drugSet.Dim()).
		Msg("Starting training")

	losses, err := trainer.Fit(contextSet, drugSet, trainTriples)
	if err != nil {
		return fmt.Errorf("training: %w", err)
	}

	result, err := training.EvaluateModel(model, generator, contextSet, drugSet, testTriples)
	if err != nil {
		return fmt.Errorf("evaluating: %w", err)
	}

	log.Info().
		Float64("finalTrainLoss", losses[len(losses)-1]).
		Float64("testLoss", result.Loss).
		Float64("auroc", result.AUROC).
		Float64("accuracy", result.Accuracy).
		Int("rows", result.Rows).
		Msg("Holdout evaluation")

	fmt.Printf("model=%s epochs=%d train_loss=%.4f test_loss=%.4f auroc=%.4f accuracy=%.4f\n",
		trainModelName, trainEpochs, losses[len(losses)-1], result.Loss, result.AUROC, result.Accuracy)
	return nil
}

func loadDataset(loader data.DatasetLoader) (*data.FeatureSet, *data.DrugFeatureSet, *data.LabeledTriples, error) {
	contextSet, err := loader.GetContextFeatures()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading context features: %w", err)
	}
	drugSet, err := loader.GetDrugFeatures()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading drug features: %w", err)
	}
	triples, err := loader.GetLabeledTriples()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading labeled triples: %w", err)
	}
	return contextSet, drugSet, triples, nil
}

func buildModel(name string, contextChannels, drugChannels int) (models.Model, error) {
	switch name {
	case "matchmaker":
		m, err := models.NewMatchMaker(models.DefaultMatchMakerConfig(contextChannels, drugChannels))
		if err != nil {
			return nil, err
		}
		return m, nil
	case "deepsynergy":
		m, err := models.NewDeepSynergy(models.DefaultDeepSynergyConfig(contextChannels, drugChannels))
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown model %q (want matchmaker or deepsynergy)", name)
	}
}

func buildOptimizer(model models.Model) (training.Optimizer, error) {
	switch trainOptimizer {
	case "adam":
		opt, err := training.NewAdam(model.Parameters(), trainLR)
		if err != nil {
			return nil, err
		}
		return opt, nil
	case "sgd":
		opt, err := training.NewSGD(model.Parameters(), trainLR, trainMomentum)
		if err != nil {
			return nil, err
		}
		return opt, nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q (want adam or sgd)", trainOptimizer)
	}
}
