package training

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/dualword/chemicalx/pkg/data"
	"github.com/dualword/chemicalx/pkg/models"
)

// EvalResult summarizes model performance on a labeled triples table
type EvalResult struct {
	Loss     float64
	AUROC    float64
	Accuracy float64
	Rows     int
}

// EvaluateModel scores every triple with the model in evaluation mode and
// computes mean BCE loss, AUROC and accuracy at a 0.5 threshold. The model
// must produce a single score column; multi-column predictions are
// rejected.
func EvaluateModel(model models.Model, generator *data.BatchGenerator, contextSet *data.FeatureSet, drugSet *data.DrugFeatureSet, triples *data.LabeledTriples) (*EvalResult, error) {
	model.SetTraining(false)
	generator.SetData(contextSet, drugSet, triples)

	var scores, labels []float64
	totalLoss := 0.0

	it := generator.Iter()
	for {
		batch, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if batch.Labels == nil {
			return nil, fmt.Errorf("evaluation requires the labels category to be enabled")
		}

		inputs, err := model.Unpack(batch)
		if err != nil {
			return nil, err
		}
		predictions, err := model.Forward(inputs...)
		if err != nil {
			return nil, err
		}
		if predictions.Cols != 1 {
			return nil, fmt.Errorf("evaluation expects single-column predictions, got %d columns", predictions.Cols)
		}
		loss, _, err := BCELoss(predictions, batch.Labels)
		if err != nil {
			return nil, err
		}
		totalLoss += loss * float64(batch.Size())

		for i := 0; i < predictions.Rows; i++ {
			scores = append(scores, predictions.Data[i][0])
			labels = append(labels, batch.Labels.Data[i][0])
		}
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("generator yielded no rows to evaluate")
	}

	auroc, err := AUROC(scores, labels)
	if err != nil {
		return nil, err
	}

	correct := 0
	for i, score := range scores {
		predicted := 0.0
		if score >= 0.5 {
			predicted = 1.0
		}
		actual := 0.0
		if labels[i] > 0.5 {
			actual = 1.0
		}
		if predicted == actual {
			correct++
		}
	}

	return &EvalResult{
		Loss:     totalLoss / float64(len(scores)),
		AUROC:    auroc,
		Accuracy: float64(correct) / float64(len(scores)),
		Rows:     len(scores),
	}, nil
}

// AUROC computes the area under the ROC curve with the rank statistic,
// averaging ranks over tied scores. Labels above 0.5 count as positive.
func AUROC(scores, labels []float64) (float64, error) {
	if len(scores) != len(labels) {
		return 0, fmt.Errorf("auroc got %d scores and %d labels", len(scores), len(labels))
	}

	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return scores[idx[a]] < scores[idx[b]]
	})

	ranks := make([]float64, len(scores))
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && scores[idx[j]] == scores[idx[i]] {
			j++
		}
		// Average rank across the tie group, 1-based
		mean := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			ranks[idx[k]] = mean
		}
		i = j
	}

	positives := 0
	rankSum := 0.0
	for i, label := range labels {
		if label > 0.5 {
			positives++
			rankSum += ranks[i]
		}
	}
	negatives := len(labels) - positives
	if positives == 0 || negatives == 0 {
		return 0, fmt.Errorf("auroc needs both classes, got %d positives of %d", positives, len(labels))
	}

	p := float64(positives)
	n := float64(negatives)
	return (rankSum - p*(p+1)/2.0) / (p * n), nil
}

// Summary holds the mean and standard deviation of a metric across runs
type Summary struct {
	Mean   float64
	StdDev float64
}

// Summarize aggregates a metric collected over several runs or folds
func Summarize(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, fmt.Errorf("cannot summarize zero values")
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return Summary{}, err
	}
	std := 0.0
	if len(values) > 1 {
		std, err = stats.StandardDeviationSample(values)
		if err != nil {
			return Summary{}, err
		}
	}
	return Summary{Mean: mean, StdDev: std}, nil
}
