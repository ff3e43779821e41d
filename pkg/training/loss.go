// Package training provides the loss, optimizers, training loop and
// evaluation metrics for the synergy models.
package training

import (
	"fmt"
	"math"

	"github.com/dualword/chemicalx/pkg/tensor"
)

// probEps clamps predicted probabilities away from 0 and 1 so the log
// terms stay finite.
const probEps = 1e-7

// BCELoss computes mean binary cross-entropy between predictions in (0,1)
// and targets in [0,1], returning the loss and its gradient with respect
// to the predictions.
func BCELoss(predictions, targets *tensor.Matrix) (float64, *tensor.Matrix, error) {
	if predictions.Rows != targets.Rows || predictions.Cols != targets.Cols {
		return 0, nil, fmt.Errorf("bce got %dx%d predictions and %dx%d targets: %w",
			predictions.Rows, predictions.Cols, targets.Rows, targets.Cols, tensor.ErrDimensionMismatch)
	}

	n := float64(predictions.Rows * predictions.Cols)
	loss := 0.0
	grad := tensor.MustNewMatrix(predictions.Rows, predictions.Cols)
	for i := 0; i < predictions.Rows; i++ {
		for j := 0; j < predictions.Cols; j++ {
			p := clamp(predictions.Data[i][j])
			y := targets.Data[i][j]
			loss -= y*math.Log(p) + (1-y)*math.Log(1-p)
			grad.Data[i][j] = (p - y) / (p * (1 - p)) / n
		}
	}
	return loss / n, grad, nil
}

func clamp(p float64) float64 {
	if p < probEps {
		return probEps
	}
	if p > 1-probEps {
		return 1 - probEps
	}
	return p
}
