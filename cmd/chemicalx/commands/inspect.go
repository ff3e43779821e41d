package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dualword/chemicalx/pkg/data"
	"github.com/dualword/chemicalx/pkg/training"
)

var inspectDataDir string

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the shape and label balance of a dataset directory",
		RunE:  runInspect,
	}

	cmd.Flags().StringVar(&inspectDataDir, "data", "", "Dataset directory (required)")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	loader, err := data.NewDirLoader(inspectDataDir)
	if err != nil {
		return err
	}
	contextSet, drugSet, triples, err := loadDataset(loader)
	if err != nil {
		return err
	}

	labels := make([]float64, triples.Len())
	positives := 0
	molecules := 0
	for i := 0; i < triples.Len(); i++ {
		labels[i] = triples.Row(i).Label
		if labels[i] > 0.5 {
			positives++
		}
	}
	for _, id := range drugSet.IDs() {
		entry, err := drugSet.Get(id)
		if err != nil {
			return err
		}
		if entry.Molecule != nil {
			molecules++
		}
	}

	labelSummary, err := training.Summarize(labels)
	if err != nil {
		return err
	}

	fmt.Printf("drugs:            %d (dim %d, %d with molecules)\n", drugSet.Len(), drugSet.Dim(), molecules)
	fmt.Printf("contexts:         %d (dim %d)\n", contextSet.Len(), contextSet.Dim())
	fmt.Printf("labeled triples:  %d (%d positive, %.1f%%)\n",
		triples.Len(), positives, 100*float64(positives)/float64(triples.Len()))
	fmt.Printf("label mean/std:   %.4f / %.4f\n", labelSummary.Mean, labelSummary.StdDev)
	return nil
}
