package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dualword/chemicalx/pkg/config"
	"github.com/dualword/chemicalx/pkg/logger"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chemicalx",
		Short: "Drug pair synergy prediction",
		Long: `chemicalx trains and evaluates deep synergy prediction models on
labeled drug-pair datasets.

A dataset directory contains drug_set.json, context_set.json and
labeled_triples.csv (each optionally gzip-compressed with a .gz suffix),
plus an optional drug_molecules.json with molecular graphs.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.InitEnv()
			logger.Init(config.AppName(), config.LogLevel())
		},
	}

	cmd.AddCommand(NewTrainCmd())
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
