package main

import (
	"fmt"
	"os"

	"github.com/cinnamon-ledger/cinnamon/internal/classifier"
	"github.com/cinnamon-ledger/cinnamon/internal/cli"
	"github.com/cinnamon-ledger/cinnamon/internal/common"
	"github.com/cinnamon-ledger/cinnamon/internal/training"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the category classifier from the event log",
		Long: `Train the category classifier by replaying the categorization event log.

Only the most recent event per transaction counts (re-categorizations
supersede earlier decisions), and a category needs enough surviving samples
to be eligible. Training always refits from scratch; there is no incremental
update.

Examples:
  cinnamon train                     # Train with defaults
  cinnamon train --min-samples 10    # Require more samples per category
  cinnamon train --top-features 30   # Show more of the learned features`,
		RunE: runTrain,
	}

	cmd.Flags().Int("min-samples", training.DefaultMinSamplesPerCategory, "Minimum surviving events per category")
	cmd.Flags().Int("top-features", 15, "Number of feature importances to display")

	_ = viper.BindPFlag("training.min_samples", cmd.Flags().Lookup("min-samples"))
	_ = viper.BindPFlag("training.top_features", cmd.Flags().Lookup("top-features"))

	return cmd
}

func runTrain(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	db, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(db)

	builder := training.NewBuilder(db, viper.GetInt("training.min_samples"))
	dataset, err := builder.Build(ctx)
	if err != nil {
		if common.IsRecoverable(err) {
			fmt.Fprintln(os.Stdout, cli.FormatWarning(err.Error()))
		}
		return err
	}

	cfg := classifier.DefaultConfig()
	if seed := viper.GetInt64("training.seed"); seed != 0 {
		cfg.Seed = seed
	}

	model := classifier.New(cfg)
	metrics, err := model.Train(ctx, dataset)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, cli.RenderBox("Training Results", formatMetrics(metrics)))

	topN := viper.GetInt("training.top_features")
	importances, err := model.FeatureImportances(topN)
	if err != nil {
		return err
	}

	if len(importances) > 0 {
		content := ""
		for i, imp := range importances {
			if i > 0 {
				content += "\n"
			}
			content += fmt.Sprintf("%-30s %.4f", imp.Feature, imp.Score)
		}
		fmt.Fprintln(os.Stdout, cli.RenderBox(fmt.Sprintf("Top %d Features", len(importances)), content))
	}

	return nil
}

func formatMetrics(m classifier.Metrics) string {
	content := fmt.Sprintf("Samples:        %d\n", m.TotalSamples)
	content += fmt.Sprintf("Categories:     %d\n", m.NumCategories)
	content += fmt.Sprintf("Train/Test:     %d/%d\n", m.TrainSize, m.TestSize)
	content += fmt.Sprintf("Train accuracy: %.1f%%\n", m.TrainAccuracy*100)
	content += fmt.Sprintf("Test accuracy:  %.1f%%\n\n", m.TestAccuracy*100)
	content += "Eligible categories:"
	for _, category := range m.Categories {
		content += "\n  " + category
	}
	return content
}
