package main

import (
	"fmt"
	"os"

	"github.com/cinnamon-ledger/cinnamon/internal/classifier"
	"github.com/cinnamon-ledger/cinnamon/internal/cli"
	"github.com/cinnamon-ledger/cinnamon/internal/decision"
	"github.com/cinnamon-ledger/cinnamon/internal/model"
	"github.com/cinnamon-ledger/cinnamon/internal/training"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func autoCategorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auto-categorize",
		Short: "Suggest categories for uncategorized transactions",
		Long: `Train the classifier from the event log and suggest categories for
uncategorized transactions.

By default this is a dry run: proposals are reported but nothing is written.
Pass --write to commit proposals as categorization events, and --interactive
to review each proposal before it is committed. Quitting an interactive
session mid-batch keeps the decisions made so far.

Examples:
  cinnamon auto-categorize                          # Dry-run preview
  cinnamon auto-categorize --write                  # Commit all confident proposals
  cinnamon auto-categorize --interactive --write    # Review each before committing
  cinnamon auto-categorize --account chequing --limit 50`,
		RunE: runAutoCategorize,
	}

	cmd.Flags().Float64("confidence", decision.DefaultConfidenceThreshold, "Minimum confidence required to surface a prediction")
	cmd.Flags().BoolP("interactive", "i", false, "Review each proposal interactively")
	cmd.Flags().StringP("account", "a", "", "Only consider transactions from this account")
	cmd.Flags().IntP("limit", "l", 0, "Maximum transactions to consider (0 = all)")
	cmd.Flags().Int("min-samples", training.DefaultMinSamplesPerCategory, "Minimum surviving events per category")
	cmd.Flags().Bool("write", false, "Commit proposals as categorization events")

	_ = viper.BindPFlag("auto.confidence", cmd.Flags().Lookup("confidence"))
	_ = viper.BindPFlag("auto.interactive", cmd.Flags().Lookup("interactive"))
	_ = viper.BindPFlag("auto.account", cmd.Flags().Lookup("account"))
	_ = viper.BindPFlag("auto.limit", cmd.Flags().Lookup("limit"))
	_ = viper.BindPFlag("auto.min_samples", cmd.Flags().Lookup("min-samples"))
	_ = viper.BindPFlag("auto.write", cmd.Flags().Lookup("write"))

	return cmd
}

func runAutoCategorize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	opts := decision.Options{
		ConfidenceThreshold: viper.GetFloat64("auto.confidence"),
		Interactive:         viper.GetBool("auto.interactive"),
		AccountID:           viper.GetString("auto.account"),
		Limit:               viper.GetInt("auto.limit"),
		MinSamples:          viper.GetInt("auto.min_samples"),
		Write:               viper.GetBool("auto.write"),
	}

	db, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(db)

	cfg := classifier.DefaultConfig()
	if seed := viper.GetInt64("training.seed"); seed != 0 {
		cfg.Seed = seed
	}

	var prompter decision.Prompter
	if opts.Interactive {
		prompter = cli.NewReviewPrompter(os.Stdin, os.Stdout)
	}

	engine := decision.New(db, classifier.New(cfg), prompter)
	result, err := engine.AutoCategorize(ctx, opts)
	if err != nil {
		return err
	}

	printResult(result, opts)
	return nil
}

func printResult(result *decision.Result, opts decision.Options) {
	if len(result.Items) == 0 {
		fmt.Fprintln(os.Stdout, cli.FormatSuccess("No confident proposals; nothing to do"))
		if result.BelowThreshold > 0 {
			fmt.Fprintln(os.Stdout, cli.SubtleStyle.Render(
				fmt.Sprintf("%d transaction(s) below the %.0f%% confidence threshold need manual categorization",
					result.BelowThreshold, opts.ConfidenceThreshold*100)))
		}
		return
	}

	if result.DryRun {
		content := ""
		for i := range result.Items {
			item := &result.Items[i]
			if i > 0 {
				content += "\n"
			}
			content += fmt.Sprintf("%-40.40s  %-30s %5.0f%%",
				item.Transaction.Description,
				model.JoinLabel(item.Category, item.Subcategory),
				item.Confidence*100)
		}
		fmt.Fprintln(os.Stdout, cli.RenderBox("Proposed Categorizations (dry run)", content))
		fmt.Fprintln(os.Stdout, cli.FormatWarning("Dry run: nothing was written. Re-run with --write to commit."))
	} else {
		fmt.Fprintln(os.Stdout, cli.FormatSuccess(fmt.Sprintf("Committed %d categorization event(s)", result.Committed)))
	}

	summary := fmt.Sprintf("approved=%d rejected=%d modified=%d below-threshold=%d",
		result.Approved, result.Rejected, result.Modified, result.BelowThreshold)
	if result.QuitEarly {
		summary += " (session ended early)"
	}
	fmt.Fprintln(os.Stdout, cli.SubtleStyle.Render(summary))
}
