package main

import (
	"fmt"
	"os"
	"regexp"

	"github.com/cinnamon-ledger/cinnamon/internal/cli"
	"github.com/cinnamon-ledger/cinnamon/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func categorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Manually categorize transactions matching a pattern",
		Long: `Categorize uncategorized transactions whose description matches a regular
expression, emitting user-sourced categorization events. This is the usual way
to bootstrap a training set before auto-categorize has enough history.

Examples:
  cinnamon categorize --match 'SPOTIFY' --category 'Entertainment:Music'
  cinnamon categorize --match '^LOBLAWS' --category Groceries --write`,
		RunE: runCategorize,
	}

	cmd.Flags().StringP("match", "m", "", "Regular expression matched against descriptions (required)")
	cmd.Flags().StringP("category", "c", "", "Category to assign, as Category[:Subcategory] (required)")
	cmd.Flags().StringP("account", "a", "", "Only consider transactions from this account")
	cmd.Flags().Bool("write", false, "Commit matching categorizations as events")
	_ = cmd.MarkFlagRequired("match")
	_ = cmd.MarkFlagRequired("category")

	_ = viper.BindPFlag("categorize.match", cmd.Flags().Lookup("match"))
	_ = viper.BindPFlag("categorize.category", cmd.Flags().Lookup("category"))
	_ = viper.BindPFlag("categorize.account", cmd.Flags().Lookup("account"))
	_ = viper.BindPFlag("categorize.write", cmd.Flags().Lookup("write"))

	return cmd
}

func runCategorize(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	pattern, err := regexp.Compile(viper.GetString("categorize.match"))
	if err != nil {
		return fmt.Errorf("invalid match pattern: %w", err)
	}
	category, subcategory := model.SplitLabel(viper.GetString("categorize.category"))
	write := viper.GetBool("categorize.write")

	db, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(db)

	transactions, err := db.GetTransactionsToCategorize(ctx, viper.GetString("categorize.account"), 0)
	if err != nil {
		return err
	}

	var events []model.CategorizationEvent
	for i := range transactions {
		txn := &transactions[i]
		if !pattern.MatchString(txn.Description) {
			continue
		}
		events = append(events, model.CategorizationEvent{
			TransactionID:    txn.ID,
			Description:      txn.Description,
			Amount:           txn.Amount,
			AccountID:        txn.AccountID,
			Category:         category,
			Subcategory:      subcategory,
			PreviousCategory: txn.Category,
			Source:           model.SourceUser,
		})
	}

	if len(events) == 0 {
		fmt.Fprintln(os.Stdout, cli.FormatWarning("No uncategorized transactions matched"))
		return nil
	}

	if !write {
		for i := range events {
			fmt.Fprintf(os.Stdout, "%-40.40s → %s\n", events[i].Description, model.JoinLabel(category, subcategory))
		}
		fmt.Fprintln(os.Stdout, cli.FormatWarning(
			fmt.Sprintf("Dry run: %d transaction(s) would be categorized. Re-run with --write to commit.", len(events))))
		return nil
	}

	if err := db.AppendEvents(ctx, events); err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, cli.FormatSuccess(
		fmt.Sprintf("Categorized %d transaction(s) as %s", len(events), model.JoinLabel(category, subcategory))))
	return nil
}
