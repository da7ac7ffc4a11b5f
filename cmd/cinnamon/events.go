package main

import (
	"fmt"
	"os"

	"github.com/cinnamon-ledger/cinnamon/internal/cli"
	"github.com/cinnamon-ledger/cinnamon/internal/model"
	"github.com/cinnamon-ledger/cinnamon/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the categorization event log",
	}

	cmd.AddCommand(eventsListCmd())
	cmd.AddCommand(eventsStatsCmd())

	return cmd
}

func eventsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categorization events, oldest first",
		RunE:  runEventsList,
	}

	cmd.Flags().StringP("account", "a", "", "Only show events for this account")
	cmd.Flags().StringP("source", "s", "", "Only show events from this source (user, rule, llm)")
	cmd.Flags().IntP("limit", "l", 50, "Maximum events to show (0 = all)")

	_ = viper.BindPFlag("events.account", cmd.Flags().Lookup("account"))
	_ = viper.BindPFlag("events.source", cmd.Flags().Lookup("source"))
	_ = viper.BindPFlag("events.limit", cmd.Flags().Lookup("limit"))

	return cmd
}

func runEventsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	source := model.Source(viper.GetString("events.source"))
	if source != "" && !source.Valid() {
		return fmt.Errorf("invalid source %q (expected user, rule or llm)", source)
	}

	db, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage(db)

	events, err := db.QueryEvents(ctx, service.EventFilter{
		AccountID: viper.GetString("events.account"),
		Source:    source,
		Limit:     viper.GetInt("events.limit"),
	})
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Fprintln(os.Stdout, cli.SubtleStyle.Render("No events recorded"))
		return nil
	}

	for i := range events {
		e := &events[i]
		line := fmt.Sprintf("%s  %-5s  %-40.40s → %s",
			e.Timestamp.Format("2006-01-02 15:04"),
			e.Source,
			e.Description,
			e.Label())
		if e.PreviousCategory != "" {
			line += cli.SubtleStyle.Render(fmt.Sprintf(" (was %s)", e.PreviousCategory))
		}
		fmt.Fprintln(os.Stdout, line)
	}

	return nil
}

func eventsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show event log statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			total, err := db.EventCount(ctx)
			if err != nil {
				return err
			}

			bySource, err := db.CountEventsBySource(ctx)
			if err != nil {
				return err
			}

			content := fmt.Sprintf("Total events: %d\n", total)
			for _, source := range []model.Source{model.SourceUser, model.SourceRule, model.SourceLLM} {
				content += fmt.Sprintf("  %-5s %d\n", source, bySource[source])
			}
			fmt.Fprintln(os.Stdout, cli.RenderBox("Event Log", content))
			return nil
		},
	}
}
