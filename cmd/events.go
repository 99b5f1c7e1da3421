package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/agenda/internal/calendar"
	"github.com/teemow/agenda/internal/logging"
)

func newEventsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List the upcoming events of the calendar",
		Long: `List the upcoming events of the configured calendar, the same listing
the busca_eventos tool hands to the agent. Handy to find event ids and to
check credentials.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &rootFlags)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			logger, closer, err := logging.Init(cfg.LoggingSettings())
			if err != nil {
				return fmt.Errorf("failed to set up logging: %w", err)
			}
			defer func() { _ = closer.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.RequestTimeout)
			defer cancel()

			client, err := newCalendarClient(ctx, cfg, appDeps{Logger: logger})
			if err != nil {
				return err
			}
			events, err := client.ListEvents(ctx)
			if err != nil {
				return err
			}

			summaries := calendar.Summaries(events)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summaries)
			}
			return printEvents(cmd.OutOrStdout(), summaries, loc)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the events as JSON")

	return cmd
}

// printEvents writes one aligned row per event. Times are shown in loc;
// all-day events show their date only.
func printEvents(w io.Writer, events []calendar.EventSummary, loc *time.Location) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "No upcoming events.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tEND\tSUMMARY\tLOCATION\tID")
	for _, e := range events {
		start, end := "-", "-"
		switch {
		case e.AllDay:
			start = e.Start.Format("2006-01-02")
			end = e.End.Format("2006-01-02")
		case !e.Start.IsZero():
			start = e.Start.In(loc).Format("2006-01-02 15:04")
			end = e.End.In(loc).Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", start, end, e.Summary, e.Location, e.ID)
	}
	return tw.Flush()
}
