package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/agenda/internal/timeparse"
)

func newResolveCmd() *cobra.Command {
	var (
		reference string
		end       string
	)

	cmd := &cobra.Command{
		Use:   "resolve <texto>",
		Short: "Resolve a pt-BR date expression",
		Long: `Resolve a Brazilian Portuguese date/time expression the way the calendar
tools do and print the resulting interval. Useful to check what
"semana que vem à tarde" means today.

Examples:
  agenda resolve "amanhã às 9h"
  agenda resolve "sexta de manhã" --reference 2025-08-04T10:00:00-03:00
  agenda resolve "hoje às 14h" --end "às 15h30" --zone America/Manaus`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &rootFlags)
			if err != nil {
				return err
			}
			return runResolve(cmd.OutOrStdout(), cfg.Calendar.TimeZone, strings.Join(args, " "), reference, end)
		},
	}

	cmd.Flags().StringVar(&reference, "reference", "", "Reference instant in RFC 3339 (default: now)")
	cmd.Flags().StringVar(&end, "end", "", "End expression, resolved relative to the start")

	return cmd
}

func runResolve(w io.Writer, zone, text, reference, endText string) error {
	resolver, err := timeparse.NewResolver(zone)
	if err != nil {
		return err
	}

	var opts timeparse.Options
	if reference != "" {
		ref, err := time.Parse(time.RFC3339, reference)
		if err != nil {
			return fmt.Errorf("invalid reference %q: must be RFC 3339", reference)
		}
		opts.Reference = ref
	}

	interval, err := resolver.Resolve(text, opts)
	if err != nil {
		return err
	}
	if endText != "" {
		end, err := resolver.ResolveEnd(endText, interval.Start, opts)
		if err != nil {
			return err
		}
		interval.End = end
	}

	fmt.Fprintf(w, "start: %s\n", interval.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "end:   %s\n", interval.End.Format(time.RFC3339))
	return nil
}
