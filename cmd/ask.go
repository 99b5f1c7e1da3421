package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/agenda/internal/failure"
	"github.com/teemow/agenda/internal/logging"
)

func newAskCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ask <pergunta>",
		Short: "Ask the calendar agent a single question",
		Long: `Ask the calendar agent one question and print its answer. The agent is
configured exactly as for serve, so this is the quickest way to try a
prompt, a model or a set of credentials.

Example:
  agenda ask "Marca reunião com o João amanhã às 9h"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &rootFlags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Server.RequestTimeout = timeout
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger, closer, err := logging.Init(cfg.LoggingSettings())
			if err != nil {
				return fmt.Errorf("failed to set up logging: %w", err)
			}
			defer func() { _ = closer.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.RequestTimeout)
			defer cancel()

			a, err := newApp(ctx, cfg, appDeps{Logger: logger})
			if err != nil {
				return err
			}

			answer, err := a.agent.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("%s: %s", failure.KindOf(err), failure.Message(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "Deadline of the question. Can also use REQUEST_TIMEOUT env var.")

	return cmd
}
