package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"nexusclip/internal/capture"
	"nexusclip/internal/daemon"
	"nexusclip/internal/daemonrun"
	"nexusclip/internal/logging"
)

func newCaptureNowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "capture-now",
		Short: "Read the clipboard once and capture it if it carries the protocol marker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: []string{"stderr"},
			})
			if err != nil {
				return fmt.Errorf("init logging: %w", err)
			}

			outcome, err := daemonrun.CaptureOnce(cmd.Context(), cfg, logger)
			if errors.Is(err, daemon.ErrInstanceRunning) {
				return fmt.Errorf("%w; the running daemon captures clipboard changes itself", err)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch outcome {
			case capture.OutcomeCaptured:
				fmt.Fprintln(out, "Captured clipboard payload")
			case capture.OutcomeWriteFailed:
				return errors.New("capture file could not be written; see log output")
			default:
				fmt.Fprintf(out, "Nothing captured (%s)\n", outcome)
			}
			return nil
		},
	}
}
