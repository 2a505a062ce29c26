package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"nexusclip/internal/capture"
	"nexusclip/internal/protocol"
)

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "check [file|-]",
		Short:       "Report whether a payload would be captured",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(io.LimitReader(cmd.InOrStdin(), capture.MaxPayloadBytes*4))
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}

			out := cmd.OutOrStdout()
			payload, err := capture.NewPayload(string(data))
			if err != nil {
				fmt.Fprintf(out, "out of scope: %v\n", err)
				return fmt.Errorf("payload rejected: %w", err)
			}
			env, err := protocol.Inspect(payload.Bytes)
			if err != nil {
				fmt.Fprintf(out, "out of scope: %v\n", err)
				return fmt.Errorf("payload rejected: %w", err)
			}
			fmt.Fprintf(out, "in scope: proto_ver=%s size=%d sha256=%s\n",
				strings.TrimSpace(env.ProtoVer), payload.Len(), payload.Fingerprint)
			return nil
		},
	}
}
