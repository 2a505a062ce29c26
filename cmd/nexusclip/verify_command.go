package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"nexusclip/internal/contenthash"
	"nexusclip/internal/inbox"
	"nexusclip/internal/ledger"
)

type verifyProblem struct {
	kind   string
	file   string
	detail string
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var dayFlag string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Cross-check inbox files against ledger hashes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			day, filtered, err := parseDayFlag(dayFlag)
			if err != nil {
				return err
			}

			all, err := ledger.ReadAll(cfg.LedgerDir())
			if err != nil {
				return fmt.Errorf("read ledger: %w", err)
			}
			known := make(map[string]struct{}, len(all))
			for _, rec := range all {
				known[rec.File] = struct{}{}
			}

			records := all
			if filtered {
				records, err = ledger.Read(cfg.LedgerDir(), day)
				if err != nil {
					return fmt.Errorf("read ledger: %w", err)
				}
			}

			var problems []verifyProblem
			checked := 0
			for _, rec := range records {
				if rec.Kind != ledger.KindCapture {
					continue
				}
				checked++
				path := filepath.Join(cfg.InboxDir(), rec.File)
				sum, _, err := contenthash.FingerprintFile(path)
				switch {
				case errors.Is(err, fs.ErrNotExist):
					problems = append(problems, verifyProblem{kind: "missing", file: rec.File})
				case err != nil:
					problems = append(problems, verifyProblem{kind: "unreadable", file: rec.File, detail: err.Error()})
				case sum != rec.SHA256:
					problems = append(problems, verifyProblem{kind: "mismatch", file: rec.File, detail: "ledger " + shortHash(rec.SHA256) + ", file " + shortHash(sum)})
				}
			}

			files, err := inbox.List(cfg.InboxDir())
			if err != nil {
				return fmt.Errorf("list inbox: %w", err)
			}
			for _, f := range files {
				if filtered && !sameDay(f.CapturedAt, day) {
					continue
				}
				if _, ok := known[f.Name]; !ok {
					problems = append(problems, verifyProblem{kind: "orphan", file: f.Name, detail: "no ledger record"})
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Checked %d ledger records against %s\n", checked, cfg.InboxDir())
			if len(problems) == 0 {
				fmt.Fprintln(out, "All captures verified")
				return nil
			}
			rows := make([][]string, 0, len(problems))
			for _, p := range problems {
				detail := p.detail
				if detail == "" {
					detail = "-"
				}
				rows = append(rows, []string{p.kind, p.file, detail})
			}
			fmt.Fprintln(out, renderTable([]columnSpec{
				{header: "Problem", align: text.AlignLeft},
				{header: "File", align: text.AlignLeft},
				{header: "Detail", align: text.AlignLeft, maxWidth: 80},
			}, rows))
			return fmt.Errorf("verify found %d problem(s)", len(problems))
		},
	}

	cmd.Flags().StringVar(&dayFlag, "day", "", "Only verify one UTC day (YYYYMMDD)")
	return cmd
}

func shortHash(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	if sum == "" {
		return "-"
	}
	return sum
}
