package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"nexusclip/internal/inbox"
	"nexusclip/internal/ledger"
)

type captureView struct {
	CapturedAt string `json:"captured_at"`
	File       string `json:"file"`
	Size       int64  `json:"size"`
	SHA256     string `json:"sha256,omitempty"`
}

func newCapturesCommand(ctx *commandContext) *cobra.Command {
	var dayFlag string
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "captures",
		Short: "List captured payloads, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			day, filtered, err := parseDayFlag(dayFlag)
			if err != nil {
				return err
			}

			files, err := inbox.List(cfg.InboxDir())
			if err != nil {
				return fmt.Errorf("list inbox: %w", err)
			}
			records, err := ledger.ReadAll(cfg.LedgerDir())
			if err != nil {
				return fmt.Errorf("read ledger: %w", err)
			}
			hashes := make(map[string]string, len(records))
			for _, rec := range records {
				hashes[rec.File] = rec.SHA256
			}

			var selected []inbox.File
			for _, f := range files {
				if filtered && !sameDay(f.CapturedAt, day) {
					continue
				}
				if limit > 0 && len(selected) >= limit {
					break
				}
				selected = append(selected, f)
			}

			if jsonOut {
				views := make([]captureView, 0, len(selected))
				for _, f := range selected {
					views = append(views, captureView{
						CapturedAt: ledger.FormatTimestamp(f.CapturedAt),
						File:       f.Name,
						Size:       f.Size,
						SHA256:     hashes[f.Name],
					})
				}
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(selected) == 0 {
				fmt.Fprintln(out, "No captures")
				return nil
			}

			rows := make([][]string, 0, len(selected))
			for _, f := range selected {
				rows = append(rows, []string{
					f.CapturedAt.Local().Format("2006-01-02 15:04:05"),
					f.Name,
					humanize.IBytes(uint64(f.Size)),
					shortHash(hashes[f.Name]),
				})
			}
			fmt.Fprintln(out, renderTable([]columnSpec{
				{header: "Captured", align: text.AlignLeft},
				{header: "File", align: text.AlignLeft, maxWidth: 96},
				{header: "Size", align: text.AlignRight},
				{header: "SHA256", align: text.AlignLeft},
			}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&dayFlag, "day", "", "Only show captures from this UTC day (YYYYMMDD)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of captures to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func parseDayFlag(value string) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, nil
	}
	day, ok := ledger.ParseDay(value)
	if !ok {
		return time.Time{}, false, fmt.Errorf("invalid --day %q (want YYYYMMDD)", value)
	}
	return day, true, nil
}

func sameDay(t, day time.Time) bool {
	y1, m1, d1 := t.UTC().Date()
	y2, m2, d2 := day.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
