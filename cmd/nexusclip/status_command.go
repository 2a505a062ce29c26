package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"nexusclip/internal/clipboard"
	"nexusclip/internal/config"
	"nexusclip/internal/daemon"
	"nexusclip/internal/daemonrun"
	"nexusclip/internal/inbox"
	"nexusclip/internal/ledger"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and capture store status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			report := newStatusReport(out)

			report.section("Daemon")
			reportDaemon(report, cfg)

			report.section("Store")
			configMsg := ctx.configPath
			if !ctx.configExists {
				configMsg += " (defaults)"
			}
			report.add("Config", statusInfo, configMsg)
			report.add("Root", statusInfo, cfg.Paths.RootDir)
			reportInbox(report, cfg)
			reportLedger(report, cfg)

			fmt.Fprintln(out, report.String())
			return nil
		},
	}
}

func reportDaemon(report *statusReport, cfg *config.Config) {
	held, err := daemon.LockHeld(cfg)
	switch {
	case err != nil:
		report.add("Daemon", statusError, err.Error())
	case held:
		msg := "running"
		if pid, ok := daemonrun.ReadPID(cfg.PIDPath()); ok {
			msg = fmt.Sprintf("running (pid %d)", pid)
		}
		report.add("Daemon", statusOK, msg)
	default:
		report.add("Daemon", statusWarn, "not running")
	}

	backend := clipboard.ResolveBackend(cfg.Listener.Backend)
	if cfg.Listener.Backend != backend {
		backend = fmt.Sprintf("%s (requested %s)", backend, cfg.Listener.Backend)
	}
	report.add("Listener", statusInfo, backend)

	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		report.add("Notifications", statusOK, topic)
	} else {
		report.add("Notifications", statusWarn, "disabled")
	}
}

func reportInbox(report *statusReport, cfg *config.Config) {
	files, err := inbox.List(cfg.InboxDir())
	if err != nil {
		report.add("Inbox", statusError, err.Error())
		return
	}
	var total int64
	for _, f := range files {
		total += f.Size
	}
	report.add("Inbox", statusInfo, fmt.Sprintf("%d captures, %s", len(files), humanize.IBytes(uint64(total))))
	if len(files) > 0 {
		report.add("Last capture", statusInfo, fmt.Sprintf("%s (%s)", files[0].Name, humanize.Time(files[0].CapturedAt)))
	}
}

func reportLedger(report *statusReport, cfg *config.Config) {
	days, err := ledger.Days(cfg.LedgerDir())
	if err != nil {
		report.add("Ledger", statusError, err.Error())
		return
	}
	records, err := ledger.ReadAll(cfg.LedgerDir())
	if err != nil {
		report.add("Ledger", statusError, err.Error())
		return
	}
	report.add("Ledger", statusInfo, fmt.Sprintf("%d records across %d days", len(records), len(days)))
}
