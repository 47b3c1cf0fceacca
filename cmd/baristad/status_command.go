package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"barista/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and queue health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Data dir", statusInfo, cfg.Paths.DataDir, colorize))
			fmt.Fprintln(out, renderStatusLine("Model", statusInfo, cfg.LLM.Model, colorize))
			machineKind := statusOK
			if strings.TrimSpace(cfg.Machine.APIToken) == "" {
				machineKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Machine", machineKind, cfg.Machine.BaseURL, colorize))

			health, err := api.QueueHealth(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Queue", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Total", statusInfo, fmt.Sprintf("%d", health.Total), colorize))
			fmt.Fprintln(out, renderStatusLine("Pending", statusInfo, fmt.Sprintf("%d", health.Pending), colorize))
			processingKind := statusOK
			if health.Processing > 0 {
				processingKind = statusInfo
			}
			fmt.Fprintln(out, renderStatusLine("Processing", processingKind, fmt.Sprintf("%d", health.Processing), colorize))
			failedKind := statusOK
			if health.Failed > 0 {
				failedKind = statusError
			}
			fmt.Fprintln(out, renderStatusLine("Failed", failedKind, fmt.Sprintf("%d", health.Failed), colorize))
			fmt.Fprintln(out, renderStatusLine("Completed", statusOK, fmt.Sprintf("%d", health.Completed), colorize))
			return nil
		},
	}
}
