package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"barista/internal/api"
)

var statusCaser = cases.Title(language.English)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the brew queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))
	queueCmd.AddCommand(newQueueCancelCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued brews",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			rows, err := api.ListQueue(cmd.Context(), cfg, listStatuses...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "Queue is empty")
				return nil
			}

			tableRows := make([][]string, 0, len(rows))
			for _, row := range rows {
				request := row.RequestText
				if len(request) > 40 {
					request = request[:37] + "..."
				}
				detail := string(row.Status)
				if row.Error != "" {
					detail = fmt.Sprintf("%s (%s)", detail, row.Error)
				}
				tableRows = append(tableRows, []string{
					strconv.FormatInt(row.BrewID, 10),
					row.UserID,
					request,
					statusCaser.String(string(row.ServingSize)),
					detail,
					row.CreatedAt.Local().Format(time.RFC3339),
				})
			}
			rendered := renderTable(
				[]string{"ID", "User", "Request", "Serving", "Status", "Created"},
				tableRows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(out, rendered)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by status (repeatable)")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			health, err := api.QueueHealth(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nPending: %d\nProcessing: %d\nFailed: %d\nCompleted: %d\n",
				health.Total,
				health.Pending,
				health.Processing,
				health.Failed,
				health.Completed,
			)
			return nil
		},
	}
}

func newQueueCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <brew-id>",
		Short: "Cancel a brew that has not reached the machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			brewID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid brew id %q", args[0])
			}
			ok, err := api.CancelBrew(cmd.Context(), cfg, brewID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintf(out, "Brew %d already reached the machine or finished\n", brewID)
				return nil
			}
			fmt.Fprintf(out, "Cancellation requested for brew %d\n", brewID)
			return nil
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <brew-id>",
		Short: "Reset a failed brew back to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			brewID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid brew id %q", args[0])
			}
			ok, err := api.RetryBrew(cmd.Context(), cfg, brewID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintf(out, "Brew %d is not in failed state\n", brewID)
				return nil
			}
			fmt.Fprintf(out, "Brew %d reset for retry\n", brewID)
			return nil
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove completed brews without feedback",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			removed, err := api.ClearCompleted(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d completed brews\n", removed)
			return nil
		},
	}
}
