package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"barista/internal/api"
	"barista/internal/params"
	"barista/internal/queue"
)

func newBrewCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var serving string
	var wait bool
	var waitTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "brew [request text...]",
		Short: "Queue a brew request",
		Long: "Queue a free-text brew request for the pipeline. The daemon interprets " +
			"the text, personalizes the recipe from past feedback, and dispatches it " +
			"to the machine.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			receipt, err := api.SubmitBrew(cmd.Context(), api.SubmitBrewRequest{
				Config:      cfg,
				UserID:      userID,
				RequestText: strings.TrimSpace(strings.Join(args, " ")),
				ServingSize: serving,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Queued brew %d for %s (%s serving)\n", receipt.BrewID, receipt.UserID, receipt.ServingSize)

			if !wait {
				fmt.Fprintf(out, "Track it with: baristad queue list\n")
				return nil
			}

			waitCtx := cmd.Context()
			if waitTimeout > 0 {
				var cancel context.CancelFunc
				waitCtx, cancel = context.WithTimeout(waitCtx, waitTimeout)
				defer cancel()
			}
			outcome, err := api.WaitForOutcome(waitCtx, cfg, receipt.BrewID, time.Second)
			if err != nil {
				if outcome != nil {
					fmt.Fprintf(out, "Brew %d still %s\n", outcome.BrewID, outcome.Status)
				}
				return err
			}
			printOutcome(out, outcome)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User the brew belongs to (required)")
	cmd.Flags().StringVarP(&serving, "serving", "s", "medium", "Serving size: small, medium, or large")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the brew to finish")
	cmd.Flags().DurationVar(&waitTimeout, "timeout", 5*time.Minute, "How long --wait polls before giving up")
	if err := cmd.MarkFlagRequired("user"); err != nil {
		panic(err)
	}
	return cmd
}

func printOutcome(out io.Writer, outcome *api.BrewOutcome) {
	switch outcome.Status {
	case queue.StatusCompleted:
		fmt.Fprintf(out, "Brew %d dispatched to the machine\n", outcome.BrewID)
	case queue.StatusFailed:
		fmt.Fprintf(out, "Brew %d failed: %s\n", outcome.BrewID, outcome.ErrorMessage)
		return
	default:
		fmt.Fprintf(out, "Brew %d is %s\n", outcome.BrewID, outcome.Status)
		return
	}

	values, err := params.DecodeValues(outcome.FinalJSON)
	if err != nil {
		return
	}
	fmt.Fprintln(out, "Final recipe:")
	for _, field := range params.Schema() {
		if v, ok := values[field.Name]; ok {
			fmt.Fprintf(out, "  %-20s %g %s\n", field.Name, v, field.Unit)
		}
	}
}
