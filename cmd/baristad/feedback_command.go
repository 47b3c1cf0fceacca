package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"barista/internal/api"
)

func newFeedbackCommand(ctx *commandContext) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "feedback <brew-id> <rating>",
		Short: "Rate a finished brew",
		Long: "Record a 1-5 rating against a past brew. The rating immediately feeds " +
			"the user's taste profile, so the next brew reflects it.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			brewID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid brew id %q", args[0])
			}
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid rating %q", args[1])
			}

			ack, err := api.SubmitFeedback(cmd.Context(), api.SubmitFeedbackRequest{
				Config: cfg,
				BrewID: brewID,
				Rating: rating,
				Notes:  notes,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Recorded rating %d for brew %d\n", ack.Rating, ack.BrewID)
			if ack.ProfileSamples > 0 {
				fmt.Fprintf(out, "Profile rebuilt from %d rated brews (%d taste hints)\n", ack.ProfileSamples, ack.ProfileHints)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&notes, "notes", "n", "", "Free-text tasting notes")
	return cmd
}
