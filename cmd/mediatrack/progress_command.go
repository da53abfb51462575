package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediatrack/internal/progress"
	"mediatrack/internal/services"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	progressCmd := &cobra.Command{
		Use:   "progress",
		Short: "Record and inspect progress updates",
	}
	progressCmd.AddCommand(newProgressRecordCommand(ctx))
	progressCmd.AddCommand(newProgressStatusCommand(ctx))
	return progressCmd
}

func newProgressRecordCommand(ctx *commandContext) *cobra.Command {
	var (
		update progress.Update
		lot    string
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a progress update, coalescing repeats within the window",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseLotFlag(lot)
			if err != nil {
				return err
			}
			update.Lot = parsed

			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			recorder := progress.NewRecorder(svc, logger)
			outcome, err := recorder.Record(services.WithUserID(cmd.Context(), update.UserID), update)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, outcome)
			}
			out := cmd.OutOrStdout()
			if outcome.Accepted {
				fmt.Fprintln(out, outcomeLine(out, "Accepted", fmt.Sprintf("%s at %d%%", update.MetadataID, update.Progress), true))
			} else {
				fmt.Fprintln(out, outcomeLine(out, "Duplicate", "already recorded at "+formatStamp(outcome.RecordedAt), false))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&update.UserID, "user", "u", defaultUserID, "User reporting progress")
	cmd.Flags().StringVar(&update.MetadataID, "id", "", "Metadata identifier")
	cmd.Flags().StringVar(&lot, "lot", "", "Lot of the item")
	cmd.Flags().IntVarP(&update.Progress, "progress", "p", 100, "Progress percentage")
	cmd.Flags().IntVar(&update.Season, "season", 0, "Season number")
	cmd.Flags().IntVar(&update.Episode, "episode", 0, "Episode number")
	return cmd
}

func newProgressStatusCommand(ctx *commandContext) *cobra.Command {
	var (
		userID     string
		metadataID string
		lot        string
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether an item was consumed recently",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseLotFlag(lot)
			if err != nil {
				return err
			}
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			recorder := progress.NewRecorder(svc, logger)
			consumed, err := recorder.RecentlyConsumed(cmd.Context(), userID, metadataID, parsed)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{
					"user_id":           userID,
					"metadata_id":       metadataID,
					"recently_consumed": consumed,
				})
			}
			out := cmd.OutOrStdout()
			if consumed {
				fmt.Fprintln(out, outcomeLine(out, "Recent", metadataID+" was consumed recently", true))
			} else {
				fmt.Fprintln(out, outcomeLine(out, "Idle", "no recent progress for "+metadataID, false))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", defaultUserID, "User to inspect")
	cmd.Flags().StringVar(&metadataID, "id", "", "Metadata identifier")
	cmd.Flags().StringVar(&lot, "lot", "", "Lot of the item")
	return cmd
}
