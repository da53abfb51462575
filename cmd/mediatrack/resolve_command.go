package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mediatrack/internal/matching"
	"mediatrack/internal/media"
	"mediatrack/internal/resolver"
	"mediatrack/internal/services"
	"mediatrack/internal/textutil"
)

const defaultUserID = "local"

// parseLotFlag accepts an empty value as "any lot".
func parseLotFlag(value string) (media.Lot, error) {
	if strings.TrimSpace(value) == "" {
		return media.LotUnknown, nil
	}
	return media.ParseLot(value)
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var (
		title  string
		file   string
		year   int
		lot    string
		userID string
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a title or filename against TMDB through the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			title = strings.TrimSpace(title)
			if title == "" && strings.TrimSpace(file) != "" {
				title = textutil.TitleFromFilename(file)
			}
			if title == "" {
				return fmt.Errorf("one of --title or --file is required")
			}
			parsedLot, err := parseLotFlag(lot)
			if err != nil {
				return err
			}
			req := resolver.Request{UserID: userID, Title: title, Lot: parsedLot}
			if year > 0 {
				req.Year = matching.Year(year)
			}

			r, err := ctx.newResolver()
			if err != nil {
				return err
			}
			runCtx := services.WithUserID(cmd.Context(), userID)
			res, err := r.Resolve(runCtx, req)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, res)
			}
			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Query", res.Query},
				{"Match", res.Match.Title},
				{"Year", formatYear(res.Match.PublishYear)},
				{"Lot", res.Match.Lot.String()},
				{"TMDB ID", res.Match.Identifier},
				{"Score", formatScore(res.Match.Score)},
				{"Candidates", fmt.Sprint(res.Candidates)},
				{"Cached", yesNo(res.Cached)},
			}
			fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Title to resolve")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Media file whose name carries the title")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "Publish year, overriding one found in the title")
	cmd.Flags().StringVar(&lot, "lot", "", "Restrict the search to movie or show")
	cmd.Flags().StringVarP(&userID, "user", "u", defaultUserID, "User the cached search belongs to")
	return cmd
}
