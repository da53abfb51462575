package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mediatrack/internal/appcache"
	"mediatrack/internal/cachekey"
	"mediatrack/internal/cachesvc"
	"mediatrack/internal/media"
)

const defaultPageSize = 20

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build and cache details",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			_, details, err := cachesvc.GetOrSetWith(cmd.Context(), svc, appcache.CoreDetails.Key(cachekey.Global{}),
				func(context.Context) (appcache.CoreDetailsValue, error) {
					lots := media.Lots()
					names := make([]string, 0, len(lots))
					for _, lot := range lots {
						names = append(names, lot.String())
					}
					return appcache.CoreDetailsValue{
						Version:        svc.Version(),
						PageSize:       defaultPageSize,
						TMDBEnabled:    cfg.RequireTMDB() == nil,
						ProgressWindow: cfg.ProgressUpdateWindow().String(),
						SupportedLots:  names,
						ComputedAt:     svc.Now().UTC(),
					}, nil
				})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{"build": buildVersion, "details": details})
			}
			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Build", buildVersion},
				{"Cache version", details.Version},
				{"TMDB enabled", yesNo(details.TMDBEnabled)},
				{"Progress window", details.ProgressWindow},
				{"Page size", fmt.Sprint(details.PageSize)},
				{"Computed", details.ComputedAt.Local().Format(time.RFC3339)},
			}
			fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}
