package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mediatrack/internal/cachekey"
	"mediatrack/internal/cachestore"
	"mediatrack/internal/cachesvc"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the metadata cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheExpireCommand(ctx))
	cacheCmd.AddCommand(newCachePurgeCommand(ctx))
	cacheCmd.AddCommand(newCacheVariantsCommand(ctx))

	return cacheCmd
}

type entryView struct {
	ID        string  `json:"id"`
	Variant   string  `json:"variant"`
	Key       string  `json:"key"`
	Version   *string `json:"version,omitempty"`
	CreatedAt string  `json:"created_at"`
	ExpiresAt string  `json:"expires_at"`
	Live      bool    `json:"live"`
	Bytes     int     `json:"bytes"`
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var (
		variant string
		all     bool
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cache entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			now := svc.Now()
			filter := cachestore.ListFilter{Variant: strings.TrimSpace(variant), Limit: limit}
			if !all {
				filter.LiveAt = now
			}
			rows, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			views := make([]entryView, 0, len(rows))
			for _, row := range rows {
				views = append(views, entryView{
					ID:        row.ID.String(),
					Variant:   row.Variant,
					Key:       row.Key,
					Version:   row.Version,
					CreatedAt: formatStamp(row.CreatedAt),
					ExpiresAt: formatStamp(row.ExpiresAt),
					Live:      now.Before(row.ExpiresAt),
					Bytes:     len(row.Value),
				})
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No cache entries")
				return nil
			}
			tableRows := make([][]string, 0, len(views))
			for _, v := range views {
				tableRows = append(tableRows, []string{v.ID, v.Variant, v.CreatedAt, v.ExpiresAt, yesNo(v.Live), strconv.Itoa(v.Bytes)})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"ID", "Variant", "Created", "Expires", "Live", "Bytes"},
				tableRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "Only list entries of this variant")
	cmd.Flags().BoolVar(&all, "all", false, "Include expired entries")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to list (0 for no limit)")
	return cmd
}

func newCacheExpireCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "expire <entry-id|variant|key>",
		Short: "Expire one entry by id or key, or every entry of a variant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			target := strings.TrimSpace(args[0])
			out := cmd.OutOrStdout()

			if id, err := uuid.Parse(target); err == nil {
				changed, err := svc.Expire(cmd.Context(), cachesvc.ByID(id))
				if err != nil {
					return err
				}
				return reportExpired(cmd, ctx, target, boolCount(changed))
			}
			if _, ok := cachekey.Lookup(cachekey.Variant(target)); ok {
				n, err := svc.ExpireVariant(cmd.Context(), cachekey.Variant(target))
				if err != nil {
					return err
				}
				return reportExpired(cmd, ctx, target, n)
			}
			raw, err := cachekey.ParseRaw(target)
			if err != nil {
				fmt.Fprintln(out, "Target must be an entry id, a variant name, or a full cache key")
				return err
			}
			changed, err := svc.Expire(cmd.Context(), cachesvc.ByKey(raw))
			if err != nil {
				return err
			}
			return reportExpired(cmd, ctx, target, boolCount(changed))
		},
	}
}

func boolCount(changed bool) int64 {
	if changed {
		return 1
	}
	return 0
}

func reportExpired(cmd *cobra.Command, ctx *commandContext, target string, n int64) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, map[string]any{"target": target, "expired": n})
	}
	out := cmd.OutOrStdout()
	if n == 0 {
		fmt.Fprintln(out, outcomeLine(out, "Unchanged", "no live entry matched "+target, false))
		return nil
	}
	fmt.Fprintln(out, outcomeLine(out, "Expired", fmt.Sprintf("%d entr%s for %s", n, plural(n, "y", "ies"), target), true))
	return nil
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func newCachePurgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired entries from the database now",
		RunE: func(cmd *cobra.Command, args []string) error {
			sw, err := ctx.newSweeper()
			if err != nil {
				return err
			}
			n, err := sw.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]int64{"purged": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired entr%s\n", n, plural(n, "y", "ies"))
			return nil
		},
	}
}

type variantView struct {
	Variant   string `json:"variant"`
	TTLClass  string `json:"ttl_class"`
	TTL       string `json:"ttl"`
	Versioned bool   `json:"versioned"`
	Live      int64  `json:"live"`
	Expired   int64  `json:"expired"`
}

func newCacheVariantsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "Show every cache variant with its lifetime and entry counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore()
			if err != nil {
				return err
			}
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context(), svc.Now())
			if err != nil {
				return err
			}
			counts := make(map[string]cachestore.VariantStats, len(stats))
			for _, s := range stats {
				counts[s.Variant] = s
			}

			variants := cachekey.Variants()
			views := make([]variantView, 0, len(variants))
			for _, variant := range variants {
				policy, _ := cachekey.Lookup(variant)
				count := counts[string(variant)]
				views = append(views, variantView{
					Variant:   string(variant),
					TTLClass:  policy.TTL.String(),
					TTL:       svc.TTL(variant).String(),
					Versioned: policy.Versioned,
					Live:      count.Live,
					Expired:   count.Expired,
				})
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, views)
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{v.Variant, v.TTLClass, v.TTL, yesNo(v.Versioned),
					strconv.FormatInt(v.Live, 10), strconv.FormatInt(v.Expired, 10)})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out,
				[]string{"Variant", "Class", "TTL", "Versioned", "Live", "Expired"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight}))
			return nil
		},
	}
}
