package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"mediatrack/internal/logging"
	"mediatrack/internal/matching"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var (
		title      string
		year       int
		candidates string
		rank       bool
	)
	cmd := &cobra.Command{
		Use:         "match",
		Short:       "Pick the best candidate for a title from a JSON candidate list",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("--title is required")
			}
			list, err := readCandidates(cmd, candidates)
			if err != nil {
				return err
			}
			query := matching.Query{OriginalTitle: title}
			if year > 0 {
				query.PublishYear = matching.Year(year)
			}
			matcher := matching.NewMatcher(logging.NewNop())

			if rank {
				ranked := matcher.Rank(query, list)
				if ctx.jsonOutput() {
					return writeJSON(cmd, ranked)
				}
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(ranked))
				for i, s := range ranked {
					rows = append(rows, scoredRow(strconv.Itoa(i+1), s))
				}
				fmt.Fprintln(out, renderTable(out, scoredHeaders("Rank"), rows, scoredAligns))
				return nil
			}

			best, err := matcher.Best(cmd.Context(), query, list)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, best)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out, scoredHeaders("Pos"), [][]string{scoredRow(strconv.Itoa(best.Position), best)}, scoredAligns))
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Reference title to match")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "Reference publish year")
	cmd.Flags().StringVar(&candidates, "candidates", "-", "JSON file of candidates, or - for stdin")
	cmd.Flags().BoolVar(&rank, "rank", false, "Show every candidate ordered by score")
	return cmd
}

var scoredAligns = []columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignRight}

func scoredHeaders(first string) []string {
	return []string{first, "Title", "Year", "Lot", "ID", "Score"}
}

func scoredRow(first string, s matching.Scored) []string {
	return []string{first, s.Title, formatYear(s.PublishYear), s.Lot.String(), s.Identifier, formatScore(s.Score)}
}

func readCandidates(cmd *cobra.Command, path string) ([]matching.Candidate, error) {
	var r io.Reader
	if path == "" || path == "-" {
		r = cmd.InOrStdin()
	} else {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open candidates: %w", err)
		}
		defer file.Close()
		r = file
	}
	var list []matching.Candidate
	if err := json.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	return list, nil
}
