package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	queryLimit int
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Run hybrid search and print ranked results",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "maximum results (default: search.top_k)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	q := strings.Join(args, " ")

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.hybrid.Search(context.Background(), q, queryLimit, a.cfg.Search.Alpha)
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%.4f\t%s\t%s\n", r.HybridScore, r.Source, r.Memory.Content)
	}
	return nil
}
