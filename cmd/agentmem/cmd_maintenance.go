package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stale, low-value, never-accessed auto-extracted memories",
	RunE:  runPrune,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector index from the relational store",
	RunE:  runReindex,
}

func runPrune(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.maint.Prune(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d memories\n", result.Deleted)
	return nil
}

func runReindex(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.maint.Reindex(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "reindexed: %d succeeded, %d failed\n", result.Success, result.Failed)
	return nil
}
