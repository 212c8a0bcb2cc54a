// Command agentmem is the one-shot CLI front-end over the agentmem core:
// init, load (session-start/prompt), save (explicit/auto), query, prune,
// migrate, and reindex. It is deliberately thin - every policy decision
// lives in internal/ - mirroring how the teacher's cmd/nerd wires cobra
// commands over its internal/ packages.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var homeDir string

var rootCmd = &cobra.Command{
	Use:   "agentmem",
	Short: "Persistent local-first agentic memory store",
	Long: `agentmem captures facts observed during interactive AI coding
sessions, indexes them for lexical and semantic retrieval, scores their
present relevance, and returns a budget-bounded subset for prompt
injection.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "agents-home directory (default: $AGENTMEM_HOME or ./.agentmem)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reindexCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "agentmem: "+err.Error())
		os.Exit(1)
	}
}
