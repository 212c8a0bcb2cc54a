package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	saveWho     string
	saveProject string
	saveContent string
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist a memory, explicitly or via transcript auto-extraction",
}

var saveExplicitCmd = &cobra.Command{
	Use:   "explicit [content...]",
	Short: "Persist an operator-authored memory",
	RunE:  runSaveExplicit,
}

var saveAutoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Run best-effort transcript auto-extraction from a JSON envelope on stdin",
	RunE:  runSaveAuto,
}

func init() {
	saveExplicitCmd.Flags().StringVar(&saveWho, "who", "operator", "agent or user responsible for this memory")
	saveExplicitCmd.Flags().StringVar(&saveProject, "project", "", "project scope (default: global)")
	saveExplicitCmd.Flags().StringVar(&saveContent, "content", "", "memory content (alternative to positional args)")
	saveCmd.AddCommand(saveExplicitCmd, saveAutoCmd)
}

func runSaveExplicit(cmd *cobra.Command, args []string) error {
	content := saveContent
	if content == "" {
		content = strings.Join(args, " ")
	}
	content = strings.TrimSpace(content)

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.pipeline.SaveExplicit(context.Background(), content, saveWho, saveProject)
	if err != nil {
		return err
	}

	if result.Embedded {
		fmt.Fprintln(cmd.OutOrStdout(), "saved (embedded)")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "saved (no embedding)")
	}
	return nil
}

func runSaveAuto(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}

	saved, err := a.pipeline.SaveAuto(context.Background(), raw)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %d memories\n", saved)
	return nil
}
