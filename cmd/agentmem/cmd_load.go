package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var loadProject string

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Emit context for prompt injection",
}

var loadSessionStartCmd = &cobra.Command{
	Use:   "session-start",
	Short: "Emit the session-start prelude, working-memory digest, and high-value memories",
	RunE:  runLoadSessionStart,
}

var loadPromptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Emit a relevant-memories block for the prompt read from stdin",
	RunE:  runLoadPrompt,
}

func init() {
	loadCmd.PersistentFlags().StringVar(&loadProject, "project", "", "project scope (default: global)")
	loadCmd.AddCommand(loadSessionStartCmd, loadPromptCmd)
}

func runLoadSessionStart(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	text, err := a.loader.SessionStart(loadProject, a.memoryDocPath())
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), text)
	return nil
}

func runLoadPrompt(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}

	text, err := a.loader.PerPrompt(loadProject, raw)
	if err != nil {
		return err
	}
	if text != "" {
		fmt.Fprint(cmd.OutOrStdout(), text)
	}
	return nil
}
