package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"

	"agentmem/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize agents-home: default config.yaml and a migrated store",
	RunE:  runInit,
}

// runInit writes a default config.yaml if one isn't already present, then
// opens the relational store - which applies every pending migration as a
// side effect of store.Open - and reports the resolved paths.
func runInit(cmd *cobra.Command, args []string) error {
	home, err := resolveHome()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(home, 0755); err != nil {
		return err
	}

	configPath := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		data, err := yaml.Marshal(config.Default())
		if err != nil {
			return err
		}
		if err := os.WriteFile(configPath, data, 0644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote default config: %s\n", configPath)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "config already present: %s\n", configPath)
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := currentMigrationStatus(a)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "database: %s\n", a.cfg.DatabasePath())
	fmt.Fprintf(cmd.OutOrStdout(), "vectors:  %s\n", a.cfg.VectorsPath())
	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", status.CurrentVersion)
	return nil
}
