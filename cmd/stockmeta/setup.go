package main

import (
	"errors"

	"github.com/raine/stockmeta/internal/config"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Save the Gemini API key and backend settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !config.IsInteractiveTerminal() {
			return errors.New("setup needs an interactive terminal")
		}
		if !config.RunSetupWizard() {
			return errors.New("setup did not complete")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
