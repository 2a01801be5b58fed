package main

import (
	"github.com/raine/stockmeta/internal/app"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "stockmeta",
	Short: "Generate stock marketplace metadata for images and videos",
	Long: `stockmeta sends images, SVGs and videos to Gemini and writes titles,
descriptions and keywords as CSV in the upload format of Freepik,
Shutterstock or Adobe Stock.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := app.SetupLogging(""); err != nil {
			return err
		}
		if !verbose {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
