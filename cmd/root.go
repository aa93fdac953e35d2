/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tieubaoca/pdfchat-be/config"
	"github.com/tieubaoca/pdfchat-be/utils"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pdfchat-be",
	Short: "Chat with your PDF documents",
	Long: `pdfchat-be ingests PDF documents into a vector index and answers
questions about them with a language model, citing the pages it used.

Run "pdfchat-be start" to serve the HTTP API, or use the ingest and ask
commands to work from the terminal.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config/config.yaml", "config file")
}

// loadConfig reads the config file and builds the logger. Commands that
// talk to every backend ask for validation.
func loadConfig(validate bool) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	log, err := utils.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, log, err
		}
	}
	return cfg, log, nil
}
