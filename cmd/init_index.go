/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/pdfchat-be/config"
	"github.com/tieubaoca/pdfchat-be/database"
)

var resetIndex bool

// initIndexCmd represents the init-index command
var initIndexCmd = &cobra.Command{
	Use:   "init-index",
	Short: "Create the vector index schema",
	Long:  `Creates the chunk collection in Weaviate. With --reset every stored vector is dropped first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(false)
		if err != nil {
			return err
		}
		if cfg.VectorStore.Type != config.VectorStoreWeaviate {
			return fmt.Errorf("vector store %q has no schema to initialize", cfg.VectorStore.Type)
		}
		index, err := database.NewWeaviateIndex(cfg.VectorStore.Weaviate, log)
		if err != nil {
			return err
		}
		if resetIndex {
			if err := index.Reset(cmd.Context()); err != nil {
				return err
			}
			log.Info().Msg("vector index reset")
			return nil
		}
		if err := index.Init(cmd.Context()); err != nil {
			return err
		}
		log.Info().Msg("vector index ready")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initIndexCmd)
	initIndexCmd.Flags().BoolVar(&resetIndex, "reset", false, "drop and recreate the collection")
}
