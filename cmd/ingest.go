/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/pdfchat-be/types"
	"github.com/tieubaoca/pdfchat-be/utils"
)

var (
	ingestFile      string
	ingestDirectory string
	ingestLocator   string
	ingestName      string
	ingestOwner     string
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest PDF documents",
	Long: `Stores PDF documents and indexes them so they can be chatted with.

Pass --file for a single PDF, --directory to ingest every PDF found under a
directory, or --locator for a PDF already present in object storage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestFile == "" && ingestDirectory == "" && ingestLocator == "" {
			return fmt.Errorf("one of --file, --directory or --locator is required")
		}
		cfg, log, err := loadConfig(true)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		switch {
		case ingestLocator != "":
			name := ingestName
			if name == "" {
				name = filepath.Base(ingestLocator)
			}
			return a.ingestLocator(ctx, cmd, ingestLocator, name)
		case ingestFile != "":
			return a.ingestPath(ctx, cmd, ingestFile, ingestName)
		}

		var files []string
		err = filepath.WalkDir(ingestDirectory, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to walk directory: %w", err)
		}
		if len(files) == 0 {
			log.Warn().Str("directory", ingestDirectory).Msg("no pdf files found")
			return nil
		}

		failed := 0
		for i, path := range files {
			log.Info().Int("file", i+1).Int("total", len(files)).Str("path", path).Msg("ingesting")
			if err := a.ingestPath(ctx, cmd, path, ""); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failed++
				continue
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(files))
		}
		return nil
	},
}

func (a *app) ingestPath(ctx context.Context, cmd *cobra.Command, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if name == "" {
		name = utils.FileNameWithoutExt(path)
	}
	locator, err := a.store.Put(ctx, filepath.Base(path), f, info.Size())
	if err != nil {
		return fmt.Errorf("failed to store file: %w", err)
	}
	return a.ingestLocator(ctx, cmd, locator, name)
}

func (a *app) ingestLocator(ctx context.Context, cmd *cobra.Command, locator, name string) error {
	progress := make(chan types.ProcessingDocumentStatus)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			a.log.Info().
				Str("status", p.Status).
				Float64("progress", p.Progress).
				Int("processed_chunks", p.ProcessedChunks).
				Int("total_chunks", p.TotalChunks).
				Msg(p.Message)
		}
	}()

	doc, err := a.ingestion.Ingest(ctx, types.IngestRequest{
		Locator: locator,
		Name:    name,
		OwnerID: ingestOwner,
	}, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d pages\t%d chunks\n", doc.ID, doc.Name, doc.PageCount, doc.ChunkCount)
	return nil
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "path to a PDF file")
	ingestCmd.Flags().StringVarP(&ingestDirectory, "directory", "d", "", "directory to search for PDF files")
	ingestCmd.Flags().StringVarP(&ingestLocator, "locator", "l", "", "locator of a PDF already in object storage")
	ingestCmd.Flags().StringVarP(&ingestName, "name", "n", "", "display name of the document")
	ingestCmd.Flags().StringVarP(&ingestOwner, "owner", "o", "cli", "owner user id")
	ingestCmd.MarkFlagsMutuallyExclusive("file", "directory", "locator")
}
