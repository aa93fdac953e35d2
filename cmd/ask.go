/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tieubaoca/pdfchat-be/types"
)

var (
	askDocument string
	askQuestion string
	askChat     string
	askOwner    string
	askOnce     bool
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question about an ingested document",
	Long: `Streams an answer grounded in the pages of an ingested document.

With --once the question is answered without conversation history and
nothing is saved. Without --document, --once uses the latest document.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if askQuestion == "" {
			return fmt.Errorf("--question is required")
		}
		if !askOnce && askDocument == "" {
			return fmt.Errorf("--document is required unless --once is set")
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

		out := cmd.OutOrStdout()
		if askOnce {
			resp, err := a.chat.Ask(ctx, askOwner, types.AskRequest{
				Question:   askQuestion,
				DocumentID: askDocument,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "[%s]\n%s\n", resp.DocumentName, resp.Answer)
			return nil
		}

		fragments, err := a.chat.Answer(ctx, types.AnswerRequest{
			DocumentID: askDocument,
			ChatID:     askChat,
			Question:   askQuestion,
			UserID:     askOwner,
		})
		if err != nil {
			return err
		}
		for f := range fragments {
			if f.Err != nil {
				fmt.Fprintln(out)
				return f.Err
			}
			fmt.Fprint(out, f.Text)
		}
		fmt.Fprintln(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askDocument, "document", "d", "", "document id")
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to ask")
	askCmd.Flags().StringVar(&askChat, "chat", "", "chat id, defaults to the document chat")
	askCmd.Flags().StringVarP(&askOwner, "owner", "o", "cli", "owner user id")
	askCmd.Flags().BoolVar(&askOnce, "once", false, "answer without history and without saving")
}
