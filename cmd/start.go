/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/tieubaoca/pdfchat-be/handler"
)

const shutdownTimeout = 15 * time.Second

// startServerCmd represents the start command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the chat server",
	Long:  `Starts the HTTP server that handles uploads, document management and chat connections.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(true)
		if err != nil {
			return err
		}
		if cfg.Log.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize services")
			return err
		}
		defer a.Close(context.Background())

		router := handler.NewRouter(
			handler.RouterConfig{
				JWTSecret:      cfg.JWTSecret,
				RequestTimeout: cfg.Server.RequestTimeout,
				StreamTimeout:  cfg.Chat.StreamTimeout,
				Logger:         log,
			},
			handler.NewDocumentHandler(a.store, a.ingestion, a.docs, cfg.Server.MaxUploadBytes, log),
			handler.NewChatHandler(a.chat, log),
			handler.NewWSHandler(a.chat, log),
		)

		srv := &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("port", cfg.Server.Port).Msg("starting server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				log.Error().Err(err).Msg("server error")
				return err
			}
			return nil
		case <-ctx.Done():
		}

		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startServerCmd)
}
