package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goodhabits/auth"
	"goodhabits/chat"
	"goodhabits/config"
	"goodhabits/crypto"
	"goodhabits/db"
	"goodhabits/handlers"
	"goodhabits/i18n"
	"goodhabits/logger"
	"goodhabits/store"
	"goodhabits/streak"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web application",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func openDatabase() (*sql.DB, error) {
	return db.Open(config.AppConfig.DatabasePath, db.Options{BusyTimeoutMS: config.AppConfig.BusyTimeoutMS})
}

// buildHandler wires the store, streak engine and chat bridge behind the router.
func buildHandler(conn *sql.DB) *handlers.Handler {
	cfg := config.AppConfig
	st := store.New(conn, crypto.NewSealer(cfg.SessionKey))
	engine := streak.NewEngine(st, streak.NewRandomPicker())

	var completer chat.Completer
	if cfg.OpenAIAPIKey != "" {
		completer = chat.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	} else {
		logger.Warn("No OpenAI API key configured. Chat is disabled.")
	}
	bridge := chat.NewBridge(st, st, completer, time.Duration(cfg.ChatTimeoutSeconds)*time.Second)

	return handlers.New(st, engine, bridge)
}

func serve(ctx context.Context) error {
	if err := i18n.LoadTranslations(); err != nil {
		return fmt.Errorf("loading translations: %w", err)
	}
	auth.InitStore()

	conn, err := openDatabase()
	if err != nil {
		return err
	}
	defer conn.Close()

	srv := &http.Server{
		Addr:              config.AppConfig.Addr(),
		Handler:           buildHandler(conn).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Chat calls may take up to the configured timeout.
		WriteTimeout: time.Duration(config.AppConfig.ChatTimeoutSeconds+15) * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "addr", srv.Addr, "app", config.AppConfig.AppName, "database", config.AppConfig.DatabasePath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
