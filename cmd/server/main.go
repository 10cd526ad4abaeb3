package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/wemake-app/wemake-api/internal/config"
	"github.com/wemake-app/wemake-api/internal/database"
	"github.com/wemake-app/wemake-api/internal/localcache"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wemake",
		Short: "WeMake API server and maintenance commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(penaltiesCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the sync and penalty workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the primary store and local cache schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			db, err := database.Connect(cfg)
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}

			outbox, err := localcache.Open(cmd.Context(), cfg.LocalCachePath)
			if err != nil {
				return err
			}
			defer outbox.Close()

			log.Println("Migrations applied")
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay cached task writes to the remote stores once",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd.Context(), config.Load())
			if err != nil {
				return err
			}
			defer app.close()

			report, err := app.replayer.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func penaltiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "penalties",
		Short: "Apply overdue penalties once",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd.Context(), config.Load())
			if err != nil {
				return err
			}
			defer app.close()

			report, err := app.taskService.ApplyOverduePenalties(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func runServe(ctx context.Context) error {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close()

	r, err := app.router()
	if err != nil {
		return err
	}

	go app.hub.Run(ctx)
	app.scheduler.Start()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exited")
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
