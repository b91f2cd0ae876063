package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gtm-console/internal/backend"
	"gtm-console/internal/config"
	"gtm-console/internal/session"
)

var rootCmd = &cobra.Command{
	Use:           "console",
	Short:         "Assistant console for the GTM analytics backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: loading .env: %v", err)
	}

	rootCmd.AddCommand(chatCmd, serveCmd, stubCmd)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		cfg.BackendBaseURL = v
	}
	if v, _ := cmd.Flags().GetDuration("poll-interval"); v > 0 {
		cfg.HealthPollInterval = v
	}
	return cfg, nil
}

func newSession(cfg *config.Config, logger *zap.Logger) *session.Session {
	client := backend.NewHTTPClient(cfg.BackendBaseURL, cfg.HealthPlatform, cfg.HealthTimeout, cfg.ChatTimeout, logger)
	return session.New(client, session.Options{
		PollInterval:   cfg.HealthPollInterval,
		RequireHealthy: cfg.RequireHealthy,
		Logger:         logger,
	})
}

func addBackendFlags(cmd *cobra.Command) {
	cmd.Flags().String("backend", "", "backend base URL (overrides BACKEND_BASE_URL)")
	cmd.Flags().Duration("poll-interval", 0, "health poll interval (overrides HEALTH_POLL_INTERVAL)")
}

func init() {
	addBackendFlags(chatCmd)
	addBackendFlags(serveCmd)
}
