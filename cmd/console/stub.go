package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gtm-console/internal/config"
	"gtm-console/internal/stub"
)

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Run a local stand-in for the analytics backend",
	Long: `Run a local stand-in for the analytics backend.

Serves GET {prefix}/health and POST {prefix}/chat with canned answers so the
console can be exercised without the real integration service.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		prefix, _ := cmd.Flags().GetString("prefix")
		unhealthyFor, _ := cmd.Flags().GetDuration("unhealthy-for")

		logger, _ := zap.NewProduction()
		defer logger.Sync()
		gin.SetMode(gin.ReleaseMode)

		b := stub.NewBackend(logger, cfg.HealthPlatform)
		if unhealthyFor > 0 {
			b.SetHealth(false, "HubSpot connection pending")
			time.AfterFunc(unhealthyFor, func() {
				b.SetHealth(true, "Connected to HubSpot")
			})
		}

		server := &http.Server{
			Addr:              ":" + cfg.StubPort,
			Handler:           b.Router(prefix),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			<-cmd.Context().Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()

		logger.Info("starting stub backend", zap.String("port", cfg.StubPort), zap.String("prefix", prefix))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	stubCmd.Flags().String("prefix", "/api/mcp", "route prefix for health and chat")
	stubCmd.Flags().Duration("unhealthy-for", 0, "report unhealthy for this long after start")
}
