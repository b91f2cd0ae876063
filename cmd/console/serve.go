package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gtm-console/internal/config"
	"gtm-console/internal/events"
	apihttp "gtm-console/internal/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a session and expose it over HTTP for renderers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger, _ := zap.NewProduction()
		defer logger.Sync()

		ctx := cmd.Context()
		s := newSession(cfg, logger)
		defer s.Stop()

		if publisher := newEventPublisher(ctx, cfg, logger); publisher != nil {
			s.Subscribe(publisher.Subscriber())
			logger.Info("publishing session events", zap.String("channel", publisher.Channel(s.ID())))
		}

		sessionHandler := apihttp.NewSessionHandler(logger, s)
		router := apihttp.NewRouter(logger, sessionHandler)
		server := &http.Server{
			Addr:              ":" + cfg.HTTPPort,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}

		if err := s.Start(ctx); err != nil {
			return err
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("backend", cfg.BackendBaseURL))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			s.Stop()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})

		if err := g.Wait(); err != nil {
			logger.Error("server error", zap.Error(err))
			return err
		}
		return nil
	},
}

// newEventPublisher conecta Redis si esta configurado. Un Redis caido solo
// deshabilita la publicacion de eventos.
func newEventPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) *events.RedisPublisher {
	if cfg.RedisAddr == "" {
		return nil
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctxPing).Err(); err != nil {
		logger.Warn("redis ping failed", zap.Error(err))
		redisClient.Close()
		return nil
	}
	return events.NewRedisPublisher(redisClient, cfg.EventsChannelPrefix, logger)
}
