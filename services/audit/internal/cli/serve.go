package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"smartaset/internal/ratelimit"
	"smartaset/internal/sessiontoken"
	"smartaset/internal/util"
	"smartaset/services/audit/internal/config"
	"smartaset/services/audit/internal/server"
)

const sweepInterval = 5 * time.Minute

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the workspace HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if err := config.ValidateServe(cfg); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg config.FileConfig) error {
	logger := util.InitLogger(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := wire(ctx, cfg, logger, wireOptions{uploads: true})
	if err != nil {
		return err
	}
	defer rt.close(logger)

	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		return err
	}
	tokens, err := sessiontoken.NewManager(sessiontoken.Options{Secret: cfg.SessionSecret, TTL: sessionTTL})
	if err != nil {
		return err
	}
	trusted, err := util.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimitPerMinute > 0 {
		if cfg.RedisAddr != "" {
			redisLimiter, err := ratelimit.NewRedisFixedWindow(cfg.RedisAddr, cfg.RedisPassword, ratelimit.DefaultPrefix, cfg.RateLimitPerMinute, time.Minute)
			if err != nil {
				return err
			}
			defer redisLimiter.Close()
			limiter = redisLimiter
		} else {
			localLimiter, err := ratelimit.NewLocalFixedWindow(cfg.RateLimitPerMinute, time.Minute)
			if err != nil {
				return err
			}
			limiter = localLimiter
		}
	}

	httpServer, err := server.New(server.Config{
		App:            rt.app,
		Tokens:         tokens,
		Limiter:        limiter,
		TrustedProxies: trusted,
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	go rt.app.RunSweeper(ctx, sweepInterval)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "provider", cfg.GenerationProvider, "model", cfg.GenerationModel)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
