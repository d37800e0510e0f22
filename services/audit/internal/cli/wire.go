package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"smartaset/pkg/ai"
	"smartaset/pkg/audit"
	"smartaset/pkg/events"
	"smartaset/pkg/extract"
	"smartaset/pkg/history"
	"smartaset/pkg/storage"
	"smartaset/pkg/store"
	"smartaset/services/audit/internal/app"
	"smartaset/services/audit/internal/config"
)

// runtime is everything a command needs once config is loaded.
type runtime struct {
	app    *app.App
	kv     store.KV
	events events.Publisher
}

type wireOptions struct {
	// uploads enables the per-workspace file store used by the server.
	uploads bool
}

func wire(ctx context.Context, cfg config.FileConfig, logger *slog.Logger, opts wireOptions) (*runtime, error) {
	kv, err := store.Open(store.Options{
		Backend:       cfg.HistoryBackend,
		SQLitePath:    cfg.HistoryPath,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisPrefix:   "smartaset",
		DatabaseURL:   cfg.DatabaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	rt := &runtime{kv: kv, events: events.Nop{}}

	hist := history.New(kv, logger)
	loaded := hist.Load(ctx)
	logger.Info("history loaded", "backend", cfg.HistoryBackend, "entries", len(loaded))

	gen, err := ai.NewGenerator(ai.ProviderConfig{
		Provider: cfg.GenerationProvider,
		BaseURL:  cfg.GenerationBaseURL,
		APIKey:   cfg.GenerationAPIKey,
		Model:    cfg.GenerationModel,
	})
	if err != nil {
		rt.close(logger)
		return nil, fmt.Errorf("init generator: %w", err)
	}
	auditor, err := audit.New(audit.Config{
		Generator:   gen,
		History:     hist,
		Temperature: cfg.Temperature,
		Logger:      logger,
	})
	if err != nil {
		rt.close(logger)
		return nil, err
	}

	var files *storage.FileStore
	if opts.uploads {
		files, err = storage.NewFileStore(cfg.UploadsDir, cfg.MaxUploadBytes)
		if err != nil {
			rt.close(logger)
			return nil, fmt.Errorf("init upload store: %w", err)
		}
	}

	var archive storage.ObjectStore
	minioCfg := storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	}
	if minioCfg.Enabled() {
		archive, err = storage.NewMinioStore(ctx, minioCfg)
		if err != nil {
			rt.close(logger)
			return nil, fmt.Errorf("init report archive: %w", err)
		}
	}

	if cfg.AMQPURL != "" {
		pub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			rt.close(logger)
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		rt.events = pub
	}

	ttl, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		rt.close(logger)
		return nil, err
	}
	rt.app, err = app.New(app.Config{
		Analyzer:            auditor,
		Generator:           gen,
		History:             hist,
		Documents:           extract.NewDocumentExtractor(nil, cfg.PdftoppmPath),
		Frames:              extract.NewFrameSampler(nil, cfg.FfmpegPath, cfg.FfprobePath, logger),
		Files:               files,
		Archive:             archive,
		Events:              rt.events,
		MaxConcurrentAudits: cfg.MaxConcurrent,
		WorkspaceTTL:        ttl,
		Logger:              logger,
	})
	if err != nil {
		rt.close(logger)
		return nil, fmt.Errorf("init app: %w", err)
	}
	return rt, nil
}

func (rt *runtime) close(logger *slog.Logger) {
	var errs []error
	// The app owns the publisher once built.
	if rt.app != nil {
		errs = append(errs, rt.app.Close())
	} else if rt.events != nil {
		errs = append(errs, rt.events.Close())
	}
	if rt.kv != nil {
		errs = append(errs, rt.kv.Close())
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warn("shutdown cleanup failed", "err", err)
	}
}
