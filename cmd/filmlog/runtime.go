package main

import (
	"context"
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/filmlog/internal/archive"
	"github.com/MarcoPoloResearchLab/filmlog/internal/codec"
	"github.com/MarcoPoloResearchLab/filmlog/internal/config"
	"github.com/MarcoPoloResearchLab/filmlog/internal/database"
	"github.com/MarcoPoloResearchLab/filmlog/internal/export"
	"github.com/MarcoPoloResearchLab/filmlog/internal/logbook"
	"github.com/MarcoPoloResearchLab/filmlog/internal/logging"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var errArchiveNotConfigured = errors.New("archive.endpoint is not configured")

// appRuntime holds the wired services shared by every subcommand.
type appRuntime struct {
	config  config.AppConfig
	logger  *zap.Logger
	dates   *codec.DateCodec
	store   *logbook.Store
	service *logbook.Service
}

func openRuntime() (*appRuntime, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogDevelopment)
	if err != nil {
		return nil, err
	}

	dates, err := codec.LoadDateCodec(appConfig.TimeZone)
	if err != nil {
		return nil, err
	}

	var store *logbook.Store
	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		store = logbook.NewUnavailableStore(err, logger)
	} else {
		store = logbook.NewStore(logbook.StoreConfig{Database: db, Dates: dates, Logger: logger})
	}

	service, err := logbook.NewService(logbook.ServiceConfig{
		Store:      store,
		Clock:      time.Now,
		IDProvider: logbook.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &appRuntime{
		config:  appConfig,
		logger:  logger,
		dates:   dates,
		store:   store,
		service: service,
	}, nil
}

// newExporter wires the exporter. An unreachable archive is logged and skipped.
func (r *appRuntime) newExporter(ctx context.Context) (*export.Exporter, error) {
	cfg := export.Config{
		Rolls:     r.service.Rolls(),
		Frames:    r.service.Frames(),
		Directory: r.config.ExportDir,
		Prefix:    r.config.ExportPrefix,
		Dates:     r.dates,
		Clock:     time.Now,
		Logger:    r.logger,
	}
	if r.config.Archive.Enabled() {
		mirror, err := r.newArchive(ctx)
		if err != nil {
			r.logger.Warn("export archive disabled", zap.Error(err))
		} else {
			cfg.Archiver = mirror
		}
	}
	return export.NewExporter(cfg)
}

func (r *appRuntime) newArchive(ctx context.Context) (*archive.Archive, error) {
	if !r.config.Archive.Enabled() {
		return nil, errArchiveNotConfigured
	}
	return archive.New(ctx, archive.Config{
		Endpoint:  r.config.Archive.Endpoint,
		AccessKey: r.config.Archive.AccessKey,
		SecretKey: r.config.Archive.SecretKey,
		Bucket:    r.config.Archive.Bucket,
		UseSSL:    r.config.Archive.UseSSL,
		Logger:    r.logger,
	})
}

func (r *appRuntime) Close() {
	if err := r.store.Close(); err != nil {
		r.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = r.logger.Sync()
}
