// Package app provides the application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Bot mode: Telegram update loop feeding the recorder, photographer and repeater
//   - Migrate mode: apply database migrations and exit
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/telegram-repeater-bot/internal/bot"
	"github.com/lueurxax/telegram-repeater-bot/internal/ingest/photographer"
	"github.com/lueurxax/telegram-repeater-bot/internal/ingest/recorder"
	"github.com/lueurxax/telegram-repeater-bot/internal/platform/config"
	"github.com/lueurxax/telegram-repeater-bot/internal/platform/observability"
	"github.com/lueurxax/telegram-repeater-bot/internal/platform/worker"
	"github.com/lueurxax/telegram-repeater-bot/internal/process/dedup"
	"github.com/lueurxax/telegram-repeater-bot/internal/process/repeater"
	db "github.com/lueurxax/telegram-repeater-bot/internal/storage"
)

const (
	errBotInit      = "bot initialization failed: %w"
	statsWorkerName = "repeater-stats"
)

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunMigrate applies pending migrations.
func (a *App) RunMigrate(ctx context.Context) error {
	a.logger.Info().Msg("Running migrations")

	if err := a.database.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	a.logger.Info().Msg("Migrations applied")

	return nil
}

// RunBot runs the bot mode until ctx is canceled.
func (a *App) RunBot(ctx context.Context) error {
	a.logger.Info().Msg("Starting bot mode")

	if err := a.RunMigrate(ctx); err != nil {
		return err
	}

	tg, err := bot.New(a.cfg.TelegramBotCfg(), a.logger)
	if err != nil {
		return fmt.Errorf(errBotInit, err)
	}

	rcfg := a.cfg.RepeaterCfg()

	boxes, err := dedup.LoadAll(ctx, a.database, rcfg.AcceptGroups)
	if err != nil {
		return fmt.Errorf("load dedup boxes: %w", err)
	}

	var rec *recorder.Recorder

	if a.cfg.RecorderEnabled {
		rec = recorder.New(a.database, rcfg.StoreTimeout, a.logger)
		tg.AddListener(rec)
	}

	var (
		photos  *photographer.Photographer
		fetcher repeater.ImageFetcher
	)

	if pcfg := a.cfg.PhotographerCfg(); pcfg.Enabled {
		photos = photographer.New(pcfg, a.database, tg, a.logger)
		fetcher = a.database
		tg.AddListener(photos)
	}

	rep, err := repeater.New(rcfg, boxes, fetcher, tg, a.logger)
	if err != nil {
		return fmt.Errorf("repeater init: %w", err)
	}

	tg.AddListener(rep)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return tg.Run(gctx)
	})

	g.Go(func() error {
		return worker.SingleTickerLoop(gctx, worker.SingleTickerConfig{
			Name:       statsWorkerName,
			Interval:   rcfg.StatsInterval,
			RunOnStart: true,
			OnTick: func(context.Context) {
				rep.ReportStats()
			},
			Logger: a.logger,
		})
	})

	g.Go(func() error {
		return a.StartHealthServer(gctx)
	})

	err = g.Wait()

	a.logger.Info().Msg("Waiting for in-flight work")

	rep.Close()

	if photos != nil {
		photos.Wait()
	}

	if rec != nil {
		rec.Wait()
	}

	return err //nolint:wrapcheck // errors from group members are already wrapped
}
