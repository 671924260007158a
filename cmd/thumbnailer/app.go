package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/batch"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/cache"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/config"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/database"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/effects"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/extractor"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/locator"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/logging"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/metrics"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/output"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/storage"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/table"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/thumbnailer"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/tracing"
)

// app holds the components of one run and the functions that release them
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	runID   string
	locator batch.Locator
	cache   *cache.Cache
	closers []func()
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp sets up logging, tracing and the source locator
func newApp(cfg *config.Config) (*app, error) {
	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	runID := uuid.New().String()
	a := &app{
		cfg:    cfg,
		logger: logger.WithRunID(runID),
		runID:  runID,
	}

	_, closer, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		return nil, err
	}
	a.onClose(func() { _ = closer.Close() })

	loc, err := locator.New(locator.Options{
		Root:        cfg.Movies.Root,
		Strategy:    locator.ShardStrategy(cfg.Movies.Shard),
		ShardDigits: cfg.Movies.ShardDigits,
		Extensions:  cfg.Movies.Extensions,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("invalid movies configuration: %w", err)
	}
	a.locator = loc

	if cfg.Cache.Enabled {
		c, err := cache.NewCache(cfg.Cache.Host, cfg.Cache.Port, cfg.Cache.Password, cfg.Cache.DB)
		if err != nil {
			// the cache only saves directory scans, so run without it
			a.logger.WithError(err).Warnf("source cache at %s:%d unavailable", cfg.Cache.Host, cfg.Cache.Port)
		} else {
			a.cache = c
			a.onClose(func() { _ = c.Close() })
			a.locator = cache.NewLocatorCache(loc, c, cfg.Cache.TTL, a.logger).WithReadOnly(cfg.Extract.DryRun)
		}
	}

	return a, nil
}

// sinks connects the configured thumbnail sinks. A dry run records nothing.
func (a *app) sinks(ctx context.Context) ([]thumbnailer.Sink, error) {
	if a.cfg.Extract.DryRun {
		return nil, nil
	}

	var sinks []thumbnailer.Sink

	if a.cfg.Storage.Enabled {
		store, err := storage.New(ctx, a.cfg.Storage)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, storage.NewPublisher(store, a.cfg.Storage.Prefix, a.logger))
	}

	if a.cfg.Database.Enabled {
		db, err := database.New(ctx, a.cfg.Database)
		if err != nil {
			return nil, err
		}
		a.onClose(db.Close)

		repo, err := a.catalog(ctx, db)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, repo)
	}

	return sinks, nil
}

// catalog checks the connection and prepares the thumbnails table
func (a *app) catalog(ctx context.Context, db *database.DB) (*database.Repository, error) {
	if err := db.Health(ctx); err != nil {
		return nil, fmt.Errorf("database unhealthy: %w", err)
	}

	repo := database.NewRepository(db, a.logger)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// openCatalog connects to the configured database for read access
func (a *app) openCatalog(ctx context.Context) (*database.Repository, error) {
	if !a.cfg.Database.Enabled {
		return nil, errors.New("catalog requires database.enabled")
	}

	db, err := database.New(ctx, a.cfg.Database)
	if err != nil {
		return nil, err
	}
	a.onClose(db.Close)

	return a.catalog(ctx, db)
}

// driver wires the extraction pipeline. fx decides between doing and printing.
func (a *app) driver(fx effects.Effects, sinks []thumbnailer.Sink) *batch.Driver {
	ex := a.cfg.Extract

	builder := output.NewBuilder(ex.OutputRoot, ex.Frames, fx)
	ff := extractor.NewFFmpeg(ex.FFmpegPath, fx, ex.Timeout)
	svc := thumbnailer.NewService(thumbnailer.Options{
		FrameRate:    ex.FrameRate,
		VerifyOutput: ex.VerifyOutput,
		RunID:        a.runID,
	}, builder, ff, fx, a.logger, sinks...)

	return batch.NewDriver(batch.Options{
		Offset:         ex.SignedOffset(),
		ImageAsDefault: ex.ImageAsDefault,
	}, a.locator, svc, a.logger)
}

// run performs one batch or single extraction. Per-row problems are in the
// summary and logs; only setup failures, an unreadable table or an interrupt
// are returned.
func run(ctx context.Context, cfg *config.Config, opts *options, mode string, stdout io.Writer) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			a.logger.Warn("Interrupted, stopping after the current extraction...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if port := cfg.Metrics.ListenPort; port > 0 {
		srv := metrics.NewServer(port)
		go func() {
			if err := srv.Start(); err != nil {
				a.logger.WithError(err).Warn("metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	a.logger.WithField("mode", mode).WithField("dry_run", cfg.Extract.DryRun).Info("Starting thumbnail run")

	var fx effects.Effects = effects.NewReal()
	if cfg.Extract.DryRun {
		fx = effects.NewDryRun(stdout)
	}

	sinks, err := a.sinks(ctx)
	if err != nil {
		return err
	}
	d := a.driver(fx, sinks)

	var runErr error
	switch mode {
	case batch.ModeTable:
		runErr = runTable(ctx, d, opts.csvFile)
	default:
		_, runErr = d.RunSingle(ctx, batch.SingleRequest{
			FilmID:    opts.filmID,
			Timecode:  opts.timecode,
			TitleCard: opts.titlecard,
		})
	}

	a.pushMetrics()

	if errors.Is(runErr, context.Canceled) {
		return errors.New("interrupted")
	}
	return runErr
}

func runTable(ctx context.Context, d *batch.Driver, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	if _, err := d.RunTable(ctx, f, table.DelimiterFor(path)); err != nil {
		return fmt.Errorf("failed to process %s: %w", path, err)
	}
	return nil
}

func (a *app) pushMetrics() {
	if a.cfg.Metrics.PushgatewayURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := metrics.NewPusher(a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job).Push(ctx, a.runID); err != nil {
		a.logger.WithError(err).Warn("failed to push metrics")
	}
}
