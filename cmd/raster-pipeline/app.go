package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/raster-pipeline/internal/catalog"
	"github.com/ironsheep/raster-pipeline/internal/catapi"
	"github.com/ironsheep/raster-pipeline/internal/config"
	"github.com/ironsheep/raster-pipeline/internal/pipeline"
	"github.com/ironsheep/raster-pipeline/internal/storage"
)

// globalFlags are the persistent flags shared by every command. Non-zero
// values override the environment configuration.
type globalFlags struct {
	envFile   string
	photoDir  string
	logLevel  string
	logFile   string
	workers   int
	noCatalog bool
}

// app holds the collaborators built from configuration for one command.
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	store   *storage.Store
	catalog *catalog.DB

	closers []func()
}

func newApp(flags *globalFlags, logOut io.Writer) (*app, error) {
	var envFiles []string
	if flags.envFile != "" {
		envFiles = append(envFiles, flags.envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if flags.photoDir != "" {
		cfg.PhotoDir = flags.photoDir
		cfg.CatalogPath = filepath.Join(flags.photoDir, "catalog.db")
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.logFile != "" {
		cfg.LogFile = flags.logFile
	}
	if flags.workers > 0 {
		cfg.Workers = flags.workers
	}

	logger, closeLog, err := initLogger(logOut, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		store:   storage.New(cfg.PhotoDir, logger, storage.WithJPEGQuality(cfg.JPEGQuality)),
		closers: []func(){closeLog},
	}

	if !flags.noCatalog {
		db, err := catalog.Open(cfg.CatalogPath)
		if err != nil {
			logger.WithError(err).WithField("path", cfg.CatalogPath).Warn("Catalog unavailable, results will not be recorded")
		} else {
			a.catalog = db
			a.closers = append(a.closers, func() { db.Close() })
		}
	}

	logger.WithFields(logrus.Fields{
		"version":   Version,
		"photo_dir": cfg.PhotoDir,
		"workers":   cfg.Workers,
	}).Debug("Configuration loaded")
	return a, nil
}

// Close releases the catalog and the log file.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// runBatch acquires limit images from the cat API and runs op over them.
// Results go to <output>/processed and originals to <output>/originals,
// both below the photo directory unless output is absolute.
func (a *app) runBatch(ctx context.Context, op pipeline.Op, limit int, output string, saveOriginals bool, w io.Writer) error {
	source := catapi.New(a.logger,
		catapi.WithBaseURL(a.cfg.CatAPIURL),
		catapi.WithAPIKey(a.cfg.CatAPIKey),
		catapi.WithTimeout(a.cfg.FetchTimeout),
	)

	opts := []pipeline.Option{
		pipeline.WithWorkers(a.cfg.Workers),
		pipeline.WithPersistLimit(a.cfg.PersistLimit),
	}
	if a.catalog != nil {
		opts = append(opts, pipeline.WithRecorder(a.catalog))
	}

	report, err := pipeline.New(source, a.store, a.logger, opts...).Run(ctx, pipeline.Request{
		Count:         limit,
		Op:            op,
		OutputDir:     output,
		SaveOriginals: saveOriginals,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "run %s: %d requested, %d fetched, %d saved\n", report.RunID, report.Requested, report.Fetched, report.Persisted)
	for _, it := range report.Items {
		fmt.Fprintf(w, "  %3d  %s\n", it.Index, it.Path)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  failed: %v\n", f)
	}
	return nil
}

// runSingle applies op to a local file and saves the result in output.
func (a *app) runSingle(ctx context.Context, op pipeline.Op, path, output string, w io.Writer) error {
	img, err := a.store.Load(path)
	if err != nil {
		return err
	}
	out, err := pipeline.ApplyOp(op, img)
	if err != nil {
		return err
	}
	saved, err := a.store.Save(ctx, out, output)
	if err != nil {
		return err
	}

	if a.catalog != nil {
		err := a.catalog.Record(ctx, catalog.Entry{
			RunID: uuid.NewString(),
			Name:  out.Name(),
			Ext:   out.Ext(),
			Path:  saved,
			Kind:  out.Kind().String(),
			Stage: catalog.StageProcessed,
		})
		if err != nil {
			a.logger.WithError(err).Warn("Failed to record image in catalog")
		}
	}

	a.logger.WithFields(logrus.Fields{"op": op.Name(), "path": saved}).Info("Image processed")
	fmt.Fprintln(w, saved)
	return nil
}
