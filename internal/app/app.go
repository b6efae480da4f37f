// Package app wires a pipeline and its sinks from configuration.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gnemet/SlideGraph/internal/ai"
	"github.com/gnemet/SlideGraph/internal/config"
	"github.com/gnemet/SlideGraph/internal/database"
	"github.com/gnemet/SlideGraph/internal/extract"
	"github.com/gnemet/SlideGraph/internal/hierarchy"
	"github.com/gnemet/SlideGraph/internal/metrics"
	"github.com/gnemet/SlideGraph/internal/pipeline"
	"github.com/gnemet/SlideGraph/internal/publish"
	"github.com/gnemet/SlideGraph/internal/report"
	"github.com/gnemet/SlideGraph/internal/table"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type App struct {
	Config   *config.Config
	FS       afero.Fs
	Log      *zap.Logger
	Metrics  *metrics.Metrics
	Pipeline *pipeline.Pipeline

	db     *database.DB
	gemini *ai.Gemini
}

// Extractor builds the extractor selected by cfg.
func Extractor(cfg config.ExtractConfig, log *zap.Logger) (*extract.Extractor, error) {
	opts := []extract.Option{extract.WithLogger(log)}
	if cfg.IDPrefix != "" {
		opts = append(opts, extract.WithIDPrefix(cfg.IDPrefix))
	}
	if cfg.Profile != "" && cfg.Profile != "auto" {
		p, err := extract.ProfileByName(cfg.Profile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, extract.WithProfiles(p))
	}
	return extract.New(opts...), nil
}

// HierarchyOptions returns the rebuild options selected by cfg.
func HierarchyOptions(cfg config.OutputConfig) []hierarchy.Option {
	if cfg.MediaBase == "" {
		return nil
	}
	return []hierarchy.Option{hierarchy.WithMediaBase(cfg.MediaBase)}
}

// New builds the pipeline and every sink cfg enables. On error everything
// opened so far is closed again.
func New(ctx context.Context, cfg *config.Config, fsys afero.Fs, log *zap.Logger) (a *App, err error) {
	ex, err := Extractor(cfg.Extract, log)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	a = &App{
		Config:  cfg,
		FS:      fsys,
		Log:     log,
		Metrics: m,
		Pipeline: pipeline.New(fsys, ex, m, log, pipeline.Options{
			Extensions: cfg.Input.Extensions,
			SkipPrefix: cfg.Input.SkipPrefix,
		}),
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close())
			a = nil
		}
	}()

	out := cfg.Output
	hopts := HierarchyOptions(out)

	var writers []table.Writer
	if out.CSV {
		w, err := table.NewCSVWriter(fsys, out.Dir)
		if err != nil {
			return a, err
		}
		writers = append(writers, w)
	}
	if out.Arrow {
		w, err := table.NewArrowWriter(fsys, out.Dir, nil)
		if err != nil {
			return a, multierr.Append(err, table.NewSink(writers...).Close())
		}
		writers = append(writers, w)
	}
	if len(writers) > 0 {
		a.Pipeline.AddSink("tables", table.NewSink(writers...))
	}

	if out.Hierarchy {
		s, err := hierarchy.NewSink(fsys, filepath.Join(out.Dir, "hierarchy"), out.HierarchyFormat, hopts...)
		if err != nil {
			return a, err
		}
		a.Pipeline.AddSink("hierarchy", s)
	}

	var recorder ai.UsageRecorder
	if cfg.Database.Enabled {
		a.db, err = database.NewConnection(ctx, cfg.Database.Driver, cfg.Database.GetConnectStr(), log)
		if err != nil {
			return a, err
		}
		w, err := database.NewWriter(ctx, a.db, &database.Run{
			ID:        a.Pipeline.RunID(),
			InputPath: cfg.Input.Path,
			StartedAt: time.Now(),
		}, log)
		if err != nil {
			return a, err
		}
		a.Pipeline.AddSink("database", w)
		recorder = w
	}

	if out.Report {
		var summarizer report.Summarizer
		if cfg.AI.Enabled {
			settings, ok := cfg.AI.Active()
			if !ok {
				return a, fmt.Errorf("ai provider %q not configured", cfg.AI.ActiveProvider)
			}
			a.gemini, err = ai.NewGemini(ctx, settings)
			if err != nil {
				return a, err
			}
			summarizer = ai.NewClient(a.gemini, recorder, log)
		}
		s, err := report.NewSink(fsys, filepath.Join(out.Dir, "report"), summarizer, log, hopts...)
		if err != nil {
			return a, err
		}
		a.Pipeline.AddSink("report", s)
	}

	return a, nil
}

// Publish uploads the output directory when publishing is enabled. It must
// be called after Close so every writer has flushed.
func (a *App) Publish(ctx context.Context) error {
	cfg := a.Config.Publish
	if !cfg.Enabled {
		return nil
	}
	client, err := publish.NewS3Client(ctx, cfg)
	if err != nil {
		return err
	}
	_, err = publish.New(client, a.FS, cfg, a.Log).Publish(ctx, a.Config.Output.Dir)
	return err
}

// Close closes every sink and connection and writes the metrics textfile.
func (a *App) Close() error {
	err := a.Pipeline.Close()
	if a.gemini != nil {
		err = multierr.Append(err, a.gemini.Close())
	}
	if a.db != nil {
		err = multierr.Append(err, a.db.Close())
	}
	if tf := a.Config.Metrics.Textfile; tf != "" {
		err = multierr.Append(err, a.Metrics.WriteTextfile(tf))
	}
	return err
}
