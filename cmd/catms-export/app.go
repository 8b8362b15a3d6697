package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/margalk/catms/internal/config"
	"github.com/margalk/catms/internal/export"
	"github.com/margalk/catms/internal/exportlog"
	"github.com/margalk/catms/internal/platform/db"
	"github.com/margalk/catms/internal/policy"
	"github.com/margalk/catms/internal/source"
)

// app holds the collaborators shared by the serve and export commands.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	pool     *pgxpool.Pool
	policy   *policy.Policy
	exporter *export.Exporter
	fetcher  export.RowFetcher
	history  exportlog.Recorder
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	fonts := make([]*export.Font, 0, len(cfg.ExportPDFFonts))
	for _, path := range cfg.ExportPDFFonts {
		f, err := export.LoadFont(path)
		if err != nil {
			return nil, fmt.Errorf("EXPORT_PDF_FONTS: %w", err)
		}
		fonts = append(fonts, f)
		logger.Info().Str("font", f.Name).Msg("loaded PDF font")
	}
	a.exporter = export.NewExporter(export.WithLocation(loc), export.WithPDFFonts(fonts...))

	a.policy = policy.Default()
	if cfg.ExportPolicyFile != "" {
		if a.policy, err = policy.Load(cfg.ExportPolicyFile); err != nil {
			return nil, err
		}
		logger.Info().Str("file", cfg.ExportPolicyFile).Msg("loaded export policy")
	}

	if cfg.DatabaseURL != "" {
		a.pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		logger.Info().Msg("connected to database")
	}

	switch cfg.RowsSource {
	case config.SourcePostgres:
		if a.pool == nil {
			return nil, fmt.Errorf("rows source %q needs DATABASE_URL", cfg.RowsSource)
		}
		a.fetcher = source.NewPGFetcher(a.pool)
	default:
		a.fetcher = source.NewRESTFetcher(cfg.BackendURL, cfg.BackendToken, cfg.BackendTimeout)
	}

	if a.pool != nil {
		a.history = exportlog.NewRepoPG(a.pool)
	} else {
		a.history = exportlog.NewLogRecorder(logger)
	}
	return a, nil
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
