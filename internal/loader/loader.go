package loader

import (
	"context"
	"time"

	"github.com/lodthe/sparkify-dwh/internal/report"
	"github.com/lodthe/sparkify-dwh/internal/schema"
	"github.com/lodthe/sparkify-dwh/internal/warehouse"

	"github.com/rs/zerolog"
)

const StageLoad = "load"

type Config struct {
	IAMRoleARN string
	Region     string

	LogData     string
	LogJSONPath string
	SongData    string

	NoLoad bool
}

// Loader bulk loads staging tables from object storage.
//
// Each COPY is a separate autocommitted statement. A failed COPY is logged and recorded,
// the next one is still issued. Row counts are not validated.
type Loader struct {
	logger zerolog.Logger
	cfg    Config

	db        warehouse.Execer
	inventory *Inventory
}

// NewLoader creates a loader. Source inspection is skipped when inventory is nil.
func NewLoader(logger zerolog.Logger, cfg Config, db warehouse.Execer, inventory *Inventory) *Loader {
	return &Loader{
		logger:    logger.With().Str("component", "loader").Logger(),
		cfg:       cfg,
		db:        db,
		inventory: inventory,
	}
}

// Specs returns the COPY specs in execution order: events, then songs.
func (l *Loader) Specs() []CopySpec {
	return []CopySpec{
		{
			Table:      schema.TableStagingEvents,
			Source:     l.cfg.LogData,
			IAMRoleARN: l.cfg.IAMRoleARN,
			Region:     l.cfg.Region,
			JSONPath:   l.cfg.LogJSONPath,
			NoLoad:     l.cfg.NoLoad,
		},
		{
			Table:      schema.TableStagingSongs,
			Source:     l.cfg.SongData,
			IAMRoleARN: l.cfg.IAMRoleARN,
			Region:     l.cfg.Region,
			NoLoad:     l.cfg.NoLoad,
		},
	}
}

// Load issues the COPY statements and attaches the result to the run.
func (l *Loader) Load(ctx context.Context, run *report.Run) {
	res := run.Stage(StageLoad)
	defer res.Finish()

	if l.inventory != nil {
		l.preflight(ctx)
	}

	for _, spec := range l.Specs() {
		if ctx.Err() != nil {
			return
		}

		l.logger.Info().
			Str("table", spec.Table).
			Str("source", spec.Source).
			Bool("noload", spec.NoLoad).
			Msg("copy started")

		startedAt := time.Now()
		_, err := l.db.ExecContext(ctx, CopyStatement(spec))
		err = warehouse.Classify(err)
		if err != nil {
			l.logger.Error().Err(err).Str("table", spec.Table).Msg("copy failed")
		} else {
			l.logger.Info().Str("table", spec.Table).Dur("elapsed", time.Since(startedAt)).Msg("copy finished")
		}

		res.Record(spec.Table, err)
	}
}

// preflight logs what is going to be loaded. Problems are reported as warnings only.
func (l *Loader) preflight(ctx context.Context) {
	for _, spec := range l.Specs() {
		summary, err := l.inventory.Summarize(ctx, spec.Source)
		if err != nil {
			l.logger.Warn().Err(err).Str("table", spec.Table).Msg("failed to inspect the source")
			continue
		}

		if summary.Objects == 0 {
			l.logger.Warn().Str("table", spec.Table).Str("source", spec.Source).Msg("source prefix is empty")
			continue
		}

		l.logger.Info().
			Str("table", spec.Table).
			Str("source", spec.Source).
			Int("objects", summary.Objects).
			Int64("bytes", summary.Bytes).
			Msg("source inspected")
	}

	if l.cfg.LogJSONPath == "" {
		return
	}

	size, err := l.inventory.Size(ctx, l.cfg.LogJSONPath)
	if err != nil {
		l.logger.Warn().Err(err).Str("jsonpath", l.cfg.LogJSONPath).Msg("jsonpaths file is not accessible")
		return
	}

	l.logger.Debug().Str("jsonpath", l.cfg.LogJSONPath).Int64("bytes", size).Msg("jsonpaths file found")
}
