package schema

import (
	"context"

	"github.com/lodthe/sparkify-dwh/internal/report"
	"github.com/lodthe/sparkify-dwh/internal/warehouse"

	"github.com/rs/zerolog"
)

const (
	StageDrop   = "drop"
	StageCreate = "create"
)

// Manager drops and creates the pipeline tables.
//
// Statements are executed one by one in autocommit mode. A failed statement is logged
// and recorded, the remaining ones are still executed, so a failure can leave the schema
// partially created.
type Manager struct {
	logger zerolog.Logger
	db     warehouse.Execer
}

func NewManager(logger zerolog.Logger, db warehouse.Execer) *Manager {
	return &Manager{
		logger: logger.With().Str("component", "schema").Logger(),
		db:     db,
	}
}

func (m *Manager) Drop(ctx context.Context, res *report.StageResult) {
	m.execute(ctx, res, DropStatements())
}

func (m *Manager) Create(ctx context.Context, res *report.StageResult) {
	m.execute(ctx, res, CreateStatements())
}

// Reset drops and recreates all tables. The result of each phase is attached to the run.
func (m *Manager) Reset(ctx context.Context, run *report.Run) {
	drop := run.Stage(StageDrop)
	m.Drop(ctx, drop)
	drop.Finish()

	create := run.Stage(StageCreate)
	m.Create(ctx, create)
	create.Finish()
}

func (m *Manager) execute(ctx context.Context, res *report.StageResult, statements []Statement) {
	for _, st := range statements {
		_, err := m.db.ExecContext(ctx, st.SQL)
		err = warehouse.Classify(err)
		if err != nil {
			m.logger.Error().Err(err).Str("stage", res.Stage).Str("table", st.Table).Msg("statement failed")
		} else {
			m.logger.Debug().Str("stage", res.Stage).Str("table", st.Table).Msg("statement executed")
		}

		res.Record(st.Table, err)
	}

	m.logger.Info().
		Str("stage", res.Stage).
		Int("succeeded", res.Succeeded).
		Int("failed", res.Failed).
		Msg("statements executed")
}
