package schema

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/lodthe/sparkify-dwh/internal/report"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTable struct {
	definition string
	rows       int
}

// catalogMock emulates the DDL semantics of the warehouse catalog.
type catalogMock struct {
	tables map[string]*fakeTable

	failTable string
	executed  []string
}

func newCatalogMock() *catalogMock {
	return &catalogMock{tables: map[string]*fakeTable{}}
}

func (c *catalogMock) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	fields := strings.Fields(query)
	c.executed = append(c.executed, strings.Join(fields, " "))

	switch {
	case len(fields) == 5 && strings.Join(fields[:4], " ") == "DROP TABLE IF EXISTS":
		delete(c.tables, fields[4])

	case len(fields) > 3 && strings.Join(fields[:2], " ") == "CREATE TABLE":
		name := fields[2]
		if name == c.failTable {
			return nil, errors.Errorf("permission denied for relation %s", name)
		}
		if _, ok := c.tables[name]; ok {
			return nil, errors.Errorf("relation %q already exists", name)
		}

		c.tables[name] = &fakeTable{definition: strings.Join(fields[3:], " ")}

	default:
		return nil, errors.Errorf("unsupported statement: %s", query)
	}

	return nil, nil
}

func (c *catalogMock) snapshot() map[string]fakeTable {
	s := make(map[string]fakeTable, len(c.tables))
	for name, t := range c.tables {
		s[name] = *t
	}

	return s
}

func testLogger() zerolog.Logger {
	return zlog.Logger.Level(zerolog.ErrorLevel)
}

func TestCatalogue(t *testing.T) {
	drops := DropStatements()
	creates := CreateStatements()
	require.Len(t, drops, 7)
	require.Len(t, creates, 7)

	for i, table := range Tables {
		assert.Equal(t, table, drops[i].Table)
		assert.Equal(t, "DROP TABLE IF EXISTS "+table, drops[i].SQL)

		assert.Equal(t, table, creates[i].Table)
		assert.Contains(t, creates[i].SQL, "CREATE TABLE "+table+" (")
	}

	assert.Contains(t, creates[0].SQL, "userid        text")
	assert.Contains(t, creates[2].SQL, "IDENTITY(0,1)")
}

func TestManager_ResetIsIdempotent(t *testing.T) {
	catalog := newCatalogMock()
	m := NewManager(testLogger(), catalog)
	ctx := context.Background()

	first := report.NewRun("create-tables", 10)
	m.Reset(ctx, first)
	for _, s := range first.Stages {
		assert.True(t, s.OK(), s.Stage)
		assert.Equal(t, 7, s.Succeeded, s.Stage)
	}

	afterFirst := catalog.snapshot()
	require.Len(t, afterFirst, 7)

	// Some data is loaded between the runs.
	for _, table := range Tables {
		catalog.tables[table].rows = 42
	}

	second := report.NewRun("create-tables", 10)
	m.Reset(ctx, second)
	for _, s := range second.Stages {
		assert.True(t, s.OK(), s.Stage)
	}

	afterSecond := catalog.snapshot()
	assert.Equal(t, afterFirst, afterSecond)

	for _, table := range WarehouseTables {
		require.Contains(t, afterSecond, table)
		assert.Zero(t, afterSecond[table].rows, table)
	}
}

func TestManager_ContinuesAfterFailure(t *testing.T) {
	catalog := newCatalogMock()
	catalog.failTable = TableSongs
	m := NewManager(testLogger(), catalog)

	run := report.NewRun("create-tables", 10)
	m.Reset(context.Background(), run)

	require.Len(t, run.Stages, 2)
	create := run.Stages[1]
	assert.Equal(t, StageCreate, create.Stage)
	assert.Equal(t, 7, create.Attempted)
	assert.Equal(t, 1, create.Failed)
	require.Len(t, create.Failures, 1)
	assert.Equal(t, TableSongs, create.Failures[0].Key)

	// Tables after the failed one are still created.
	assert.Contains(t, catalog.tables, TableArtists)
	assert.Contains(t, catalog.tables, TableTime)
	assert.NotContains(t, catalog.tables, TableSongs)
	assert.Len(t, catalog.executed, 14)
}

func TestManager_CreateWithoutDrop(t *testing.T) {
	catalog := newCatalogMock()
	m := NewManager(testLogger(), catalog)
	ctx := context.Background()

	res := report.NewStage(StageCreate, 10)
	m.Create(ctx, res)
	require.True(t, res.OK())

	// Tables already exist.
	res = report.NewStage(StageCreate, 10)
	m.Create(ctx, res)
	assert.Equal(t, 7, res.Failed)
	assert.Len(t, res.Failures, 7)
}
