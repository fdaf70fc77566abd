package warehouse

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"strings"
)

type statement struct {
	query string
	args  []driver.Value
}

// fakeDB is an in-memory database/sql driver. It records every statement
// and answers queries with canned rows keyed by the exact query text.
type fakeDB struct {
	statements []statement

	columns map[string][]string
	rows    map[string][][]driver.Value

	// fail returns an error for matching statements.
	fail func(query string, args []driver.Value) error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		columns: map[string][]string{},
		rows:    map[string][][]driver.Value{},
	}
}

func (f *fakeDB) open() *sql.DB {
	return sql.OpenDB(fakeConnector{db: f})
}

func (f *fakeDB) queries() []string {
	var queries []string
	for _, s := range f.statements {
		queries = append(queries, strings.TrimSpace(s.query))
	}

	return queries
}

func (f *fakeDB) record(query string, named []driver.NamedValue) ([]driver.Value, error) {
	args := make([]driver.Value, 0, len(named))
	for _, n := range named {
		args = append(args, n.Value)
	}

	f.statements = append(f.statements, statement{query: query, args: args})
	if f.fail != nil {
		return args, f.fail(query, args)
	}

	return args, nil
}

type fakeConnector struct {
	db *fakeDB
}

func (c fakeConnector) Connect(_ context.Context) (driver.Conn, error) {
	return &fakeConn{db: c.db}, nil
}

func (c fakeConnector) Driver() driver.Driver {
	return fakeDriver{}
}

type fakeDriver struct{}

func (fakeDriver) Open(_ string) (driver.Conn, error) {
	return nil, driver.ErrSkip
}

type fakeConn struct {
	db *fakeDB
}

func (c *fakeConn) Prepare(_ string) (driver.Stmt, error) {
	return nil, driver.ErrSkip
}

func (c *fakeConn) Close() error {
	return nil
}

func (c *fakeConn) Begin() (driver.Tx, error) {
	_, err := c.db.record("BEGIN", nil)
	if err != nil {
		return nil, err
	}

	return &fakeTx{db: c.db}, nil
}

func (c *fakeConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	_, err := c.db.record(query, args)
	if err != nil {
		return nil, err
	}

	return driver.RowsAffected(1), nil
}

func (c *fakeConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	_, err := c.db.record(query, args)
	if err != nil {
		return nil, err
	}

	return &fakeRows{columns: c.db.columns[query], rows: c.db.rows[query]}, nil
}

type fakeTx struct {
	db *fakeDB
}

func (t *fakeTx) Commit() error {
	_, err := t.db.record("COMMIT", nil)
	return err
}

func (t *fakeTx) Rollback() error {
	_, err := t.db.record("ROLLBACK", nil)
	return err
}

type fakeRows struct {
	columns []string
	rows    [][]driver.Value
	pos     int
}

func (r *fakeRows) Columns() []string {
	return r.columns
}

func (r *fakeRows) Close() error {
	return nil
}

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}

	copy(dest, r.rows[r.pos])
	r.pos++

	return nil
}
