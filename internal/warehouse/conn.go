package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const DefaultConnectTimeout = 30 * time.Second

// ConnParams describes how to reach the warehouse database.
type ConnParams struct {
	Host     string
	Port     int
	DBName   string
	User     string
	Password string
	SSLMode  string
}

// DSN builds a libpq key/value connection string.
func (p ConnParams) DSN() string {
	return p.dsn(p.Password)
}

// Redacted returns the DSN with the password masked. It is safe to log.
func (p ConnParams) Redacted() string {
	return p.dsn("XXXXX")
}

func (p ConnParams) dsn(password string) string {
	parts := []string{
		"host=" + quoteValue(p.Host),
		fmt.Sprintf("port=%d", p.Port),
		"dbname=" + quoteValue(p.DBName),
		"user=" + quoteValue(p.User),
		"password=" + quoteValue(password),
	}
	if p.SSLMode != "" {
		parts = append(parts, "sslmode="+quoteValue(p.SSLMode))
	}

	parts = append(parts, fmt.Sprintf("connect_timeout=%d", int(DefaultConnectTimeout.Seconds())))

	return strings.Join(parts, " ")
}

var valueEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quoteValue(v string) string {
	return "'" + valueEscaper.Replace(v) + "'"
}

// Execer executes a statement that returns no rows. Both *sql.DB and *sql.Tx implement it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Open connects to the warehouse and verifies the connection.
//
// The pool is limited to a single connection: every statement of the pipeline
// is issued sequentially over one session. The caller must Close the returned db.
func Open(ctx context.Context, logger zerolog.Logger, params ConnParams) (*sql.DB, error) {
	db, err := sql.Open("postgres", params.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open connection")
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(Classify(err), "failed to connect to %s:%d", params.Host, params.Port)
	}

	logger.Info().Str("dsn", params.Redacted()).Msg("connected to the warehouse")

	return db, nil
}

// Classify annotates PostgreSQL wire errors with their SQLSTATE code.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return errors.Wrapf(err, "sqlstate %s (%s)", pqErr.Code, pqErr.Code.Name())
	}

	return err
}
