package warehouse

import (
	"context"
	"database/sql"
	"math"

	"github.com/lodthe/sparkify-dwh/internal/transform"

	"github.com/pkg/errors"
)

const (
	selectUsers = `
		SELECT DISTINCT userid, firstName, lastName, gender, level
		FROM staging_events`

	// The duration predicate only narrows the transferred rows.
	// The authoritative match is transform.Matches.
	selectCandidates = `
		SELECT se.ts, se.userid, se.level, se.sessionid, se.location, se.userAgent, se.page, se.length,
		       ss.song_id, ss.title, ss.artist_id, ss.year, ss.duration,
		       ss.artist_name, ss.artist_location, ss.artist_latitude, ss.artist_longitude
		FROM staging_events se
		JOIN staging_songs ss ON se.song = ss.title
		WHERE abs(ss.duration - se.length) < $1`

	selectTimestamps = `
		SELECT DISTINCT ts
		FROM staging_events
		WHERE ts IS NOT NULL`
)

// Querier runs a query that returns rows. Both *sql.DB and *sql.Tx implement it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Source reads staging tables.
type Source struct {
	db Querier
}

func NewSource(db Querier) *Source {
	return &Source{db: db}
}

func (s *Source) Users(ctx context.Context) ([]transform.StagingUser, error) {
	rows, err := s.db.QueryContext(ctx, selectUsers)
	if err != nil {
		return nil, errors.Wrap(Classify(err), "select users failed")
	}
	defer rows.Close()

	var users []transform.StagingUser
	for rows.Next() {
		var u transform.StagingUser
		err = rows.Scan(&u.UserID, &u.FirstName, &u.LastName, &u.Gender, &u.Level)
		if err != nil {
			return nil, errors.Wrap(err, "scan failed")
		}

		users = append(users, u)
	}

	return users, errors.Wrap(Classify(rows.Err()), "rows iteration failed")
}

func (s *Source) Candidates(ctx context.Context, tolerance float64) ([]transform.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, selectCandidates, tolerance)
	if err != nil {
		return nil, errors.Wrap(Classify(err), "select candidates failed")
	}
	defer rows.Close()

	var candidates []transform.Candidate
	for rows.Next() {
		var c transform.Candidate
		var ts sql.NullFloat64
		err = rows.Scan(
			&ts, &c.Event.UserID, &c.Event.Level, &c.Event.SessionID, &c.Event.Location,
			&c.Event.UserAgent, &c.Event.Page, &c.Event.Length,
			&c.Song.SongID, &c.Song.Title, &c.Song.ArtistID, &c.Song.Year, &c.Song.Duration,
			&c.Song.ArtistName, &c.Song.ArtistLocation, &c.Song.ArtistLatitude, &c.Song.ArtistLongitude,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan failed")
		}

		c.Event.TS = millis(ts)
		candidates = append(candidates, c)
	}

	return candidates, errors.Wrap(Classify(rows.Err()), "rows iteration failed")
}

func (s *Source) Timestamps(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, selectTimestamps)
	if err != nil {
		return nil, errors.Wrap(Classify(err), "select timestamps failed")
	}
	defer rows.Close()

	var timestamps []int64
	for rows.Next() {
		var ts sql.NullFloat64
		err = rows.Scan(&ts)
		if err != nil {
			return nil, errors.Wrap(err, "scan failed")
		}

		if ms := millis(ts); ms.Valid {
			timestamps = append(timestamps, ms.Int64)
		}
	}

	return timestamps, errors.Wrap(Classify(rows.Err()), "rows iteration failed")
}

// millis converts the numeric ts column. The driver returns numeric values as text,
// so they are scanned as floats, which represent millisecond epochs exactly.
func millis(ts sql.NullFloat64) sql.NullInt64 {
	if !ts.Valid {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: int64(math.Round(ts.Float64)), Valid: true}
}
