package warehouse

import (
	"context"
	"database/sql"

	"github.com/lodthe/sparkify-dwh/internal/transform"

	"github.com/pkg/errors"
)

const (
	insertUser = `INSERT INTO users (user_id, first_name, last_name, gender, level) VALUES ($1, $2, $3, $4, $5)`

	insertSong = `INSERT INTO songs (song_id, title, artist_id, year, duration) VALUES ($1, $2, $3, $4, $5)`

	insertArtist = `INSERT INTO artists (artist_id, name, location, latitude, longitude) VALUES ($1, $2, $3, $4, $5)`

	insertTime = `INSERT INTO time (start_time, hour, day, week, month, year, weekday) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertSongplay = `
		INSERT INTO songplay (start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
)

// Beginner starts a transaction. *sql.DB implements it.
type Beginner interface {
	Execer
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type SinkConfig struct {
	// Upsert replaces a dimension row with the same key instead of inserting a duplicate.
	// The warehouse does not enforce primary keys, so plain inserts keep every copy.
	Upsert bool
}

// Sink writes transformed rows. Each write is committed on its own.
type Sink struct {
	db  Beginner
	cfg SinkConfig
}

func NewSink(db Beginner, cfg SinkConfig) *Sink {
	return &Sink{
		db:  db,
		cfg: cfg,
	}
}

func (s *Sink) InsertUser(ctx context.Context, u transform.User) error {
	return s.write(ctx, "users", "user_id", u.ID, insertUser,
		u.ID, u.FirstName, u.LastName, u.Gender, u.Level)
}

func (s *Sink) InsertSong(ctx context.Context, song transform.Song) error {
	return s.write(ctx, "songs", "song_id", song.ID, insertSong,
		song.ID, song.Title, song.ArtistID, song.Year, song.Duration)
}

func (s *Sink) InsertArtist(ctx context.Context, a transform.Artist) error {
	return s.write(ctx, "artists", "artist_id", a.ID, insertArtist,
		a.ID, a.Name, a.Location, a.Latitude, a.Longitude)
}

func (s *Sink) InsertTime(ctx context.Context, t transform.Time) error {
	return s.write(ctx, "time", "start_time", t.StartTime, insertTime,
		t.StartTime, t.Hour, t.Day, t.Week, t.Month, t.Year, t.Weekday)
}

// InsertSongplay always appends: songplay rows are keyed by an identity column.
func (s *Sink) InsertSongplay(ctx context.Context, p transform.Songplay) error {
	_, err := s.db.ExecContext(ctx, insertSongplay,
		p.StartTime, p.UserID, p.Level, p.SongID, p.ArtistID, p.SessionID, p.Location, p.UserAgent)

	return errors.Wrap(Classify(err), "insert songplay failed")
}

func (s *Sink) write(ctx context.Context, table, keyColumn string, key any, insert string, args ...any) error {
	if !s.cfg.Upsert {
		_, err := s.db.ExecContext(ctx, insert, args...)
		return errors.Wrapf(Classify(err), "insert into %s failed", table)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(Classify(err), "begin failed")
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE "+keyColumn+" = $1", key)
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrapf(Classify(err), "delete from %s failed", table)
	}

	_, err = tx.ExecContext(ctx, insert, args...)
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrapf(Classify(err), "insert into %s failed", table)
	}

	return errors.Wrap(Classify(tx.Commit()), "commit failed")
}
