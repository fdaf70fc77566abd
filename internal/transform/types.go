package transform

import (
	"context"
	"database/sql"
)

// PageNextSong marks a track-play event. Other pages are navigation, auth and so on.
const PageNextSong = "NextSong"

// StagingUser is a distinct user projection of staging_events.
// UserID is kept as text: guest sessions carry an empty id.
type StagingUser struct {
	UserID    sql.NullString
	FirstName sql.NullString
	LastName  sql.NullString
	Gender    sql.NullString
	Level     sql.NullString
}

// PlayEvent is the part of a staging event used for songplay population.
type PlayEvent struct {
	TS        sql.NullInt64 // milliseconds since epoch
	UserID    sql.NullString
	Level     sql.NullString
	SessionID sql.NullInt64
	Location  sql.NullString
	UserAgent sql.NullString
	Page      sql.NullString
	Length    sql.NullFloat64
}

// CatalogSong is a staging song record.
type CatalogSong struct {
	SongID          sql.NullString
	Title           sql.NullString
	ArtistID        sql.NullString
	Year            sql.NullInt64
	Duration        sql.NullFloat64
	ArtistName      sql.NullString
	ArtistLocation  sql.NullString
	ArtistLatitude  sql.NullFloat64
	ArtistLongitude sql.NullFloat64
}

// Candidate is an event joined with a catalog song of the same title.
type Candidate struct {
	Event PlayEvent
	Song  CatalogSong
}

type User struct {
	ID        int
	FirstName sql.NullString
	LastName  sql.NullString
	Gender    sql.NullString
	Level     sql.NullString
}

type Song struct {
	ID       sql.NullString
	Title    sql.NullString
	ArtistID sql.NullString
	Year     sql.NullInt64
	Duration sql.NullFloat64
}

type Artist struct {
	ID        sql.NullString
	Name      sql.NullString
	Location  sql.NullString
	Latitude  sql.NullFloat64
	Longitude sql.NullFloat64
}

type Time struct {
	StartTime string
	Hour      int
	Day       int
	Week      int
	Month     int
	Year      int
	Weekday   int
}

type Songplay struct {
	StartTime string
	UserID    int
	Level     sql.NullString
	SongID    sql.NullString
	ArtistID  sql.NullString
	SessionID sql.NullInt64
	Location  sql.NullString
	UserAgent sql.NullString
}

// Source reads staging tables.
type Source interface {
	Users(ctx context.Context) ([]StagingUser, error)

	// Candidates returns events joined with catalog songs on title.
	// The duration tolerance may be applied by the source as well, but callers must not rely on it.
	Candidates(ctx context.Context, tolerance float64) ([]Candidate, error)

	// Timestamps returns distinct event timestamps in milliseconds.
	Timestamps(ctx context.Context) ([]int64, error)
}

// Sink writes rows into the warehouse tables.
type Sink interface {
	InsertUser(ctx context.Context, u User) error
	InsertSong(ctx context.Context, s Song) error
	InsertArtist(ctx context.Context, a Artist) error
	InsertTime(ctx context.Context, t Time) error
	InsertSongplay(ctx context.Context, p Songplay) error
}
