package transform

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	startTimeLayout     = "2006-01-02T15:04:05"
	startTimeLayoutFrac = "2006-01-02T15:04:05.000000"
)

// Matches reports whether the event was a play of the catalog song:
// both durations are known and differ by strictly less than tolerance seconds.
func Matches(c Candidate, tolerance float64) bool {
	if !c.Event.Length.Valid || !c.Song.Duration.Valid {
		return false
	}

	return math.Abs(c.Song.Duration.Float64-c.Event.Length.Float64) < tolerance
}

// ParseUserID returns the integer user id, ok is false for empty or non-numeric ids.
func ParseUserID(raw string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}

	return id, true
}

// FormatStartTime renders the wall clock time in ISO-8601 without an offset.
// Microseconds are printed only when the time has a fractional part.
func FormatStartTime(t time.Time) string {
	if t.Nanosecond() == 0 {
		return t.Format(startTimeLayout)
	}

	return t.Format(startTimeLayoutFrac)
}

// Decompose converts a millisecond epoch timestamp into a time dimension row in the given location.
func Decompose(ts int64, loc *time.Location) Time {
	t := time.UnixMilli(ts).In(loc)
	_, week := t.ISOWeek()

	return Time{
		StartTime: FormatStartTime(t),
		Hour:      t.Hour(),
		Day:       t.Day(),
		Week:      week,
		Month:     int(t.Month()),
		Year:      t.Year(),
		// Monday is 0, Sunday is 6.
		Weekday: (int(t.Weekday()) + 6) % 7,
	}
}

// StartTime returns the time dimension key of a millisecond epoch timestamp.
func StartTime(ts int64, loc *time.Location) string {
	return FormatStartTime(time.UnixMilli(ts).In(loc))
}

func toUser(u StagingUser) (User, bool) {
	if !u.UserID.Valid {
		return User{}, false
	}

	id, ok := ParseUserID(u.UserID.String)
	if !ok {
		return User{}, false
	}

	return User{
		ID:        id,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Gender:    u.Gender,
		Level:     u.Level,
	}, true
}

func toSong(c Candidate) Song {
	return Song{
		ID:       c.Song.SongID,
		Title:    c.Song.Title,
		ArtistID: c.Song.ArtistID,
		Year:     c.Song.Year,
		Duration: c.Song.Duration,
	}
}

func toArtist(c Candidate) Artist {
	return Artist{
		ID:        c.Song.ArtistID,
		Name:      c.Song.ArtistName,
		Location:  c.Song.ArtistLocation,
		Latitude:  c.Song.ArtistLatitude,
		Longitude: c.Song.ArtistLongitude,
	}
}

// toSongplay returns false for events that must not produce a fact row.
func toSongplay(c Candidate, loc *time.Location) (Songplay, bool) {
	e := c.Event
	if !e.Page.Valid || e.Page.String != PageNextSong {
		return Songplay{}, false
	}
	if !e.TS.Valid || !e.UserID.Valid {
		return Songplay{}, false
	}

	userID, ok := ParseUserID(e.UserID.String)
	if !ok {
		return Songplay{}, false
	}

	return Songplay{
		StartTime: StartTime(e.TS.Int64, loc),
		UserID:    userID,
		Level:     e.Level,
		SongID:    c.Song.SongID,
		ArtistID:  c.Song.ArtistID,
		SessionID: e.SessionID,
		Location:  e.Location,
		UserAgent: e.UserAgent,
	}, true
}
