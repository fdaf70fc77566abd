package warehouse

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"strings"
	"testing"
	"time"

	"github.com/lodthe/sparkify-dwh/internal/transform"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnParams_DSN(t *testing.T) {
	p := ConnParams{
		Host:     "dwhcluster.abc.us-west-2.redshift.amazonaws.com",
		Port:     5439,
		DBName:   "dwh",
		User:     "dwhuser",
		Password: `Pa's\word`,
		SSLMode:  "require",
	}

	assert.Equal(t,
		`host='dwhcluster.abc.us-west-2.redshift.amazonaws.com' port=5439 dbname='dwh' user='dwhuser' password='Pa\'s\\word' sslmode='require' connect_timeout=30`,
		p.DSN(),
	)

	// The driver accepts the quoted form.
	_, err := pq.NewConnector(p.DSN())
	require.NoError(t, err)

	redacted := p.Redacted()
	assert.NotContains(t, redacted, "Pa")
	assert.Contains(t, redacted, "password='XXXXX'")
	assert.Contains(t, redacted, "user='dwhuser'")

	p.SSLMode = ""
	assert.NotContains(t, p.DSN(), "sslmode")
}

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil))

	plain := errors.New("connection reset")
	assert.Equal(t, plain, Classify(plain))

	pqErr := &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
	err := Classify(errors.Wrap(pqErr, "exec"))
	assert.Contains(t, err.Error(), "sqlstate 23505 (unique_violation)")

	var target *pq.Error
	assert.True(t, errors.As(err, &target))
}

func TestSource(t *testing.T) {
	fake := newFakeDB()
	fake.columns[selectUsers] = []string{"userid", "firstname", "lastname", "gender", "level"}
	fake.rows[selectUsers] = [][]driver.Value{
		{"26", "Ryan", "Smith", "M", "free"},
		{"", nil, nil, nil, "free"},
	}
	fake.columns[selectTimestamps] = []string{"ts"}
	fake.rows[selectTimestamps] = [][]driver.Value{
		{[]byte("1541548441796")},
		{nil},
	}
	fake.columns[selectCandidates] = []string{
		"ts", "userid", "level", "sessionid", "location", "useragent", "page", "length",
		"song_id", "title", "artist_id", "year", "duration",
		"artist_name", "artist_location", "artist_latitude", "artist_longitude",
	}
	fake.rows[selectCandidates] = [][]driver.Value{{
		[]byte("1541548441796"), "26", "free", int64(583), "San Jose-Sunnyvale-Santa Clara, CA", "Mozilla/5.0", "NextSong", 269.58322,
		"SOZCTXZ12AB0182364", "Setanta matins", "AR5KOSW1187FB35FF4", int64(0), 269.58322,
		"Elena", "Dubai UAE", 49.80388, nil,
	}}

	db := fake.open()
	defer db.Close()

	src := NewSource(db)
	ctx := context.Background()

	users, err := src.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, sql.NullString{String: "26", Valid: true}, users[0].UserID)
	assert.Equal(t, "Ryan", users[0].FirstName.String)
	assert.Equal(t, sql.NullString{String: "", Valid: true}, users[1].UserID)
	assert.False(t, users[1].FirstName.Valid)

	timestamps, err := src.Timestamps(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1541548441796}, timestamps)

	candidates, err := src.Candidates(ctx, 1.0)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, sql.NullInt64{Int64: 1541548441796, Valid: true}, c.Event.TS)
	assert.Equal(t, "NextSong", c.Event.Page.String)
	assert.Equal(t, int64(583), c.Event.SessionID.Int64)
	assert.Equal(t, "SOZCTXZ12AB0182364", c.Song.SongID.String)
	assert.Equal(t, "AR5KOSW1187FB35FF4", c.Song.ArtistID.String)
	assert.Equal(t, 49.80388, c.Song.ArtistLatitude.Float64)
	assert.False(t, c.Song.ArtistLongitude.Valid)
	assert.True(t, transform.Matches(c, 1.0))

	// The tolerance is passed as a parameter.
	last := fake.statements[len(fake.statements)-1]
	assert.Equal(t, []driver.Value{1.0}, last.args)
}

func TestSource_QueryFailure(t *testing.T) {
	fake := newFakeDB()
	fake.fail = func(string, []driver.Value) error {
		return &pq.Error{Code: "42P01", Message: `relation "staging_events" does not exist`}
	}

	db := fake.open()
	defer db.Close()

	_, err := NewSource(db).Users(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined_table")
}

func TestSink_Upsert(t *testing.T) {
	fake := newFakeDB()
	db := fake.open()
	defer db.Close()

	sink := NewSink(db, SinkConfig{Upsert: true})
	ctx := context.Background()

	require.NoError(t, sink.InsertUser(ctx, transform.User{
		ID:        26,
		FirstName: sql.NullString{String: "Ryan", Valid: true},
	}))

	assert.Equal(t, []string{
		"BEGIN",
		"DELETE FROM users WHERE user_id = $1",
		insertUser,
		"COMMIT",
	}, fake.queries())
	assert.Equal(t, []driver.Value{int64(26)}, fake.statements[1].args)
	assert.Equal(t, []driver.Value{int64(26), "Ryan", nil, nil, nil}, fake.statements[2].args)

	fake.statements = nil
	require.NoError(t, sink.InsertTime(ctx, transform.Decompose(1541548441796, time.UTC)))
	assert.Equal(t, "DELETE FROM time WHERE start_time = $1", fake.queries()[1])
	assert.Equal(t, []driver.Value{"2018-11-06T23:54:01.796000"}, fake.statements[1].args)

	// Songplay rows are never replaced.
	fake.statements = nil
	require.NoError(t, sink.InsertSongplay(ctx, transform.Songplay{StartTime: "2018-11-06T23:54:01.796000", UserID: 26}))
	assert.Equal(t, []string{strings.TrimSpace(insertSongplay)}, fake.queries())
}

func TestSink_Insert(t *testing.T) {
	fake := newFakeDB()
	db := fake.open()
	defer db.Close()

	sink := NewSink(db, SinkConfig{})
	ctx := context.Background()

	require.NoError(t, sink.InsertSong(ctx, transform.Song{ID: sql.NullString{String: "SO1", Valid: true}}))
	require.NoError(t, sink.InsertArtist(ctx, transform.Artist{ID: sql.NullString{String: "AR1", Valid: true}}))

	assert.Equal(t, []string{insertSong, insertArtist}, fake.queries())
}

func TestSink_Failure(t *testing.T) {
	fake := newFakeDB()
	fake.fail = func(query string, _ []driver.Value) error {
		if strings.HasPrefix(query, "INSERT") {
			return &pq.Error{Code: "22001", Message: "value too long for type character varying(18)"}
		}

		return nil
	}

	db := fake.open()
	defer db.Close()

	err := NewSink(db, SinkConfig{Upsert: true}).InsertArtist(context.Background(), transform.Artist{
		ID: sql.NullString{String: "AR5KOSW1187FB35FF4AAAA", Valid: true},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "string_data_right_truncation")
	assert.Equal(t, "ROLLBACK", fake.queries()[len(fake.statements)-1])
}
