package schema

// Statement is a single DDL statement bound to the table it affects.
type Statement struct {
	Table string
	SQL   string
}

const (
	TableStagingEvents = "staging_events"
	TableStagingSongs  = "staging_songs"
	TableSongplay      = "songplay"
	TableUsers         = "users"
	TableSongs         = "songs"
	TableArtists       = "artists"
	TableTime          = "time"
)

// Tables lists every table in drop and creation order: staging tables first, then the star schema.
var Tables = []string{
	TableStagingEvents,
	TableStagingSongs,
	TableSongplay,
	TableUsers,
	TableSongs,
	TableArtists,
	TableTime,
}

// WarehouseTables are the fact and dimension tables.
var WarehouseTables = []string{TableSongplay, TableUsers, TableSongs, TableArtists, TableTime}

var createStatements = map[string]string{
	// userid is text: guest sessions have an empty id.
	TableStagingEvents: `
		CREATE TABLE staging_events (
			artist        text,
			auth          text,
			firstName     text,
			gender        text,
			itemInSession int,
			lastName      text,
			length        float,
			level         text,
			location      text,
			method        text,
			page          text,
			registration  float,
			sessionid     int,
			song          text,
			status        int,
			ts            numeric,
			userAgent     text,
			userid        text
		)`,

	TableStagingSongs: `
		CREATE TABLE staging_songs (
			num_songs        int,
			artist_id        varchar(18),
			artist_latitude  float,
			artist_longitude float,
			artist_location  text,
			artist_name      text,
			song_id          text,
			title            text,
			duration         float,
			year             int
		)`,

	TableSongplay: `
		CREATE TABLE songplay (
			songplay_id bigint IDENTITY(0,1) PRIMARY KEY,
			start_time  text NOT NULL,
			user_id     int  NOT NULL,
			level       text,
			song_id     text NOT NULL,
			artist_id   text NOT NULL,
			session_id  int  NOT NULL,
			location    text,
			user_agent  text
		)`,

	TableUsers: `
		CREATE TABLE users (
			user_id    int PRIMARY KEY,
			first_name text,
			last_name  text,
			gender     text,
			level      text
		) diststyle all`,

	TableSongs: `
		CREATE TABLE songs (
			song_id   text PRIMARY KEY,
			title     text NOT NULL,
			artist_id text NOT NULL,
			year      int  NOT NULL,
			duration  float
		)`,

	TableArtists: `
		CREATE TABLE artists (
			artist_id text PRIMARY KEY,
			name      text NOT NULL,
			location  text,
			latitude  float,
			longitude float
		) diststyle all`,

	TableTime: `
		CREATE TABLE time (
			start_time text PRIMARY KEY,
			hour       int NOT NULL,
			day        int NOT NULL,
			week       int NOT NULL,
			month      int NOT NULL,
			year       int NOT NULL,
			weekday    int
		)`,
}

// DropStatements returns DROP TABLE IF EXISTS statements for every table.
func DropStatements() []Statement {
	statements := make([]Statement, 0, len(Tables))
	for _, table := range Tables {
		statements = append(statements, Statement{
			Table: table,
			SQL:   "DROP TABLE IF EXISTS " + table,
		})
	}

	return statements
}

// CreateStatements returns CREATE TABLE statements for every table.
func CreateStatements() []Statement {
	statements := make([]Statement, 0, len(Tables))
	for _, table := range Tables {
		statements = append(statements, Statement{
			Table: table,
			SQL:   createStatements[table],
		})
	}

	return statements
}
