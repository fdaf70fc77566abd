package transform

import (
	"context"
	"strconv"
	"time"

	"github.com/lodthe/sparkify-dwh/internal/report"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Stage names in execution order. Dimensions are populated before the fact table.
const (
	StageUsers    = "users"
	StageSongs    = "songs"
	StageArtists  = "artists"
	StageTime     = "time"
	StageSongplay = "songplay"
)

const DefaultDurationTolerance = 1.0

type Config struct {
	// DurationTolerance is the maximum difference in seconds (exclusive) between
	// an event length and a catalog song duration for them to be considered the same track.
	DurationTolerance float64

	// Location is used for timestamp decomposition.
	Location *time.Location
}

// Stage moves data from the staging tables into the star schema.
//
// Every row is inserted independently: a failed insert is logged and recorded,
// and the remaining rows are still processed.
type Stage struct {
	logger zerolog.Logger
	cfg    Config

	src  Source
	sink Sink
}

func NewStage(logger zerolog.Logger, cfg Config, src Source, sink Sink) *Stage {
	if cfg.DurationTolerance <= 0 {
		cfg.DurationTolerance = DefaultDurationTolerance
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	return &Stage{
		logger: logger.With().Str("component", "transform").Logger(),
		cfg:    cfg,
		src:    src,
		sink:   sink,
	}
}

// Run populates users, songs, artists, time and songplay in this order.
// Results are attached to the run. Only context cancellation is returned as an error.
func (s *Stage) Run(ctx context.Context, run *report.Run) error {
	steps := []struct {
		name           string
		fromCandidates bool
		fn             func(ctx context.Context, res *report.StageResult, matched []Candidate) error
	}{
		{StageUsers, false, s.insertUsers},
		{StageSongs, true, s.insertSongs},
		{StageArtists, true, s.insertArtists},
		{StageTime, false, s.insertTime},
		{StageSongplay, true, s.insertSongplays},
	}

	matched, candidatesErr := s.matchedCandidates(ctx)

	for _, step := range steps {
		res := run.Stage(step.name)
		logger := s.logger.With().Str("stage", step.name).Logger()
		logger.Info().Msg("stage started")

		var err error
		if step.fromCandidates && candidatesErr != nil {
			err = candidatesErr
		} else {
			err = step.fn(ctx, res, matched)
		}
		if err != nil {
			logger.Error().Err(err).Msg("failed to read staging rows")
			res.Fail("select", err)
		}

		res.Finish()
		logger.Info().
			Int("attempted", res.Attempted).
			Int("succeeded", res.Succeeded).
			Int("failed", res.Failed).
			Int("skipped", res.Skipped).
			Dur("elapsed", res.Duration()).
			Msg("stage finished")

		if ctx.Err() != nil {
			return errors.Wrapf(ctx.Err(), "interrupted at %s", step.name)
		}
	}

	return nil
}

func (s *Stage) matchedCandidates(ctx context.Context) ([]Candidate, error) {
	candidates, err := s.src.Candidates(ctx, s.cfg.DurationTolerance)
	if err != nil {
		return nil, errors.Wrap(err, "candidates select failed")
	}

	matched := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if Matches(c, s.cfg.DurationTolerance) {
			matched = append(matched, c)
		}
	}

	s.logger.Debug().
		Int("candidates", len(candidates)).
		Int("matched", len(matched)).
		Float64("tolerance", s.cfg.DurationTolerance).
		Msg("song candidates loaded")

	return matched, nil
}

func (s *Stage) insertUsers(ctx context.Context, res *report.StageResult, _ []Candidate) error {
	users, err := s.src.Users(ctx)
	if err != nil {
		return errors.Wrap(err, "users select failed")
	}

	for _, staging := range users {
		if ctx.Err() != nil {
			return nil
		}

		u, ok := toUser(staging)
		if !ok {
			res.Skip()
			continue
		}

		s.record(res, strconv.Itoa(u.ID), s.sink.InsertUser(ctx, u))
	}

	return nil
}

func (s *Stage) insertSongs(ctx context.Context, res *report.StageResult, matched []Candidate) error {
	seen := make(map[Song]struct{})
	for _, c := range matched {
		if ctx.Err() != nil {
			return nil
		}

		song := toSong(c)
		if _, ok := seen[song]; ok {
			continue
		}
		seen[song] = struct{}{}

		s.record(res, song.ID.String, s.sink.InsertSong(ctx, song))
	}

	return nil
}

func (s *Stage) insertArtists(ctx context.Context, res *report.StageResult, matched []Candidate) error {
	seen := make(map[Artist]struct{})
	for _, c := range matched {
		if ctx.Err() != nil {
			return nil
		}

		artist := toArtist(c)
		if _, ok := seen[artist]; ok {
			continue
		}
		seen[artist] = struct{}{}

		s.record(res, artist.ID.String, s.sink.InsertArtist(ctx, artist))
	}

	return nil
}

func (s *Stage) insertTime(ctx context.Context, res *report.StageResult, _ []Candidate) error {
	timestamps, err := s.src.Timestamps(ctx)
	if err != nil {
		return errors.Wrap(err, "timestamps select failed")
	}

	for _, ts := range timestamps {
		if ctx.Err() != nil {
			return nil
		}

		t := Decompose(ts, s.cfg.Location)
		s.record(res, t.StartTime, s.sink.InsertTime(ctx, t))
	}

	return nil
}

func (s *Stage) insertSongplays(ctx context.Context, res *report.StageResult, matched []Candidate) error {
	for _, c := range matched {
		if ctx.Err() != nil {
			return nil
		}

		p, ok := toSongplay(c, s.cfg.Location)
		if !ok {
			res.Skip()
			continue
		}

		s.record(res, p.StartTime+"/"+p.SongID.String, s.sink.InsertSongplay(ctx, p))
	}

	return nil
}

func (s *Stage) record(res *report.StageResult, key string, err error) {
	if err != nil {
		s.logger.Error().Err(err).Str("stage", res.Stage).Str("key", key).Msg("insert failed")
	}

	res.Record(key, err)
}
