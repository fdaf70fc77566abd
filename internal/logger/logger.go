package logger

import (
	"os"

	"github.com/lodthe/sparkify-dwh/internal/config"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Setup configures the global logger from the [LOG] section and returns it.
// An invalid level is fatal: nothing should run with a misconfigured logger.
func Setup(cfg config.Log) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if cfg.Format == config.PrettyLogFormat {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		zlog.Fatal().Err(err).Msg("invalid log level")
	}

	zlog.Logger = zlog.Logger.Level(lvl)

	return zlog.Logger
}
