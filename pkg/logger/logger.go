package logx

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool `split_words:"true" default:"false"`
	PrettyFormat bool `split_words:"true" default:"true"`
}

// Init configures the global zerolog logger. The pretty console writer is
// the default since this program lives in a terminal session; structured
// JSON is a config flip away for anything scraping stderr.
func Init(conf Config) {
	out := zerolog.New(os.Stderr)
	if conf.PrettyFormat {
		out = zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
		}))
	}

	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
	}

	log.Logger = out.Level(level).With().Timestamp().Logger()
}
