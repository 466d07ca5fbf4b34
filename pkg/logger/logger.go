package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

type Config struct {
	Debug        bool   `split_words:"true" default:"false"`
	PrettyFormat bool   `split_words:"true" default:"false"`
	Level        string `split_words:"true"`
	Service      string `split_words:"true" default:"callcenter-agent"`
}

var DefaultConfig = &Config{
	Debug:        false,
	PrettyFormat: false,
	Service:      "callcenter-agent",
}

func safe(opts ...Config) *Config {
	if len(opts) == 0 {
		return DefaultConfig
	}
	return &opts[0]
}

func Init(opts ...Config) {
	conf := safe(opts...)
	InitWithWriter(os.Stdout, *conf)
}

// InitWithWriter configures the global logger to write to w.
func InitWithWriter(w io.Writer, conf Config) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	var out io.Writer = w
	if conf.PrettyFormat {
		out = zerolog.ConsoleWriter{Out: w}
	}

	logger := zerolog.New(out).With().Timestamp()
	if conf.Service != "" {
		logger = logger.Str("service", conf.Service)
	}
	log.Logger = logger.Logger().Level(resolveLevel(conf))
	log.Logger = log.Logger.With().Caller().Stack().Logger()
}

func resolveLevel(conf Config) zerolog.Level {
	if lvl := strings.TrimSpace(conf.Level); lvl != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(lvl)); err == nil {
			return parsed
		}
	}
	if conf.Debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
