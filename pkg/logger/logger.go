package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	once        sync.Once
	initialized = false
)

// Init configures the global zerolog logger with a console writer and the
// given level. Safe to call more than once; only the first call applies.
func Init(appName, logLevel string) {
	if initialized {
		log.Debug().Msg("Logger already initialized!")
		return
	}
	if len(appName) == 0 {
		appName = "chemicalx"
	}
	if len(logLevel) == 0 {
		logLevel = "INFO"
	}
	once.Do(func() {
		setLogLevel(logLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "02-01-2006 15:04:05.000",
			FormatLevel: func(i interface{}) string {
				return strings.ToUpper(fmt.Sprintf("%-6s", i))
			},
		})
		log.Logger = log.With().Str("applicationName", appName).Logger()
		initialized = true
		log.Info().Msg("Logger initialized!")
	})
}

func setLogLevel(logLevel string) {
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "INFO":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "WARN":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "ERROR":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "FATAL":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "DISABLED":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		log.Panic().Msgf("Incorrect log level - %s", logLevel)
	}
}
