package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var applicationName = "burst-eval"

// InitLogger sets the global level and routes logs to stderr so stdout only
// carries the report.
func InitLogger(appName, level string) {
	if appName != "" {
		applicationName = appName
	}
	switch strings.ToUpper(level) {
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
	case "PANIC":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	case "DISABLED":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		Panic(fmt.Sprintf("Incorrect log level %s", level), nil)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Str("app", applicationName).Logger()
	Debug("Logger initialized!")
}

func Debug(message string) {
	log.Debug().Msg(message)
}

func Info(message string) {
	log.Info().Msg(message)
}

func Error(message string, err error) {
	log.Error().AnErr("error", err).Msg(message)
}

func Panic(message string, err error) {
	log.Panic().AnErr("error", err).Msg(message)
}
