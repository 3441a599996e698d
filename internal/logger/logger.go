package logger

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

// Init replaces the package logger. level is one of debug, info, warn, error;
// anything else means info. A nil writer keeps stdout.
func Init(level string, w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	logger = zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: w != os.Stdout}).
		Level(lvl).With().Timestamp().Logger()
}

// Get returns the package logger for callers that want structured fields.
func Get() *zerolog.Logger {
	return &logger
}

var (
	reCredParam = regexp.MustCompile(`(?i)\b(username|password)=([^&\s"]+)`)
	reCredPath  = regexp.MustCompile(`/(live|movie|series|vod|timeshift)/([^/\s"]+)/([^/\s"]+)/`)
)

// Redact masks Xtream credentials in text: the username/password query
// parameters and the user/pass segments of playback paths.
func Redact(s string) string {
	s = reCredParam.ReplaceAllString(s, "$1=***")
	return reCredPath.ReplaceAllString(s, "/$1/***/***/")
}

func Debugf(format string, v ...any) {
	logger.Debug().Msg(Redact(fmt.Sprintf(format, v...)))
}

func Infof(format string, v ...any) {
	logger.Info().Msg(Redact(fmt.Sprintf(format, v...)))
}

func Warnf(format string, v ...any) {
	logger.Warn().Msg(Redact(fmt.Sprintf(format, v...)))
}

func Errorf(format string, v ...any) {
	logger.Error().Msg(Redact(fmt.Sprintf(format, v...)))
}

// Fatalf logs and exits with status 1.
func Fatalf(format string, v ...any) {
	logger.Fatal().Msg(Redact(fmt.Sprintf(format, v...)))
}
