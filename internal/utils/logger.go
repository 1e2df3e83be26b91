package utils

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var logger zerolog.Logger

// InitLogger configures the global logger: console output plus an optional
// size-rotated log file.
func InitLogger(file string, maxSizeMB, maxBackups, maxAgeDays int, compress bool, level string) {
	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}}
	if file != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   compress,
		})
	}
	logger = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()
	SetLogLevel(level)
}

// SetLogLevel applies the given level globally. Unknown levels fall back to info.
func SetLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// SetLoggerForTest replaces the global logger. Tests only.
func SetLoggerForTest(l zerolog.Logger) {
	logger = l
}

// emit attaches key/value pairs to the event. A dangling key without a value
// is silently dropped.
func emit(e *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}

func Debug(msg string, kv ...interface{}) { emit(logger.Debug(), msg, kv) }

func Info(msg string, kv ...interface{}) { emit(logger.Info(), msg, kv) }

func Warn(msg string, kv ...interface{}) { emit(logger.Warn(), msg, kv) }

func Error(msg string, kv ...interface{}) { emit(logger.Error(), msg, kv) }
