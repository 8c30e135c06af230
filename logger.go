// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

package mdcollab

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

type LogType string

const (
	LogTypeServer     LogType = "server"     // for server events
	LogTypeClient     LogType = "client"     // for client events
	LogTypeRoom       LogType = "room"       // for room membership changes
	LogTypeBroadcast  LogType = "broadcast"  // for events sent to a whole room
	LogTypeConnection LogType = "connection" // for connection events
	LogTypeMessage    LogType = "message"    // for events sent and received
	LogTypeError      LogType = "error"      // for internal errors and connection errors
	LogTypeRateLimit  LogType = "ratelimit"  // for rate limit events
	LogTypeOther      LogType = "other"      // generic
)

type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

type Logger interface {
	Log(logType LogType, level LogLevel, msg string, args ...interface{})
}

// LoggerConfig pairs a Logger with the maximum level emitted per LogType.
// Types missing from Level are not logged.
type LoggerConfig struct {
	Logger Logger
	Level  map[LogType]LogLevel
}

func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Logger: &DefaultLogger{},
		Level: map[LogType]LogLevel{
			LogTypeServer:     LogLevelInfo,
			LogTypeClient:     LogLevelWarn,
			LogTypeRoom:       LogLevelWarn,
			LogTypeBroadcast:  LogLevelError,
			LogTypeConnection: LogLevelWarn,
			LogTypeMessage:    LogLevelError,
			LogTypeError:      LogLevelError,
			LogTypeRateLimit:  LogLevelWarn,
			LogTypeOther:      LogLevelError,
		},
	}
}

func (c *LoggerConfig) log(logType LogType, level LogLevel, msg string, args ...interface{}) {
	if c == nil || c.Logger == nil {
		return
	}

	lvl, ok := c.Level[logType]
	if !ok {
		lvl = LogLevelNone
	}

	if level <= lvl {
		c.Logger.Log(logType, level, msg, args...)
	}
}

type DefaultLogger struct{}

func (l *DefaultLogger) Log(logType LogType, level LogLevel, msg string, args ...interface{}) {
	prefix := ""
	switch level {
	case LogLevelError:
		prefix = "[ERROR]"
	case LogLevelWarn:
		prefix = "[WARN]"
	case LogLevelInfo:
		prefix = "[INFO]"
	case LogLevelDebug:
		prefix = "[DEBUG]"
	}
	fmt.Printf("%s [%s] %s\n", prefix, logType, fmt.Sprintf(msg, args...))
}

type NullLogger struct{}

func (l *NullLogger) Log(logType LogType, level LogLevel, msg string, args ...interface{}) {}

// ZerologLogger writes structured log lines through zerolog. The log type is
// attached as the "type" field.
type ZerologLogger struct {
	logger zerolog.Logger
}

func NewZerologLogger(w io.Writer) *ZerologLogger {
	return &ZerologLogger{logger: zerolog.New(w).With().Timestamp().Logger()}
}

// WrapZerolog uses an already configured zerolog logger.
func WrapZerolog(l zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: l}
}

func (l *ZerologLogger) Log(logType LogType, level LogLevel, msg string, args ...interface{}) {
	var ev *zerolog.Event
	switch level {
	case LogLevelError:
		ev = l.logger.Error()
	case LogLevelWarn:
		ev = l.logger.Warn()
	case LogLevelInfo:
		ev = l.logger.Info()
	case LogLevelDebug:
		ev = l.logger.Debug()
	default:
		return
	}
	ev.Str("type", string(logType)).Msgf(msg, args...)
}
