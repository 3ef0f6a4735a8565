package observe

import (
	"io"

	"github.com/rs/zerolog"
)

// ParseLogLevel maps a configured level name to a zerolog level.
// Unknown and empty names fall back to info.
func ParseLogLevel(s string) zerolog.Level {
	switch s {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a JSON logger writing to w at the given level.
func NewLogger(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(ParseLogLevel(level)).With().Timestamp().Logger()
}

// fetchLogger attaches the fetch's identity to every event.
func fetchLogger(l zerolog.Logger, meta FetchMeta) zerolog.Logger {
	ctx := l.With().Str("key.root", meta.Root)
	if meta.Operation != "" {
		ctx = ctx.Str("key.operation", meta.Operation)
	}
	return ctx.Str("key", meta.Key.String()).Logger()
}
