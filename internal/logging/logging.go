// Package logging provides the process-wide structured logger. melisai used
// bare log.Printf/fmt.Fprintf(stderr, ...) for its progress and audit lines;
// perf-mcp keeps the same terse messages but routes them through zap so a
// client running the server under a supervisor gets structured fields
// instead of free-form text.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a SugaredLogger that writes JSON lines to stderr. stdout is
// reserved for MCP stdio framing, so logs must never land there.
func New(debug bool) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)

	return zap.New(core).Sugar()
}

// Noop returns a logger that discards everything, for tests.
func Noop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
