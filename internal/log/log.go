// Package log provides the staking node's structured loggers.
//
// One root logger is configured by Init; each subsystem logs through a
// component logger derived from it so every line carries a "component" field.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the root logger.
var Logger zerolog.Logger

// Component loggers.
var (
	Ledger zerolog.Logger
	Host   zerolog.Logger
	RPC    zerolog.Logger
	Node   zerolog.Logger
)

// levels maps accepted level names to zerolog levels.
var levels = map[string]zerolog.Level{
	"debug": zerolog.DebugLevel,
	"info":  zerolog.InfoLevel,
	"warn":  zerolog.WarnLevel,
	"error": zerolog.ErrorLevel,
}

func init() {
	setRoot(New(os.Stdout, "info", false))
}

// Init configures the root logger and rebuilds the component loggers.
// Console output is colored unless jsonOutput is set. When file is non-empty
// every line is also appended to it as JSON.
func Init(level string, jsonOutput bool, file string) error {
	var w io.Writer = consoleWriter(os.Stdout, jsonOutput)
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		w = zerolog.MultiLevelWriter(w, f)
	}
	setRoot(build(w, level))
	return nil
}

// New returns a standalone logger writing to w.
func New(w io.Writer, level string, jsonOutput bool) zerolog.Logger {
	return build(consoleWriter(w, jsonOutput), level)
}

// ValidLevel reports whether level is one of the accepted level names.
func ValidLevel(level string) bool {
	_, ok := levels[level]
	return ok
}

// WithComponent returns a logger with a component field.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// WithAccount derives a logger carrying the staking account's address.
func WithAccount(l zerolog.Logger, addr string) zerolog.Logger {
	return l.With().Str("account", addr).Logger()
}

// Benchmark logs the duration of an operation at debug level when the
// returned func is called.
func Benchmark(name string) func() {
	start := time.Now()
	return func() {
		Logger.Debug().
			Str("operation", name).
			Dur("duration", time.Since(start)).
			Msg("benchmark")
	}
}

func consoleWriter(w io.Writer, jsonOutput bool) io.Writer {
	if jsonOutput {
		return w
	}
	return zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
}

// build creates a timestamped logger. Unknown levels fall back to info.
func build(w io.Writer, level string) zerolog.Logger {
	lvl, ok := levels[level]
	if !ok {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func setRoot(l zerolog.Logger) {
	Logger = l
	Ledger = WithComponent("ledger")
	Host = WithComponent("host")
	RPC = WithComponent("rpc")
	Node = WithComponent("node")
}
