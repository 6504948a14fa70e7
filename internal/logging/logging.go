// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package logging builds the zerolog loggers used by the netsession
// command line tools.
package logging

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	EnvLogLevel     = "NETSESSION_LOG_LEVEL"
	EnvLogTimestamp = "NETSESSION_LOG_TIMESTAMP"
	EnvLogNoColor   = "NETSESSION_LOG_NOCOLOR"
	EnvLogFormat    = "NETSESSION_LOG_FORMAT"
	EnvLogFile      = "NETSESSION_LOG_FILE"
)

// Config controls the logger built by New.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	// JSON selects JSON lines on the primary output instead of the
	// human readable console format.
	JSON bool
	File FileConfig
}

// FileConfig configures an optional rotated log file which receives
// every event as a JSON line, in addition to the primary output.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultConfig returns the configuration used when neither a config
// file nor the environment says otherwise.
func DefaultConfig() Config {
	return Config{
		Level:     zerolog.WarnLevel,
		Timestamp: true,
		File: FileConfig{
			MaxSizeMB:  10,
			MaxBackups: 1,
			MaxAgeDays: 7,
		},
	}
}

// ApplyEnv overrides cfg with any values set in the environment, as
// read through getenv. Unparseable values are ignored.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if lvl, ok := ParseLevel(getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	switch strings.ToLower(strings.TrimSpace(getenv(EnvLogFormat))) {
	case "json":
		cfg.JSON = true
	case "console", "text":
		cfg.JSON = false
	}
	if path := strings.TrimSpace(getenv(EnvLogFile)); path != "" {
		cfg.File.Path = path
	}
}

// ParseLevel parses a level name. The second return value is false if
// raw is empty or not a level name.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// New returns a logger for app writing to out, plus a Closer releasing
// the log file if one is configured. The Closer is never nil.
func New(app string, out io.Writer, cfg Config) (zerolog.Logger, io.Closer) {
	var primary io.Writer = out
	if !cfg.JSON {
		primary = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		}
	}

	var closer io.Closer = nopCloser{}
	w := primary
	if cfg.File.Path != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    max(cfg.File.MaxSizeMB, 1),
			MaxBackups: max(cfg.File.MaxBackups, 0),
			MaxAge:     max(cfg.File.MaxAgeDays, 0),
			Compress:   cfg.File.Compress,
		}
		w = zerolog.MultiLevelWriter(primary, file)
		closer = file
	}

	ctx := zerolog.New(w).Level(cfg.Level).With().Str("app", app)
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger(), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
