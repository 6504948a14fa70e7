// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package config loads the TOML configuration file of the netfetch
// command.
//
// Every key is optional; a key absent from the file leaves the default
// in place. Example:
//
//	timeout = "10s"
//	retries = 3
//	retry_wait = "250ms"
//	http3 = false
//	bearer_token = "s3cr3t"
//
//	[headers]
//	User-Agent = "netfetch/1.0"
//
//	[log]
//	level = "debug"
//	format = "json"
//	file = "/var/log/netfetch.log"
//	max_size_mb = 20
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gogama/netsession/internal/logging"
)

// Config is the resolved configuration of a netfetch run.
type Config struct {
	Method      string
	Timeout     time.Duration
	Retries     int
	RetryWait   time.Duration
	HTTP3       bool
	Headers     map[string]string
	BearerToken string
	Log         logging.Config
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Method:    "GET",
		Timeout:   5 * time.Second,
		Retries:   2,
		RetryWait: 100 * time.Millisecond,
		Headers:   map[string]string{},
		Log:       logging.DefaultConfig(),
	}
}

type fileConfig struct {
	Method      string            `toml:"method"`
	Timeout     string            `toml:"timeout"`
	Retries     int               `toml:"retries"`
	RetryWait   string            `toml:"retry_wait"`
	HTTP3       bool              `toml:"http3"`
	Headers     map[string]string `toml:"headers"`
	BearerToken string            `toml:"bearer_token"`
	Log         fileLogConfig     `toml:"log"`
}

type fileLogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	NoColor    bool   `toml:"no_color"`
	Timestamp  bool   `toml:"timestamp"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Load reads the file at path over Default.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load netfetch config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load netfetch config: unknown key %q", undecoded[0].String())
	}
	return apply(Default(), raw, meta)
}

func apply(cfg Config, raw fileConfig, meta toml.MetaData) (Config, error) {
	if meta.IsDefined("method") {
		m := strings.ToUpper(strings.TrimSpace(raw.Method))
		if m == "" {
			return Config{}, errors.New("parse method: empty")
		}
		cfg.Method = m
	}

	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}

	if meta.IsDefined("retries") {
		if raw.Retries < 0 {
			return Config{}, fmt.Errorf("parse retries: negative value %d", raw.Retries)
		}
		cfg.Retries = raw.Retries
	}

	if meta.IsDefined("retry_wait") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.RetryWait))
		if err != nil {
			return Config{}, fmt.Errorf("parse retry_wait: %w", err)
		}
		cfg.RetryWait = d
	}

	if meta.IsDefined("http3") {
		cfg.HTTP3 = raw.HTTP3
	}

	if meta.IsDefined("headers") {
		for k, v := range raw.Headers {
			cfg.Headers[k] = v
		}
	}

	if meta.IsDefined("bearer_token") {
		cfg.BearerToken = strings.TrimSpace(raw.BearerToken)
	}

	return applyLog(cfg, raw.Log, meta)
}

func applyLog(cfg Config, raw fileLogConfig, meta toml.MetaData) (Config, error) {
	if meta.IsDefined("log", "level") {
		lvl, ok := logging.ParseLevel(raw.Level)
		if !ok {
			return Config{}, fmt.Errorf("parse log.level: unknown level %q", raw.Level)
		}
		cfg.Log.Level = lvl
	}

	if meta.IsDefined("log", "format") {
		switch strings.ToLower(strings.TrimSpace(raw.Format)) {
		case "json":
			cfg.Log.JSON = true
		case "console", "text":
			cfg.Log.JSON = false
		default:
			return Config{}, fmt.Errorf("parse log.format: unknown format %q", raw.Format)
		}
	}

	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.NoColor
	}
	if meta.IsDefined("log", "timestamp") {
		cfg.Log.Timestamp = raw.Timestamp
	}
	if meta.IsDefined("log", "file") {
		cfg.Log.File.Path = strings.TrimSpace(raw.File)
	}
	if meta.IsDefined("log", "max_size_mb") {
		cfg.Log.File.MaxSizeMB = raw.MaxSizeMB
	}
	if meta.IsDefined("log", "max_backups") {
		cfg.Log.File.MaxBackups = raw.MaxBackups
	}
	if meta.IsDefined("log", "max_age_days") {
		cfg.Log.File.MaxAgeDays = raw.MaxAgeDays
	}
	if meta.IsDefined("log", "compress") {
		cfg.Log.File.Compress = raw.Compress
	}

	return cfg, nil
}
