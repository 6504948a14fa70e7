// Copyright 2021 The netsession Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "netfetch.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("empty file keeps defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, ""))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})
	t.Run("all keys", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, `
method = "post"
timeout = "10s"
retries = 0
retry_wait = "250ms"
http3 = true
bearer_token = " tok "

[headers]
User-Agent = "netfetch/1.0"
Accept = "application/json"

[log]
level = "debug"
format = "json"
no_color = true
timestamp = false
file = "/tmp/nf.log"
max_size_mb = 20
max_backups = 3
max_age_days = 2
compress = true
`))
		require.NoError(t, err)
		assert.Equal(t, "POST", cfg.Method)
		assert.Equal(t, 10*time.Second, cfg.Timeout)
		assert.Equal(t, 0, cfg.Retries)
		assert.Equal(t, 250*time.Millisecond, cfg.RetryWait)
		assert.True(t, cfg.HTTP3)
		assert.Equal(t, "tok", cfg.BearerToken)
		assert.Equal(t, map[string]string{"User-Agent": "netfetch/1.0", "Accept": "application/json"}, cfg.Headers)
		assert.Equal(t, zerolog.DebugLevel, cfg.Log.Level)
		assert.True(t, cfg.Log.JSON)
		assert.True(t, cfg.Log.NoColor)
		assert.False(t, cfg.Log.Timestamp)
		assert.Equal(t, "/tmp/nf.log", cfg.Log.File.Path)
		assert.Equal(t, 20, cfg.Log.File.MaxSizeMB)
		assert.Equal(t, 3, cfg.Log.File.MaxBackups)
		assert.Equal(t, 2, cfg.Log.File.MaxAgeDays)
		assert.True(t, cfg.Log.File.Compress)
	})
	t.Run("partial", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, `timeout = "1m"`))
		require.NoError(t, err)
		want := Default()
		want.Timeout = time.Minute
		assert.Equal(t, want, cfg)
	})

	errCases := []struct {
		name     string
		contents string
		msg      string
	}{
		{"bad duration", `timeout = "soon"`, "parse timeout"},
		{"bad retry wait", `retry_wait = "x"`, "parse retry_wait"},
		{"negative retries", `retries = -1`, "parse retries"},
		{"empty method", `method = " "`, "parse method"},
		{"bad level", "[log]\nlevel = \"loud\"", "parse log.level"},
		{"bad format", "[log]\nformat = \"xml\"", "parse log.format"},
		{"unknown key", `colour = "blue"`, "unknown key"},
		{"bad toml", `timeout = `, "load netfetch config"},
	}
	for _, errCase := range errCases {
		t.Run(errCase.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, errCase.contents))
			require.Error(t, err)
			assert.Contains(t, err.Error(), errCase.msg)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
