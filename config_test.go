package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			port:           8080,
			sessionTimeout: time.Hour,
			dragTimeout:    30 * time.Second,
			maxUpload:      10 << 20,
		}
	}

	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"tls pair", func(c *Config) { c.tlsCert, c.tlsKey = "cert.pem", "key.pem" }, true},
		{"cert without key", func(c *Config) { c.tlsCert = "cert.pem" }, false},
		{"key without cert", func(c *Config) { c.tlsKey = "key.pem" }, false},
		{"port zero", func(c *Config) { c.port = 0 }, false},
		{"port too high", func(c *Config) { c.port = 70000 }, false},
		{"no session timeout", func(c *Config) { c.sessionTimeout = 0 }, false},
		{"negative drag timeout", func(c *Config) { c.dragTimeout = -time.Second }, false},
		{"no uploads", func(c *Config) { c.maxUpload = 0 }, false},
		{"two databases", func(c *Config) { c.dbDSN, c.dbPath = "postgres://x", "x.db" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(&cfg)

			err := cfg.validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestConfigScheme(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, "http", cfg.scheme())

	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"
	assert.Equal(t, "https", cfg.scheme())
}

func TestFlagDefaults(t *testing.T) {
	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.ParseFlags(nil))

	assert.Equal(t, "0.0.0.0", cfg.bind)
	assert.Equal(t, 8080, cfg.port)
	assert.Equal(t, 30*time.Second, cfg.dragTimeout)
	assert.Equal(t, time.Hour, cfg.sessionTimeout)
	assert.Equal(t, int64(10<<20), cfg.maxUpload)
	assert.Equal(t, "blobs", cfg.blobDir)
	assert.NoError(t, cfg.validate())
}

func TestFlagsFromEnvironment(t *testing.T) {
	t.Setenv("PITCHSIDE_PORT", "9090")
	t.Setenv("PITCHSIDE_DRAG_TIMEOUT", "5s")
	t.Setenv("PITCHSIDE_DB_PATH", "/var/lib/pitchside/gallery.db")

	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"--max-upload", "2048"}))

	assert.Equal(t, 9090, cfg.port)
	assert.Equal(t, 5*time.Second, cfg.dragTimeout)
	assert.Equal(t, "/var/lib/pitchside/gallery.db", cfg.dbPath)
	assert.Equal(t, int64(2048), cfg.maxUpload)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("PITCHSIDE_PORT", "9090")

	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"--port", "7070"}))

	assert.Equal(t, 7070, cfg.port)
}
