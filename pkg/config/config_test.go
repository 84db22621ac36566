package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	if yaml != "" {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())
	}
	return v
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SKILLGRAPH_BASE_PATH", "/var/lib/skillgraph")

	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)

	assert.Len(t, cfg.Skills.Dirs, 2)
	assert.Equal(t, "./.skillgraph/skills", cfg.Skills.Dirs[0])
	assert.Equal(t, 8, cfg.Skills.Concurrency)
	assert.Equal(t, 3, cfg.Assembly.Alternatives)
	assert.Equal(t, "/var/lib/skillgraph/storage.db", cfg.DB.Path)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Cache.MaxAge)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "ratio", cfg.Tracing.Sampler)
	assert.Equal(t, "localhost", cfg.Serve.Host)
	assert.Equal(t, 8080, cfg.Serve.Port)
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(newViper(t, `
skills:
  dirs: [./catalog]
  allowed: ["acme/*/*", reviewer]
assembly:
  alternatives: 5
cache:
  max_age: 30m
serve:
  port: 9090
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"./catalog"}, cfg.Skills.Dirs)
	assert.Equal(t, []string{"acme/*/*", "reviewer"}, cfg.Skills.Allowed)
	assert.Equal(t, 5, cfg.Assembly.Alternatives)
	assert.Equal(t, 30*time.Minute, cfg.Cache.MaxAge)
	assert.Equal(t, 9090, cfg.Serve.Port)
}

func TestLoad_Profile(t *testing.T) {
	yaml := `
profile: fast
assembly:
  alternatives: 2
profiles:
  fast:
    assembly:
      no_graph: true
    cache:
      max_age: 1h
`
	cfg, err := Load(newViper(t, yaml))
	require.NoError(t, err)
	assert.Equal(t, "fast", cfg.Profile)
	assert.True(t, cfg.Assembly.NoGraph)
	assert.Equal(t, 2, cfg.Assembly.Alternatives)
	assert.Equal(t, time.Hour, cfg.Cache.MaxAge)

	v := newViper(t, yaml)
	v.Set("profile", "default")
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.False(t, cfg.Assembly.NoGraph)

	v.Set("profile", "missing")
	_, err = Load(v)
	assert.ErrorContains(t, err, "profile 'missing' not found")
}

func TestInit_Env(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SKILLGRAPH_ASSEMBLY_ALTERNATIVES", "7")
	t.Setenv("SKILLGRAPH_LOG_LEVEL", "debug")

	v := viper.New()
	require.NoError(t, Init(v))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Assembly.Alternatives)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DB:      DBConfig{Path: "storage.db"},
			Serve:   ServeConfig{Host: "localhost", Port: 8080},
			Tracing: TracingConfig{Sampler: "always"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty db path", func(c *Config) { c.DB.Path = "" }, "db.path"},
		{"negative concurrency", func(c *Config) { c.Skills.Concurrency = -1 }, "skills.concurrency"},
		{"negative max age", func(c *Config) { c.Cache.MaxAge = -time.Second }, "cache.max_age"},
		{"port out of range", func(c *Config) { c.Serve.Port = 70000 }, "serve.port"},
		{"bad sampler", func(c *Config) { c.Tracing.Sampler = "sometimes" }, "tracing.sampler"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
