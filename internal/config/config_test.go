package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsWithoutConfigFile(t *testing.T) {
	fs := Flags("test")
	require.NoError(t, fs.Parse([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}))

	cfg, err := LoadConfig(fs)
	require.NoError(t, err)

	assert.Equal(t, "SlideGraph", cfg.Application.Name)
	assert.Equal(t, []string{".pptx"}, cfg.Input.Extensions)
	assert.Equal(t, "~$", cfg.Input.SkipPrefix)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.True(t, cfg.Output.CSV)
	assert.Equal(t, "json", cfg.Output.HierarchyFormat)
	assert.Equal(t, "auto", cfg.Extract.Profile)
	assert.Equal(t, "Auto_", cfg.Extract.IDPrefix)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "slidegraph", cfg.Logging.Fields["service"])

	gemini, ok := cfg.AI.Active()
	require.True(t, ok)
	assert.Equal(t, "gemini-2.0-flash", gemini.Model)
}

func TestPrecedence(t *testing.T) {
	path := writeConfig(t, `
output:
  dir: from-file
  hierarchy_format: yaml
extract:
  profile: strict
database:
  driver: postgres
`)
	t.Setenv("SLIDEGRAPH_OUTPUT", "from-env")
	t.Setenv("PG_HOST", "db.local")

	fs := Flags("test")
	require.NoError(t, fs.Parse([]string{"--config", path, "--profile", "transitional"}))

	cfg, err := LoadConfig(fs)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Output.Dir, "environment beats the file")
	assert.Equal(t, "transitional", cfg.Extract.Profile, "flags beat the file")
	assert.Equal(t, "yaml", cfg.Output.HierarchyFormat)
	assert.Equal(t, "db.local", cfg.Database.Host)
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, "extract:\n  profile: loose\n")
	fs := Flags("test")
	require.NoError(t, fs.Parse([]string{"--config", path}))
	_, err := LoadConfig(fs)
	assert.ErrorContains(t, err, "extract.profile")

	fs = Flags("test")
	require.NoError(t, fs.Parse([]string{"--config", path, "--profile", "auto", "--publish"}))
	_, err = LoadConfig(fs)
	assert.ErrorContains(t, err, "publish.bucket")
}

func TestMalformedConfigFile(t *testing.T) {
	path := writeConfig(t, "output: [unclosed\n")
	fs := Flags("test")
	require.NoError(t, fs.Parse([]string{"--config", path}))
	_, err := LoadConfig(fs)
	assert.Error(t, err)
}

func TestGetConnectStr(t *testing.T) {
	lite := DatabaseConfig{Driver: "sqlite", Path: "x.db"}
	assert.Equal(t, "x.db", lite.GetConnectStr())

	pg := DatabaseConfig{Driver: "postgres", User: "u", Password: "p", Host: "h", Port: "5432", DBName: "d", Options: "-c search_path=sg"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable&options=-c%20search_path=sg", pg.GetConnectStr())

	pg.URL = "postgres://override"
	assert.Equal(t, "postgres://override", pg.GetConnectStr())
}
