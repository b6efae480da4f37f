package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesJSONWithFields(t *testing.T) {
	out := filepath.Join(t.TempDir(), "log.json")
	logger, err := New(Config{
		Level:      "debug",
		Format:     "json",
		OutputPath: out,
		Fields:     map[string]string{"service": "slidegraph"},
	})
	require.NoError(t, err)

	logger.Debug("part extracted", zap.String("part", "slide1.xml"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"slidegraph"`)
	assert.Contains(t, string(data), `"part":"slide1.xml"`)
}

func TestBadLevelFallsBackToInfo(t *testing.T) {
	logger, err := New(Config{Level: "loud", OutputPath: filepath.Join(t.TempDir(), "x.log")})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
}
