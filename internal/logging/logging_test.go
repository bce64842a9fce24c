package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WithoutHumanLogPath(t *testing.T) {
	logger, err := New("")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNew_WritesToHumanLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.log")
	logger, err := New(path)
	require.NoError(t, err)

	logger.Info("test line")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "test line")
}
