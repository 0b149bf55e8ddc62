package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/tejusbharadwaj/smardexporter/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LoggingConfig
		wantLevel logrus.Level
		wantErr   bool
	}{
		{name: "defaults", cfg: config.LoggingConfig{}, wantLevel: logrus.InfoLevel},
		{name: "debug text stderr", cfg: config.LoggingConfig{Level: "DEBUG", Format: "text", Output: "stderr"}, wantLevel: logrus.DebugLevel},
		{name: "bad level", cfg: config.LoggingConfig{Level: "loud"}, wantErr: true},
		{name: "bad format", cfg: config.LoggingConfig{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, logger)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, logger.GetLevel())
		})
	}
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exporter.log")

	logger, err := New(config.LoggingConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	logger.WithField("slot", "all").Info("cycle complete")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "cycle complete", entry["message"])
	assert.Equal(t, "all", entry["slot"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewRotatingOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exporter.log")

	logger, err := New(config.LoggingConfig{Output: path, MaxAgeDays: 7})
	require.NoError(t, err)

	lj, ok := logger.Out.(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, path, lj.Filename)
	assert.Equal(t, 7, lj.MaxAge)
	require.NoError(t, lj.Close())
}
