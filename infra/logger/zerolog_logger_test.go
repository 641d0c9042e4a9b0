package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	require.NotNil(t, l)
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Infow("info", map[string]any{"k": "v"})
	l.Warnf("warn")
	l.Errorf("error")
}

func TestZerologLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLoggerWithWriter("planner", &buf, zerolog.InfoLevel)
	l.Infow("plan ready", map[string]any{"slots": 96})
	l.Debugf("filtered out")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "planner", entry["component"])
	assert.Equal(t, "plan ready", entry["message"])
	assert.EqualValues(t, 96, entry["slots"])
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, zerolog.DebugLevel, levelFromEnv())
	t.Setenv("LOG_LEVEL", "bogus")
	assert.Equal(t, zerolog.InfoLevel, levelFromEnv())
}

func TestSetupWritesToFile(t *testing.T) {
	t.Setenv("APP_ENV", "")
	path := filepath.Join(t.TempDir(), "hems.log")
	closer, err := Setup(Options{Level: "warn", File: path})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = closer.Close()
		mu.Lock()
		output, level = nil, nil
		mu.Unlock()
	})

	l := New("engine")
	l.Infof("dropped")
	l.Warnf("charger %s", "offline")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "dropped")
	assert.Contains(t, string(b), `"message":"charger offline"`)
	assert.Contains(t, string(b), `"component":"engine"`)
}

func TestSetupRejectsLevel(t *testing.T) {
	_, err := Setup(Options{Level: "loud"})
	require.Error(t, err)
	mu.Lock()
	output, level = nil, nil
	mu.Unlock()
}
