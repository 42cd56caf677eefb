package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("wallet", &buf, LevelInfo)

	log.Info("Balance credited", map[string]interface{}{
		"account": "962895767486464131",
		"error":   errors.New("not really"),
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "wallet", entry["service"])
	assert.Equal(t, "Balance credited", entry["message"])
	assert.Equal(t, "962895767486464131", entry["account"])
	assert.Equal(t, "not really", entry["error"])
}

func TestJSONLoggerDropsBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("wallet", &buf, LevelWarn)

	log.Debug("noise", nil)
	log.Info("noise", nil)
	log.Warn("kept", nil)
	log.Error("kept", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
}

func TestFatalExits(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("wallet", &buf, LevelInfo).(*jsonLogger)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatal("bye", nil)
	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), `"level":"fatal"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}
