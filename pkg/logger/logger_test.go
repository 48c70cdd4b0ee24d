package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithOutput_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithOutput("debug", "json", &buf))
	t.Cleanup(func() { log = nil })

	WithFields(logrus.Fields{"request_id": "abc"}).Info("hello")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "abc", line["request_id"])
	assert.Equal(t, "info", line["level"])
}

func TestInitWithOutput_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithOutput("chatty", "text", &buf))
	t.Cleanup(func() { log = nil })

	Debug("hidden")
	assert.Zero(t, buf.Len())

	Info("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestHelpers_BeforeInitAreSafe(t *testing.T) {
	log = nil

	assert.NotPanics(t, func() {
		Debug("x")
		Infof("%d", 1)
		Warn("y")
		WithFields(logrus.Fields{"k": "v"}).Info("discarded")
	})
}
