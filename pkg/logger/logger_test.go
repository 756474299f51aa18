package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "DEBUG", "text")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log = New(&buf, "loud", "text")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.Contains(t, buf.String(), "bad log level")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "json")
	log.WithField("currency", "USD").Info("Rate fetched from CNB")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "USD", entry["currency"])
	assert.Equal(t, "Rate fetched from CNB", entry["msg"])
}
