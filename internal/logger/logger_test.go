package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFieldNames(t *testing.T) {
	log := New("debug")
	var buf bytes.Buffer
	log.Out = &buf

	log.WithField("product_id", "p1").Info("added")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "added", line["message"])
	assert.Equal(t, "info", line["severity"])
	assert.Equal(t, "p1", line["product_id"])
	assert.Contains(t, line, "timestamp")
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, logrus.InfoLevel, New("loud").Level)
	assert.Equal(t, logrus.WarnLevel, New("warn").Level)
}

func TestOrDiscard(t *testing.T) {
	l := New("info")
	assert.Same(t, l, OrDiscard(l))
	assert.NotNil(t, OrDiscard(nil))
}

func TestNewWithOutput_WritesToGivenWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("warn", &buf)

	log.Info("hidden")
	log.Warn("session check failed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "session check failed", line["message"])
	assert.Equal(t, "warning", line["severity"])
}
