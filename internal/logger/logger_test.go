package logger

import (
	"bytes"
	"testing"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.DEBUG, ParseLevel("DEBUG"))
	assert.Equal(t, log.WARN, ParseLevel("warning"))
	assert.Equal(t, log.ERROR, ParseLevel(" error "))
	assert.Equal(t, log.OFF, ParseLevel("off"))
	assert.Equal(t, log.INFO, ParseLevel("whatever"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New("test", "warn")
	l.SetOutput(&buf)

	l.Info("hidden %d", 1)
	assert.Empty(t, buf.String())

	l.Warn("slot %d stuck", 42)
	assert.Contains(t, buf.String(), "slot 42 stuck")
}
