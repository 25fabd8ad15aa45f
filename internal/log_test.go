package internal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LogLevelWarn)

	logger.Info("hidden %d", 1)
	logger.Warn("shown %d", 2)
	logger.Error("shown %d", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown 2")
	assert.Contains(t, out, "[ERROR] shown 3")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, LogLevelTrace, ParseLogLevel(" TRACE "))
	assert.Equal(t, LogLevelInfo, ParseLogLevel(""))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("verbose"))
}

func TestProgressLogger(t *testing.T) {
	var buf bytes.Buffer
	progress := NewProgressLogger(NewLoggerTo(&buf, LogLevelDebug), 2)

	progress.Report("indirect evidence", 1, 4)
	progress.Report("indirect evidence", 2, 4)
	progress.Report("indirect evidence", 4, 4)

	out := buf.String()
	assert.NotContains(t, out, "1/4")
	assert.Contains(t, out, "[DEBUG] indirect evidence: 2/4")
	assert.Contains(t, out, "[INFO] indirect evidence: 4/4 complete")
}
