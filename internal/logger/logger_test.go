package logger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"ms-booking/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterEmitsJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter(&buf)

	l.Info("reconcile", "batch received")
	l.LogBooking("CREATE", "BUSABCD1234", "pending booking stored")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first logger.LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "INFO", first.Level)
	assert.Equal(t, "RECONCILE", first.Category)
	assert.Equal(t, "batch received", first.Message)
	assert.Equal(t, "logger_test.go", first.File)

	var second logger.LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "BOOKING", second.Category)
	assert.Contains(t, second.Message, "BUSABCD1234")
}

func TestSecurityEventsLogAtWarn(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter(&buf)

	l.LogSecurity("WEBHOOK", "bad secret")

	var entry logger.LogEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, "SECURITY", entry.Category)
}
