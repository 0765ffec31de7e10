package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Warn)
	l.Info("should not appear")
	l.Error("should appear: %d", 42)

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear: 42")
	assert.Contains(t, out, "ERROR")
}

func TestWithFieldPrefixes(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Debug)
	fl := l.WithField("file", "a.txt")
	fl.Info("done")

	out := buf.String()
	assert.True(t, strings.Contains(out, "file=a.txt"))
}
