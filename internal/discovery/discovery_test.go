package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReply(t *testing.T) {
	hostname, port, ok := parseReply("my-laptop:1111")
	assert.True(t, ok)
	assert.Equal(t, "my-laptop", hostname)
	assert.Equal(t, 1111, port)
}

func TestParseReplyRejectsMalformed(t *testing.T) {
	_, _, ok := parseReply("not-a-valid-reply")
	assert.False(t, ok)

	_, _, ok = parseReply("host:notaport")
	assert.False(t, ok)
}

func TestServerStartStop(t *testing.T) {
	s := &Server{ServicePort: 1111}
	if err := s.Start(); err != nil {
		t.Skipf("no UDP socket available in this environment: %v", err)
	}
	s.Stop()
}
