package netinfo

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcastClassC(t *testing.T) {
	ip := net.IPv4(192, 168, 1, 42)
	mask := net.CIDRMask(24, 32)
	bcast := Broadcast(ip, mask)
	assert.Equal(t, "192.168.1.255", bcast.String())
}

func TestBroadcastClassB(t *testing.T) {
	ip := net.IPv4(172, 16, 5, 9)
	mask := net.CIDRMask(16, 32)
	bcast := Broadcast(ip, mask)
	assert.Equal(t, "172.16.255.255", bcast.String())
}

func TestProbeFindsAnInterface(t *testing.T) {
	info, err := Probe()
	if err != nil {
		// environments without a non-loopback interface are acceptable
		assert.ErrorIs(t, err, ErrNoDefaultRoute)
		return
	}
	assert.NotNil(t, info.IPv4)
	assert.NotNil(t, info.Broadcast)
}
