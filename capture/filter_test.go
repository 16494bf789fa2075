package capture

import (
	"testing"

	"github.com/google/gopacket/pcap"
	"github.com/stretchr/testify/assert"
)

func TestPortsFilter(t *testing.T) {
	assert.Equal(t, "tcp port 80 or tcp port 8080 or tcp port 443", PortsFilter("tcp", DefaultPorts))
	assert.Equal(t, "tcp port 3000", PortsFilter("tcp", []uint16{3000}))
	assert.Equal(t, "tcp portrange 0-65535", PortsFilter("tcp", nil))
	assert.Equal(t, "tcp portrange 0-65535", PortsFilter("tcp", []uint16{0}))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, isTimeout(pcapTimeout()))
	assert.False(t, isTimeout(assert.AnError))
}

func pcapTimeout() error {
	return pcap.NextErrorTimeoutExpired
}
