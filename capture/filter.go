package capture

import (
	"fmt"
	"strings"
)

// DefaultPorts are the ports HTTP requests are captured on.
var DefaultPorts = []uint16{80, 8080, 443}

// PortsFilter builds a BPF expression matching transport traffic on any of
// ports, in either direction.
//
//	PortsFilter("tcp", []uint16{80, 443}) == "tcp port 80 or tcp port 443"
func PortsFilter(transport string, ports []uint16) string {
	// https://www.tcpdump.org/manpages/pcap-filter.7.html
	if len(ports) == 0 || ports[0] == 0 {
		return fmt.Sprintf("%s portrange 0-%d", transport, 1<<16-1)
	}

	var filters []string
	for _, port := range ports {
		filters = append(filters, fmt.Sprintf("%s port %d", transport, port))
	}
	return strings.Join(filters, " or ")
}
