package capture

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// Source is an activated capture handle. *pcap.Handle implements it.
type Source interface {
	ReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error)
	LinkType() layers.LinkType
	SetBPFFilter(expr string) error
	Close()
}

type PcapStatProvider interface {
	Stats() (*pcap.Stats, error)
}

// SourceOpener activates a Source on dev. mtu is 0 when unknown.
type SourceOpener func(dev pcap.Interface, mtu int, opts Options) (Source, error)

var _ Source = (*pcap.Handle)(nil)

// isTimeout reports a read that returned because the read timeout expired
// with no matching frame.
func isTimeout(err error) bool {
	if enext, ok := err.(pcap.NextError); ok && enext == pcap.NextErrorTimeoutExpired {
		return true
	}
	if t, ok := err.(interface{ Timeout() bool }); ok && t.Timeout() {
		return true
	}
	return false
}
