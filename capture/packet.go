package capture

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	slog "github.com/vearne/simplelog"
)

// NetPkg is the addressing and payload of one TCP/IP frame.
type NetPkg struct {
	SrcIP   string
	DstIP   string
	SrcPort uint16
	DstPort uint16
	Payload []byte
}

func (p *NetPkg) String() string {
	return fmt.Sprintf("%v:%v -> %v:%v, len:%d", p.SrcIP, p.SrcPort,
		p.DstIP, p.DstPort, len(p.Payload))
}

// ParseFrame decodes a link-layer frame. ok is false unless the frame
// carries IPv4 or IPv6, a TCP segment and a non-empty payload.
// The returned payload aliases data.
func ParseFrame(data []byte, linkType layers.LinkType) (p *NetPkg, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("decode frame panic:%v", r)
			p, ok = nil, false
		}
	}()

	packet := gopacket.NewPacket(data, linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})

	var pkg NetPkg
	if ipv4, is := packet.Layer(layers.LayerTypeIPv4).(*layers.IPv4); is {
		pkg.SrcIP = ipv4.SrcIP.String()
		pkg.DstIP = ipv4.DstIP.String()
	} else if ipv6, is := packet.Layer(layers.LayerTypeIPv6).(*layers.IPv6); is {
		pkg.SrcIP = ipv6.SrcIP.String()
		pkg.DstIP = ipv6.DstIP.String()
	} else {
		logDecodeFailure(packet)
		return nil, false
	}

	tcp, is := packet.Layer(layers.LayerTypeTCP).(*layers.TCP)
	if !is {
		logDecodeFailure(packet)
		return nil, false
	}
	if len(tcp.Payload) == 0 {
		return nil, false
	}

	pkg.SrcPort = uint16(tcp.SrcPort)
	pkg.DstPort = uint16(tcp.DstPort)
	pkg.Payload = tcp.Payload
	return &pkg, true
}

func logDecodeFailure(packet gopacket.Packet) {
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		slog.Debug("decode frame error:%v", errLayer.Error())
	}
}
