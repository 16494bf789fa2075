package capture

import (
	"net"
	"strings"

	"github.com/google/gopacket/pcap"
	"github.com/pkg/errors"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/vearne/httpcap/consts"
)

// DeviceLister enumerates capture devices, pcap.FindAllDevs by default.
type DeviceLister func() ([]pcap.Interface, error)

// InterfaceLister reports OS level interface information, psnet.Interfaces
// by default.
type InterfaceLister func() (psnet.InterfaceStatList, error)

// pcap_if_t flag, see pcap/pcap.h
const pcapIfLoopback = 0x00000001

// listDevices returns the capture devices in enumeration order.
func listDevices(lister DeviceLister) ([]pcap.Interface, error) {
	devs, err := lister()
	if err != nil {
		return nil, errors.Wrap(err, "find devices")
	}
	if len(devs) == 0 {
		return nil, consts.ErrNoDevice
	}
	return devs, nil
}

// selectDevice picks the first device that is not a loopback device.
// If name is set the device with that name (or address) is picked instead.
func selectDevice(devs []pcap.Interface, ifis psnet.InterfaceStatList, name string) (pcap.Interface, error) {
	if name != "" {
		for _, dev := range devs {
			if isDevice(name, dev) {
				return dev, nil
			}
		}
		return pcap.Interface{}, errors.Errorf("device %q not found", name)
	}

	for _, dev := range devs {
		if !isLoopback(dev, ifis) {
			return dev, nil
		}
	}
	return pcap.Interface{}, consts.ErrNoNonLoopbackDevice
}

func isDevice(addr string, ifi pcap.Interface) bool {
	if addr == ifi.Name {
		return true
	}
	for _, _addr := range ifi.Addresses {
		if _addr.IP.String() == addr {
			return true
		}
	}
	return false
}

func isLoopback(dev pcap.Interface, ifis psnet.InterfaceStatList) bool {
	if dev.Flags&pcapIfLoopback != 0 {
		return true
	}

	if ni, ok := findInterface(dev, ifis); ok {
		for _, flag := range ni.Flags {
			if flag == "loopback" {
				return true
			}
		}
		return false
	}

	// Windows npcap loopback have no IPs
	if strings.HasSuffix(dev.Name, "NPF_Loopback") {
		return true
	}
	if len(dev.Addresses) == 0 {
		return false
	}
	for _, addr := range dev.Addresses {
		if !addr.IP.IsLoopback() {
			return false
		}
	}
	return true
}

// findInterface matches a pcap device with an OS interface by name, then
// by address. Windows NPF device names never match by name.
func findInterface(dev pcap.Interface, ifis psnet.InterfaceStatList) (psnet.InterfaceStat, bool) {
	for _, ni := range ifis {
		if ni.Name == dev.Name {
			return ni, true
		}
	}
	for _, ni := range ifis {
		for _, a := range ni.Addrs {
			ip := addrIP(a.Addr)
			if ip == nil {
				continue
			}
			for _, pa := range dev.Addresses {
				if ip.Equal(pa.IP) {
					return ni, true
				}
			}
		}
	}
	return psnet.InterfaceStat{}, false
}

// addrIP parses "192.168.1.2/24" or a bare address.
func addrIP(addr string) net.IP {
	if pos := strings.IndexByte(addr, '/'); pos >= 0 {
		addr = addr[:pos]
	}
	return net.ParseIP(addr)
}

// interfaceMTU returns 0 if the interface is unknown.
func interfaceMTU(dev pcap.Interface, ifis psnet.InterfaceStatList) int {
	if ni, ok := findInterface(dev, ifis); ok {
		return ni.MTU
	}
	return 0
}
