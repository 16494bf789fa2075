package capture

import (
	"errors"
	"net"
	"testing"

	"github.com/google/gopacket/pcap"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearne/httpcap/consts"
)

func TestListDevices(t *testing.T) {
	_, err := listDevices(func() ([]pcap.Interface, error) { return nil, nil })
	assert.ErrorIs(t, err, consts.ErrNoDevice)

	_, err = listDevices(func() ([]pcap.Interface, error) { return nil, errors.New("boom") })
	assert.ErrorContains(t, err, "boom")

	devs, err := listDevices(func() ([]pcap.Interface, error) {
		return []pcap.Interface{loDevice, ethDevice}, nil
	})
	require.NoError(t, err)
	assert.Len(t, devs, 2)
}

func TestSelectDeviceFirstNonLoopback(t *testing.T) {
	second := pcap.Interface{Name: "eth-second", Addresses: []pcap.InterfaceAddress{{IP: net.IPv4(192, 0, 2, 11)}}}
	dev, err := selectDevice([]pcap.Interface{loDevice, ethDevice, second}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "eth-test", dev.Name)

	_, err = selectDevice([]pcap.Interface{loDevice}, nil, "")
	assert.ErrorIs(t, err, consts.ErrNoNonLoopbackDevice)
}

func TestIsLoopback(t *testing.T) {
	ifis := psnet.InterfaceStatList{
		{Name: "lo0", MTU: 16384, Flags: []string{"up", "loopback", "multicast"}, Addrs: psnet.InterfaceAddrList{{Addr: "127.0.0.1/8"}}},
		{Name: "en0", MTU: 1500, Flags: []string{"up", "broadcast", "multicast"}, Addrs: psnet.InterfaceAddrList{{Addr: "192.0.2.20/24"}}},
	}

	cases := []struct {
		dev    pcap.Interface
		expect bool
	}{
		{pcap.Interface{Name: "lo0"}, true},
		{pcap.Interface{Name: "en0"}, false},
		{pcap.Interface{Name: "any", Flags: pcapIfLoopback}, true},
		// npcap names only match by address
		{pcap.Interface{Name: `\Device\NPF_{ABCD}`, Addresses: []pcap.InterfaceAddress{{IP: net.IPv4(127, 0, 0, 1)}}}, true},
		{pcap.Interface{Name: `\Device\NPF_{EF01}`, Addresses: []pcap.InterfaceAddress{{IP: net.IPv4(192, 0, 2, 20)}}}, false},
		{pcap.Interface{Name: `\Device\NPF_Loopback`}, true},
		{pcap.Interface{Name: "unknown0", Addresses: []pcap.InterfaceAddress{{IP: net.IPv6loopback}}}, true},
		{pcap.Interface{Name: "unknown1", Addresses: []pcap.InterfaceAddress{{IP: net.IPv6loopback}, {IP: net.IPv4(198, 51, 100, 1)}}}, false},
		{pcap.Interface{Name: "nflog"}, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.expect, isLoopback(c.dev, ifis), c.dev.Name)
	}
}

func TestInterfaceMTU(t *testing.T) {
	ifis := psnet.InterfaceStatList{
		{Name: "en0", MTU: 1500, Addrs: psnet.InterfaceAddrList{{Addr: "fe80::1/64"}, {Addr: "192.0.2.20/24"}}},
	}
	assert.Equal(t, 1500, interfaceMTU(pcap.Interface{Name: "en0"}, ifis))
	assert.Equal(t, 1500, interfaceMTU(pcap.Interface{Name: "npf", Addresses: []pcap.InterfaceAddress{{IP: net.ParseIP("192.0.2.20")}}}, ifis))
	assert.Equal(t, 0, interfaceMTU(pcap.Interface{Name: "other"}, ifis))
}

func TestAddrIP(t *testing.T) {
	assert.Equal(t, "192.0.2.1", addrIP("192.0.2.1/24").String())
	assert.Equal(t, "fe80::1", addrIP("fe80::1").String())
	assert.Nil(t, addrIP("not-an-ip"))
}
