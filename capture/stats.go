package capture

import (
	"expvar"

	"github.com/pkg/errors"
	psnet "github.com/shirou/gopsutil/v3/net"
)

var stats *expvar.Map

func init() {
	stats = expvar.NewMap("capture")
	stats.Init()
}

// pcap counters are cumulative for the handle
func pollStats(src Source) {
	h, ok := src.(PcapStatProvider)
	if !ok {
		return
	}
	s, err := h.Stats()
	if err != nil {
		return
	}
	setInt("packets_received", int64(s.PacketsReceived))
	setInt("packets_dropped", int64(s.PacketsDropped))
	setInt("packets_if_dropped", int64(s.PacketsIfDropped))
}

func setInt(key string, value int64) {
	v := new(expvar.Int)
	v.Set(value)
	stats.Set(key, v)
}

// DeviceCounters returns the OS IO counters of the named interface.
func DeviceCounters(name string) (psnet.IOCountersStat, error) {
	counters, err := psnet.IOCounters(true)
	if err != nil {
		return psnet.IOCountersStat{}, errors.Wrap(err, "io counters")
	}
	for _, c := range counters {
		if c.Name == name {
			return c, nil
		}
	}
	return psnet.IOCountersStat{}, errors.Errorf("no io counters for device %q", name)
}
