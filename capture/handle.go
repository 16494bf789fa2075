package capture

import (
	"github.com/google/gopacket/pcap"
	"github.com/pkg/errors"
	slog "github.com/vearne/simplelog"
)

const permissionHint = "check that you have packet capture permissions and a capture driver installed"

// openPcap returns an activated pcap handle on dev. The BPF filter is not
// installed here.
func openPcap(dev pcap.Interface, mtu int, opts Options) (Source, error) {
	inactive, err := pcap.NewInactiveHandle(dev.Name)
	if err != nil {
		return nil, errors.Wrapf(err, "inactive handle, interface: %q, %s", dev.Name, permissionHint)
	}
	defer inactive.CleanUp()

	if opts.Promiscuous {
		if err = inactive.SetPromisc(true); err != nil {
			return nil, errors.Wrapf(err, "promiscuous mode, interface: %q", dev.Name)
		}
	}

	snap := opts.SnapLen
	if snap <= 0 && mtu > 0 {
		snap = mtu + 200
	}
	if snap <= 0 {
		snap = 64<<10 + 200
	}
	if err = inactive.SetSnapLen(snap); err != nil {
		return nil, errors.Wrapf(err, "snapshot length, interface: %q", dev.Name)
	}

	if opts.BufferSize > 0 {
		if err = inactive.SetBufferSize(int(opts.BufferSize)); err != nil {
			return nil, errors.Wrapf(err, "handle buffer size, interface: %q", dev.Name)
		}
	}
	if err = inactive.SetTimeout(opts.ReadTimeout); err != nil {
		return nil, errors.Wrapf(err, "handle read timeout, interface: %q", dev.Name)
	}
	if opts.ImmediateMode {
		if err = inactive.SetImmediateMode(true); err != nil {
			return nil, errors.Wrapf(err, "immediate mode, interface: %q", dev.Name)
		}
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, errors.Wrapf(err, "activate device, interface: %q, %s", dev.Name, permissionHint)
	}
	slog.Debug("interface:%v, snaplen:%v, timeout:%v, promisc:%v, immediate:%v",
		dev.Name, snap, opts.ReadTimeout, opts.Promiscuous, opts.ImmediateMode)
	return handle, nil
}
