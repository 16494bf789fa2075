package capture

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/buger/goreplay/size"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/pkg/errors"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/vearne/httpcap/channel"
	"github.com/vearne/httpcap/consts"
	"github.com/vearne/httpcap/filter"
	"github.com/vearne/httpcap/model"
	"github.com/vearne/httpcap/proto"
	"github.com/vearne/httpcap/status"
	slog "github.com/vearne/simplelog"
)

// Limiter is satisfied by *rate.Limiter.
type Limiter interface {
	Allow() bool
}

// Options configure the engine, see DefaultOptions.
type Options struct {
	// Device overrides automatic device selection, name or address
	Device        string        `json:"device"`
	Ports         []uint16      `json:"ports"`
	Promiscuous   bool          `json:"promisc"`
	ReadTimeout   time.Duration `json:"read-timeout"`
	ImmediateMode bool          `json:"immediate-mode"`
	SnapLen       int           `json:"snaplen"`
	BufferSize    size.Size     `json:"buffer-size"`
	RetryDelay    time.Duration `json:"retry-delay"`
	// MaxReadErrors stops the capture after that many consecutive read
	// errors, 0 retries forever.
	MaxReadErrors int `json:"max-read-errors"`

	Filter  filter.Filter `json:"-"`
	Limiter Limiter       `json:"-"`

	Lister     DeviceLister    `json:"-"`
	Interfaces InterfaceLister `json:"-"`
	Opener     SourceOpener    `json:"-"`
}

func DefaultOptions() Options {
	return Options{
		Ports:         DefaultPorts,
		Promiscuous:   true,
		ReadTimeout:   1000 * time.Millisecond,
		ImmediateMode: true,
		RetryDelay:    100 * time.Millisecond,
	}
}

// Engine captures HTTP requests on a single device. It runs at most once.
type Engine struct {
	opts Options

	running atomic.Bool

	mu      sync.Mutex
	started bool
	done    chan struct{}

	status   *status.Registry
	statusCh *channel.Slot[model.CaptureStatus]
	httpCh   *channel.Slot[*model.HTTPRequest]
}

func NewEngine(opts Options) *Engine {
	if len(opts.Ports) == 0 {
		opts.Ports = DefaultPorts
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 1000 * time.Millisecond
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 100 * time.Millisecond
	}
	if opts.Lister == nil {
		opts.Lister = pcap.FindAllDevs
	}
	if opts.Interfaces == nil {
		opts.Interfaces = psnet.Interfaces
	}
	if opts.Opener == nil {
		opts.Opener = openPcap
	}

	var e Engine
	e.opts = opts
	e.done = make(chan struct{})
	e.statusCh = channel.NewSlot[model.CaptureStatus]("status")
	e.httpCh = channel.NewSlot[*model.HTTPRequest]("http-request")
	e.status = status.New(func(st model.CaptureStatus) {
		e.statusCh.TrySend(st)
	})
	return &e
}

// Init starts the capture worker and returns without waiting for device
// setup. Failures after Init returns are reported through the status.
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return consts.ErrAlreadyInitialized
	}
	if err := e.status.Initialize(); err != nil {
		return err
	}
	e.started = true
	e.running.Store(true)

	go e.startCapture()
	return nil
}

// Stop asks the worker to exit. The worker notices within one read timeout,
// Stop does not wait for it.
func (e *Engine) Stop() error {
	e.running.Store(false)

	e.mu.Lock()
	started := e.started
	e.mu.Unlock()
	if started {
		select {
		case <-e.done:
			slog.Debug("capture worker already exited")
		default:
		}
	}

	e.status.SetStopped(consts.MsgStopped)
	slog.Info("packet capture stop requested")
	return nil
}

func (e *Engine) Status() model.CaptureStatus {
	return e.status.Snapshot()
}

// Running reports whether the capture loop has been asked to keep going.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Initialized reports whether Init has succeeded.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

// Done is closed when the worker exits.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// RegisterStatusChannel replaces the status destination.
func (e *Engine) RegisterStatusChannel(dst channel.Destination[model.CaptureStatus]) {
	e.statusCh.Set(dst)
}

// RegisterRequestChannel replaces the HTTP request destination.
func (e *Engine) RegisterRequestChannel(dst channel.Destination[*model.HTTPRequest]) {
	e.httpCh.Set(dst)
}

func (e *Engine) StatusChannel() channel.Destination[model.CaptureStatus] {
	return e.statusCh.Get()
}

func (e *Engine) RequestChannel() channel.Destination[*model.HTTPRequest] {
	return e.httpCh.Get()
}

// PublishStatus sends the current status to the status destination again,
// in order with the transitions published by the worker.
func (e *Engine) PublishStatus() {
	e.mu.Lock()
	if !e.started {
		// Init waits for e.mu, nothing else can be published meanwhile
		e.statusCh.TrySend(model.NotInitializedStatus())
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	e.status.Update(func(*model.CaptureStatus) {})
}

func (e *Engine) startCapture() {
	defer close(e.done)

	e.status.SetMessage(consts.MsgInitializingCapture)

	src, dev, err := e.setup()
	if err != nil {
		e.fail(err)
		return
	}
	defer src.Close()

	if !e.running.Load() {
		e.status.SetStopped(consts.MsgStopped)
		return
	}
	e.status.Update(func(st *model.CaptureStatus) {
		st.Running = true
		st.Message = consts.MsgCapturing
	})
	slog.Info("capturing on %v, filter:%v", dev, PortsFilter("tcp", e.opts.Ports))

	if err = e.readLoop(src, dev); err != nil {
		e.fail(err)
		return
	}
	e.status.SetStopped(consts.MsgStopped)
	slog.Info("packet capture on %v stopped", dev)
}

func (e *Engine) fail(err error) {
	slog.Error("capture failed, %v", err)
	e.running.Store(false)
	e.status.SetStopped(fmt.Sprintf("%s: %v", consts.MsgCaptureFailed, err))
}

func (e *Engine) setup() (Source, string, error) {
	devs, err := listDevices(e.opts.Lister)
	if err != nil {
		return nil, "", err
	}

	ifis, err := e.opts.Interfaces()
	if err != nil {
		slog.Warn("list interfaces, %v", err)
	}

	dev, err := selectDevice(devs, ifis, e.opts.Device)
	if err != nil {
		return nil, "", err
	}
	slog.Info("selected device %v (%v)", dev.Name, dev.Description)
	e.status.Update(func(st *model.CaptureStatus) {
		st.DeviceName = dev.Name
	})

	src, err := e.opts.Opener(dev, interfaceMTU(dev, ifis), e.opts)
	if err != nil {
		return nil, dev.Name, err
	}

	bpf := PortsFilter("tcp", e.opts.Ports)
	if err = src.SetBPFFilter(bpf); err != nil {
		src.Close()
		return nil, dev.Name, errors.Wrapf(err, "BPF filter %q, interface: %q", bpf, dev.Name)
	}
	return src, dev.Name, nil
}

func (e *Engine) readLoop(src Source, dev string) error {
	linkType := src.LinkType()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var errCount int
	for e.running.Load() {
		select {
		case <-ticker.C:
			pollStats(src)
		default:
		}

		data, _, err := src.ReadPacketData()
		if err != nil {
			if isTimeout(err) {
				continue
			}
			stats.Add("read_errors", 1)
			errCount++
			slog.Error("read packet from %v, %v", dev, err)
			if e.opts.MaxReadErrors > 0 && errCount >= e.opts.MaxReadErrors {
				return errors.Wrapf(err, "%d consecutive read errors", errCount)
			}
			if e.running.Load() {
				time.Sleep(e.opts.RetryDelay)
			}
			continue
		}
		errCount = 0
		e.handleFrame(data, linkType)
	}
	return nil
}

func (e *Engine) handleFrame(data []byte, linkType layers.LinkType) {
	stats.Add("frames_read", 1)

	pkg, ok := ParseFrame(data, linkType)
	if !ok {
		return
	}
	stats.Add("frames_tcp", 1)

	if !proto.IsRequest(pkg.Payload) {
		return
	}
	req, ok := proto.ParseRequest(pkg.Payload)
	if !ok {
		slog.Debug("malformed request line, %v, method:%q, path:%q", pkg,
			proto.Method(pkg.Payload), proto.Path(pkg.Payload))
		return
	}

	ts := uint64(time.Now().Unix())
	req.Timestamp = ts
	req.ID = model.RequestID(ts, pkg.SrcPort)
	req.SrcIP = pkg.SrcIP
	req.SrcPort = pkg.SrcPort
	req.DstIP = pkg.DstIP
	req.DstPort = pkg.DstPort

	if e.opts.Filter != nil {
		if _, ok = e.opts.Filter.Filter(req); !ok {
			stats.Add("requests_filtered", 1)
			return
		}
	}
	if e.opts.Limiter != nil && !e.opts.Limiter.Allow() {
		stats.Add("requests_limited", 1)
		return
	}

	slog.Info("HTTP request %v:%v -> %v:%v %v %v", req.SrcIP, req.SrcPort,
		req.DstIP, req.DstPort, req.Method, req.Path)
	if e.httpCh.TrySend(req) {
		stats.Add("requests_published", 1)
	}
}
