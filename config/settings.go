// Package config 包含 httpcap 的配置管理相关功能。
// 该包定义了应用程序的配置结构和命令行参数的绑定。
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/buger/goreplay/size"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vearne/httpcap/capture"
	"github.com/vearne/httpcap/protocol"
)

// PortsOption 实现了可以接受多个端口的命令行参数。
// 同一个参数既可以多次指定，也可以用逗号分隔。
// 例如：--port=80 --port=8080,443
type PortsOption struct {
	Params  *[]uint16 // 指向存储所有端口的切片的指针
	changed bool
}

func (h *PortsOption) String() string {
	if h.Params == nil {
		return ""
	}
	return fmt.Sprint(*h.Params)
}

// Set gets called multiple times for each flag with same name
func (h *PortsOption) Set(value string) error {
	if h.Params == nil {
		return nil
	}
	// the first value replaces the defaults
	if !h.changed {
		*h.Params = nil
		h.changed = true
	}
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		port, err := strconv.ParseUint(item, 10, 16)
		if err != nil || port == 0 {
			return errors.Errorf("invalid port %q", item)
		}
		*h.Params = append(*h.Params, uint16(port))
	}
	return nil
}

func (h *PortsOption) Type() string {
	return "ports"
}

// SizeOption 让 size.Size 可以作为 pflag 参数使用，支持 "4mb"、"512kb" 这样的写法。
type SizeOption struct {
	*size.Size
}

func (s SizeOption) Type() string {
	return "size"
}

// AppSettings 是主配置结构体，包含了 httpcap 应用程序的所有配置选项。
// 该结构体的字段对应于命令行参数，包括抓包参数、输出目标、过滤器、限流器等配置。
type AppSettings struct {
	ExitAfter time.Duration `json:"exit-after"`
	Verbose   bool          `json:"verbose"`

	// ######################## capture #######################
	// empty means the first non-loopback device
	Device        string        `json:"device"`
	Ports         []uint16      `json:"port"`
	Promiscuous   bool          `json:"promisc"`
	ImmediateMode bool          `json:"immediate-mode"`
	ReadTimeout   time.Duration `json:"read-timeout"`
	SnapLen       int           `json:"snaplen"`
	BufferSize    size.Size     `json:"buffer-size"`
	RetryDelay    time.Duration `json:"retry-delay"`
	// 0 means retry forever
	MaxReadErrors int `json:"max-read-errors"`

	// ######################## output ########################
	OutputStdout bool `json:"output-stdout"`

	// --- output kafka ---
	OutputKafkaHost      string `json:"output-kafka-host"`
	OutputKafkaTopic     string `json:"output-kafka-topic"`
	OutputKafkaUseSASL   bool   `json:"output-kafka-use-sasl"`
	OutputKafkaMechanism string `json:"output-kafka-mechanism"`
	OutputKafkaUsername  string `json:"output-kafka-username"`
	OutputKafkaPassword  string `json:"output-kafka-password"`

	// --- api ---
	// address of the HTTP/websocket api, empty disables it
	HTTPAddr string `json:"http-addr"`
	// browser origins allowed to use the api besides its own
	AllowedOrigins []string `json:"allowed-origin"`

	// --- filter ---
	IncludeFilterMethodMatch string   `json:"include-filter-method-match"`
	IncludeFilterHostMatch   string   `json:"include-filter-host-match"`
	ExcludeFilterPath        []string `json:"exclude-filter-path"`

	// --- rate limit ---
	// Query per second
	RateLimitQPS int `json:"rate-limit-qps"`

	// --- other ---
	Codec string `json:"codec"`
}

func NewAppSettings() AppSettings {
	opts := capture.DefaultOptions()
	return AppSettings{
		Ports:         append([]uint16(nil), opts.Ports...),
		Promiscuous:   opts.Promiscuous,
		ImmediateMode: opts.ImmediateMode,
		ReadTimeout:   opts.ReadTimeout,
		RetryDelay:    opts.RetryDelay,
		Codec:         protocol.CodecSimpleName,
	}
}

func (s *AppSettings) BindFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&s.ExitAfter, "exit-after", s.ExitAfter, "exit after specified duration")
	cmd.Flags().BoolVar(&s.Verbose, "verbose", s.Verbose, "enable debug logging")

	// capture
	cmd.Flags().StringVar(&s.Device, "device", s.Device,
		"capture on this device (name or address) instead of the first non-loopback one")
	cmd.Flags().Var(&PortsOption{Params: &s.Ports}, "port",
		`TCP ports to capture HTTP requests on, repeatable or comma separated
                httpcap --port=80 --port=8080,443`)
	cmd.Flags().BoolVar(&s.Promiscuous, "promisc", s.Promiscuous, "open the device in promiscuous mode")
	cmd.Flags().BoolVar(&s.ImmediateMode, "immediate-mode", s.ImmediateMode, "deliver packets without buffering")
	cmd.Flags().DurationVar(&s.ReadTimeout, "read-timeout", s.ReadTimeout,
		"pcap read timeout, also bounds how long a stop takes to be noticed")
	cmd.Flags().IntVar(&s.SnapLen, "snaplen", s.SnapLen, "snapshot length, 0 means interface MTU + 200")
	cmd.Flags().Var(SizeOption{&s.BufferSize}, "buffer-size", `pcap buffer size, e.g. "4mb", 0 keeps the OS default`)
	cmd.Flags().DurationVar(&s.RetryDelay, "retry-delay", s.RetryDelay, "sleep between retries after a read error")
	cmd.Flags().IntVar(&s.MaxReadErrors, "max-read-errors", s.MaxReadErrors,
		"give up after this many consecutive read errors, 0 retries forever")

	// output
	cmd.Flags().BoolVar(&s.OutputStdout, "output-stdout", s.OutputStdout, "Just prints data to console")
	cmd.Flags().StringVar(&s.OutputKafkaHost, "output-kafka-host", s.OutputKafkaHost,
		`Write captured requests to Kafka:
                httpcap --output-kafka-host='192.168.0.1:9092,192.168.0.2:9092' --output-kafka-topic=http-requests`)
	cmd.Flags().StringVar(&s.OutputKafkaTopic, "output-kafka-topic", s.OutputKafkaTopic, "kafka topic")
	cmd.Flags().BoolVar(&s.OutputKafkaUseSASL, "output-kafka-use-sasl", s.OutputKafkaUseSASL, "enable SASL for kafka")
	cmd.Flags().StringVar(&s.OutputKafkaMechanism, "output-kafka-mechanism", s.OutputKafkaMechanism, "SASL mechanism")
	cmd.Flags().StringVar(&s.OutputKafkaUsername, "output-kafka-username", s.OutputKafkaUsername, "SASL username")
	cmd.Flags().StringVar(&s.OutputKafkaPassword, "output-kafka-password", s.OutputKafkaPassword, "SASL password")
	cmd.Flags().StringVar(&s.Codec, "codec", s.Codec, "event encoding of the outputs (simple|json)")

	// api
	cmd.Flags().StringVar(&s.HTTPAddr, "http-addr", s.HTTPAddr,
		`serve the capture api and websocket events, e.g. "127.0.0.1:8940"`)
	cmd.Flags().StringSliceVar(&s.AllowedOrigins, "allowed-origin", s.AllowedOrigins,
		`browser origin allowed to call the api, e.g. "http://localhost:1420"`)

	// filter & rate limit
	cmd.Flags().StringVar(&s.IncludeFilterMethodMatch, "include-filter-method-match", s.IncludeFilterMethodMatch,
		`filter requests when the method matches the specified regular expression`)
	cmd.Flags().StringVar(&s.IncludeFilterHostMatch, "include-filter-host-match", s.IncludeFilterHostMatch,
		`filter requests when the host matches the specified regular expression`)
	cmd.Flags().StringSliceVar(&s.ExcludeFilterPath, "exclude-filter-path", s.ExcludeFilterPath,
		`drop requests whose path contains any of these substrings`)
	cmd.Flags().IntVar(&s.RateLimitQPS, "rate-limit-qps", s.RateLimitQPS, "max requests published per second, 0 means unlimited")
}

func (s *AppSettings) Validate() error {
	if len(s.Ports) == 0 {
		return errors.New("at least one port is required")
	}
	if protocol.GetCodec(s.Codec) == nil {
		return errors.Errorf("unknown codec %q, want one of %v", s.Codec, protocol.Names())
	}
	if s.OutputKafkaHost != "" && s.OutputKafkaTopic == "" {
		return errors.New("output-kafka-topic is required with output-kafka-host")
	}
	if s.RateLimitQPS < 0 {
		return errors.Errorf("invalid rate-limit-qps %d", s.RateLimitQPS)
	}
	if s.MaxReadErrors < 0 {
		return errors.Errorf("invalid max-read-errors %d", s.MaxReadErrors)
	}
	return nil
}

// CaptureOptions maps the settings onto capture.Options. Filter and
// Limiter are left to the caller.
func (s *AppSettings) CaptureOptions() capture.Options {
	opts := capture.DefaultOptions()
	opts.Device = s.Device
	opts.Ports = s.Ports
	opts.Promiscuous = s.Promiscuous
	opts.ImmediateMode = s.ImmediateMode
	opts.ReadTimeout = s.ReadTimeout
	opts.SnapLen = s.SnapLen
	opts.BufferSize = s.BufferSize
	opts.RetryDelay = s.RetryDelay
	opts.MaxReadErrors = s.MaxReadErrors
	return opts
}
