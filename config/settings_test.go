package config

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearne/httpcap/capture"
)

func newCmd(s *AppSettings) *cobra.Command {
	cmd := &cobra.Command{Use: "httpcap"}
	s.BindFlags(cmd)
	return cmd
}

func TestDefaults(t *testing.T) {
	s := NewAppSettings()
	cmd := newCmd(&s)
	require.NoError(t, cmd.ParseFlags(nil))
	require.NoError(t, s.Validate())

	opts := s.CaptureOptions()
	def := capture.DefaultOptions()
	assert.Equal(t, def.Ports, opts.Ports)
	assert.True(t, opts.Promiscuous)
	assert.True(t, opts.ImmediateMode)
	assert.Equal(t, time.Second, opts.ReadTimeout)
	assert.Equal(t, 100*time.Millisecond, opts.RetryDelay)
	assert.Zero(t, opts.MaxReadErrors)
	assert.Empty(t, opts.Device)
	assert.Equal(t, "simple", s.Codec)
}

func TestBindFlags(t *testing.T) {
	s := NewAppSettings()
	cmd := newCmd(&s)
	err := cmd.ParseFlags([]string{
		"--device=en0",
		"--port=3000",
		"--port=8000,9000",
		"--promisc=false",
		"--read-timeout=250ms",
		"--buffer-size=4mb",
		"--max-read-errors=10",
		"--output-kafka-host=k1:9092,k2:9092",
		"--output-kafka-topic=reqs",
		"--codec=json",
		"--exclude-filter-path=/healthz,/metrics",
		"--rate-limit-qps=50",
		"--http-addr=127.0.0.1:8940",
		"--allowed-origin=http://localhost:1420",
	})
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	assert.Equal(t, []uint16{3000, 8000, 9000}, s.Ports)
	assert.Equal(t, "en0", s.Device)
	assert.False(t, s.Promiscuous)
	assert.Equal(t, 250*time.Millisecond, s.ReadTimeout)
	assert.EqualValues(t, 4<<20, s.BufferSize)
	assert.Equal(t, []string{"/healthz", "/metrics"}, s.ExcludeFilterPath)
	assert.Equal(t, 50, s.RateLimitQPS)
	assert.Equal(t, "127.0.0.1:8940", s.HTTPAddr)
	assert.Equal(t, []string{"http://localhost:1420"}, s.AllowedOrigins)

	opts := s.CaptureOptions()
	assert.Equal(t, "en0", opts.Device)
	assert.EqualValues(t, 4<<20, opts.BufferSize)
	assert.Equal(t, 10, opts.MaxReadErrors)
}

func TestInvalidPort(t *testing.T) {
	for _, v := range []string{"0", "65536", "http"} {
		s := NewAppSettings()
		cmd := newCmd(&s)
		assert.Error(t, cmd.ParseFlags([]string{"--port=" + v}), v)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(s *AppSettings){
		"no ports":    func(s *AppSettings) { s.Ports = nil },
		"codec":       func(s *AppSettings) { s.Codec = "xml" },
		"kafka topic": func(s *AppSettings) { s.OutputKafkaHost = "k1:9092" },
		"rate limit":  func(s *AppSettings) { s.RateLimitQPS = -1 },
		"read errors": func(s *AppSettings) { s.MaxReadErrors = -1 },
	}
	for name, tweak := range cases {
		s := NewAppSettings()
		tweak(&s)
		assert.Error(t, s.Validate(), name)
	}
}

func TestSizeOption(t *testing.T) {
	var d = map[string]int{
		"42mb":    42 << 20,
		"4_2":     42,
		"0":       0,
		"0600Tb":  384 << 40,
		"0o12Mb":  10 << 20,
		"1024":    1 << 10,
		"0x12gB":  18 << 30,
		"512kb":   512 << 10,
		"0b111":   7,
		"4194304": 4 << 20,
	}
	var buf size.Size
	opt := SizeOption{&buf}
	assert.Equal(t, "size", opt.Type())
	for k, v := range d {
		require.NoError(t, opt.Set(k), k)
		assert.EqualValues(t, v, buf, k)
	}
	assert.Error(t, opt.Set("4 parsecs"))
}
