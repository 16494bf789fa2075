package biz

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearne/httpcap/config"
	"github.com/vearne/httpcap/consts"
	"github.com/vearne/httpcap/model"
	"github.com/vearne/httpcap/protocol"
)

type testOutput struct {
	mu     sync.Mutex
	events []*protocol.Event
	closed bool
}

func (o *testOutput) Write(ev *protocol.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
	return nil
}

func (o *testOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

func (o *testOutput) Events() []*protocol.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*protocol.Event(nil), o.events...)
}

func TestEmitter(t *testing.T) {
	out := &testOutput{}
	plugins := &InOutPlugins{}
	plugins.register(out)

	e := NewEmitter(16)
	e.Start(plugins)

	reqDst := e.RequestDestination()
	statusDst := e.StatusDestination()
	for i := 0; i < 5; i++ {
		require.NoError(t, reqDst.Send(&model.HTTPRequest{Method: "GET", Path: "/"}))
	}
	require.NoError(t, statusDst.Send(model.NotInitializedStatus()))

	e.Close()
	events := out.Events()
	require.Len(t, events, 6)
	assert.Equal(t, protocol.KindRequest, events[0].Kind)
	assert.Equal(t, protocol.KindStatus, events[5].Kind)
	assert.True(t, out.closed)

	assert.ErrorIs(t, reqDst.Send(&model.HTTPRequest{}), consts.ErrDestinationClosed)
	// second close is a no-op
	e.Close()
}

func TestEmitterFull(t *testing.T) {
	e := NewEmitter(1)
	// not started, so nothing drains the queue
	require.NoError(t, e.Send(protocol.NewStatusEvent(model.NotInitializedStatus())))
	assert.ErrorIs(t, e.Send(protocol.NewStatusEvent(model.NotInitializedStatus())), consts.ErrDestinationFull)
}

func TestNewFilterChain(t *testing.T) {
	settings := config.NewAppSettings()
	settings.IncludeFilterMethodMatch = "^(GET|POST)$"
	settings.IncludeFilterHostMatch = `example\.com$`
	settings.ExcludeFilterPath = []string{"/health", ""}

	c, err := NewFilterChain(&settings)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	_, ok := c.Filter(&model.HTTPRequest{Method: "GET", Host: "api.example.com", Path: "/users"})
	assert.True(t, ok)
	_, ok = c.Filter(&model.HTTPRequest{Method: "GET", Host: "api.example.com", Path: "/health"})
	assert.False(t, ok)
	_, ok = c.Filter(&model.HTTPRequest{Method: "DELETE", Host: "api.example.com", Path: "/users"})
	assert.False(t, ok)

	settings.IncludeFilterMethodMatch = "("
	_, err = NewFilterChain(&settings)
	assert.Error(t, err)
}

func TestNewRateLimit(t *testing.T) {
	settings := config.NewAppSettings()
	assert.Nil(t, NewRateLimit(&settings))

	settings.RateLimitQPS = 2
	l := NewRateLimit(&settings)
	require.NotNil(t, l)
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestNewPlugins(t *testing.T) {
	settings := config.NewAppSettings()
	settings.OutputStdout = true
	plugins, err := NewPlugins(&settings)
	require.NoError(t, err)
	assert.Len(t, plugins.Outputs, 1)
	assert.Len(t, plugins.All, 1)

	settings.Codec = "xml"
	_, err = NewPlugins(&settings)
	assert.Error(t, err)
}

func TestEmitterCloseWaits(t *testing.T) {
	out := &testOutput{}
	plugins := &InOutPlugins{}
	plugins.register(out)

	e := NewEmitter(128)
	e.Start(plugins)
	for i := 0; i < 100; i++ {
		require.NoError(t, e.Send(protocol.NewStatusEvent(model.NotInitializedStatus())))
	}
	done := make(chan struct{})
	go func() {
		e.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("emitter did not close")
	}
	assert.Len(t, out.Events(), 100)
}
