// Package biz 包含 httpcap 的核心业务逻辑，包括过滤器、限流器和输出插件的组装以及事件分发。
// 该包负责把抓包引擎产生的状态和 HTTP 请求事件交给各个输出插件。
package biz

import (
	"io"
	"sync"

	"github.com/vearne/httpcap/channel"
	"github.com/vearne/httpcap/consts"
	"github.com/vearne/httpcap/model"
	"github.com/vearne/httpcap/protocol"
	slog "github.com/vearne/simplelog"
)

// Emitter 表示一个用于把事件分发给输出插件的对象。
// 抓包线程通过 Send 把事件放入缓冲队列，Emitter 的 goroutine 再把事件写入所有输出插件，
// 这样较慢的输出插件不会阻塞抓包线程。
type Emitter struct {
	sync.WaitGroup
	plugins *InOutPlugins // 输出插件的集合
	queue   chan *protocol.Event

	mu     sync.RWMutex
	closed bool
}

// NewEmitter 创建并初始化一个新的 Emitter 对象，queueSize 是缓冲队列的长度。
func NewEmitter(queueSize int) *Emitter {
	var e Emitter
	e.queue = make(chan *protocol.Event, queueSize)
	return &e
}

// Start 启动分发循环，将队列中的事件发送到所有输出插件。
func (e *Emitter) Start(plugins *InOutPlugins) {
	e.plugins = plugins
	e.Add(1)
	go func() {
		defer e.Done()
		e.CopyMulty(plugins.Outputs...)
	}()
}

// Send 以非阻塞方式把事件放入队列，队列满时返回 consts.ErrDestinationFull。
func (e *Emitter) Send(ev *protocol.Event) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return consts.ErrDestinationClosed
	}
	select {
	case e.queue <- ev:
		return nil
	default:
		return consts.ErrDestinationFull
	}
}

// StatusDestination 返回一个可以注册到抓包引擎的状态事件目标。
func (e *Emitter) StatusDestination() channel.Destination[model.CaptureStatus] {
	return channel.Func[model.CaptureStatus](func(st model.CaptureStatus) error {
		return e.Send(protocol.NewStatusEvent(st))
	})
}

// RequestDestination 返回一个可以注册到抓包引擎的 HTTP 请求事件目标。
func (e *Emitter) RequestDestination() channel.Destination[*model.HTTPRequest] {
	return channel.Func[*model.HTTPRequest](func(req *model.HTTPRequest) error {
		return e.Send(protocol.NewRequestEvent(req))
	})
}

// Close 关闭队列，等待队列中剩余的事件写完，然后关闭所有插件（如果它们实现了 io.Closer 接口）。
func (e *Emitter) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	// wait for everything to stop
	e.Wait()
	if e.plugins == nil {
		return
	}
	for _, p := range e.plugins.All {
		if cp, ok := p.(io.Closer); ok {
			if err := cp.Close(); err != nil {
				slog.Error("close plugin %v, %v", p, err)
			}
		}
	}
	e.plugins.All = nil // avoid Close to make changes again
}

// CopyMulty 从队列读取事件并写入所有输出插件，直到队列被关闭。
// 写入失败只记录日志，不会重试。
func (e *Emitter) CopyMulty(writers ...PluginWriter) {
	for ev := range e.queue {
		for _, dst := range writers {
			if err := dst.Write(ev); err != nil {
				slog.Error("dst.Write:%v", err)
			}
		}
	}
}
