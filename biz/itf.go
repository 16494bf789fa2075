package biz

import "github.com/vearne/httpcap/protocol"

// PluginWriter is an interface for output plugins
type PluginWriter interface {
	Write(ev *protocol.Event) error
}

// Limiter 用于控制请求发布速率，*rate.Limiter 实现了该接口。
type Limiter interface {
	Allow() bool
}
