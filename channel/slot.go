// Package channel implements the one-slot event destinations the capture
// engine publishes to.
package channel

import (
	"sync"

	"github.com/vearne/httpcap/consts"
	slog "github.com/vearne/simplelog"
)

// Destination receives events. Send must not block for long, the engine
// calls it from the capture loop.
type Destination[T any] interface {
	Send(v T) error
}

// Slot holds at most one Destination. Set replaces the previous one.
type Slot[T any] struct {
	name string
	mu   sync.Mutex
	dst  Destination[T]
}

func NewSlot[T any](name string) *Slot[T] {
	return &Slot[T]{name: name}
}

// Set registers dst, replacing whatever was registered before. A nil dst
// empties the slot.
func (s *Slot[T]) Set(dst Destination[T]) {
	s.mu.Lock()
	s.dst = dst
	s.mu.Unlock()
}

func (s *Slot[T]) Get() Destination[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dst
}

// TrySend delivers v to the registered destination, if any.
// The lock is held during Send so a destination that has been replaced
// never receives another event.
func (s *Slot[T]) TrySend(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dst == nil {
		return false
	}
	if err := s.dst.Send(v); err != nil {
		slog.Warn("[%v]send event failed, %v", s.name, err)
		return false
	}
	return true
}

// Chan is a Destination backed by a buffered Go channel.
type Chan[T any] struct {
	mu     sync.RWMutex
	ch     chan T
	closed bool
}

func NewChan[T any](size int) *Chan[T] {
	return &Chan[T]{ch: make(chan T, size)}
}

func (c *Chan[T]) Send(v T) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return consts.ErrDestinationClosed
	}
	select {
	case c.ch <- v:
		return nil
	default:
		return consts.ErrDestinationFull
	}
}

// C returns the receive side.
func (c *Chan[T]) C() <-chan T {
	return c.ch
}

func (c *Chan[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

// Func adapts a plain function to a Destination.
type Func[T any] func(v T) error

func (f Func[T]) Send(v T) error {
	return f(v)
}
