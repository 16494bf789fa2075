// Package status holds the single, shared CaptureStatus of the engine.
package status

import (
	"sync"
	"time"

	"github.com/vearne/httpcap/consts"
	"github.com/vearne/httpcap/model"
)

// Registry guards the current CaptureStatus. Readers take a short lock and
// get a copy; writers mutate under the lock and queue a copy for notify.
// notify is never called with the lock held. Copies are delivered one at a
// time in mutation order by whichever writer finds the queue idle, so a
// writer racing with a slow notify returns without waiting for it.
type Registry struct {
	mu     sync.Mutex
	status *model.CaptureStatus

	pending    []model.CaptureStatus
	publishing bool
	notify     func(model.CaptureStatus)
}

// New creates an uninitialized registry. notify is called with a copy of
// the status after every Update, it may be nil.
func New(notify func(model.CaptureStatus)) *Registry {
	return &Registry{notify: notify}
}

// Initialize creates the status with its default values. It succeeds at most
// once.
func (r *Registry) Initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != nil {
		return consts.ErrStatusInitialized
	}
	r.status = &model.CaptureStatus{
		Running:    false,
		Message:    consts.MsgInitializing,
		DeviceName: consts.DeviceUnknown,
		StartTime:  uint64(time.Now().Unix()),
	}
	return nil
}

// Initialized reports whether Initialize has succeeded.
func (r *Registry) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status != nil
}

// Snapshot returns a copy of the current status.
func (r *Registry) Snapshot() model.CaptureStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == nil {
		return model.NotInitializedStatus()
	}
	return *r.status
}

// Update applies fn to the status and publishes the new value. It is a
// no-op before Initialize. The value may be published by a concurrent
// Update after this one returns.
func (r *Registry) Update(fn func(st *model.CaptureStatus)) {
	r.mu.Lock()
	if r.status == nil {
		r.mu.Unlock()
		return
	}
	fn(r.status)
	if r.notify == nil {
		r.mu.Unlock()
		return
	}
	r.pending = append(r.pending, *r.status)
	if r.publishing {
		r.mu.Unlock()
		return
	}

	r.publishing = true
	for len(r.pending) > 0 {
		st := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		r.notify(st)
		r.mu.Lock()
	}
	r.pending = nil
	r.publishing = false
	r.mu.Unlock()
}

// SetMessage is a shortcut for Update that only changes the message.
func (r *Registry) SetMessage(msg string) {
	r.Update(func(st *model.CaptureStatus) {
		st.Message = msg
	})
}

// SetStopped marks the capture as not running with the given message.
func (r *Registry) SetStopped(msg string) {
	r.Update(func(st *model.CaptureStatus) {
		st.Running = false
		st.Message = msg
	})
}
