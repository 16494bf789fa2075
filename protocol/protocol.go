package protocol

import (
	"time"

	"github.com/google/uuid"
	"github.com/vearne/httpcap/model"
)

const Version = 1

type EventKind string

const (
	KindStatus  EventKind = "status"
	KindRequest EventKind = "http-request"
)

// Event represents data handed to output plugins
type Event struct {
	Meta    Meta                 `json:"meta"`
	Kind    EventKind            `json:"kind"`
	Status  *model.CaptureStatus `json:"status,omitempty"`
	Request *model.HTTPRequest   `json:"request,omitempty"`
}

type Meta struct {
	Version int    `json:"version"`
	UUID    string `json:"uuid"`
	// Nanosecond
	Timestamp int64 `json:"timestamp"`
}

func newMeta() Meta {
	return Meta{
		Version:   Version,
		UUID:      uuid.NewString(),
		Timestamp: time.Now().UnixNano(),
	}
}

func NewStatusEvent(st model.CaptureStatus) *Event {
	return &Event{Meta: newMeta(), Kind: KindStatus, Status: &st}
}

func NewRequestEvent(req *model.HTTPRequest) *Event {
	return &Event{Meta: newMeta(), Kind: KindRequest, Request: req}
}
