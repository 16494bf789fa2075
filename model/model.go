package model

import (
	"encoding/json"
	"fmt"

	"github.com/vearne/httpcap/consts"
)

// CaptureStatus is a snapshot of the capture engine's health.
type CaptureStatus struct {
	Running    bool   `json:"running"`
	Message    string `json:"message"`
	DeviceName string `json:"device_name"`
	// seconds since epoch
	StartTime uint64 `json:"start_time"`
}

// NotInitializedStatus is reported when the status is queried before the
// engine has been initialized.
func NotInitializedStatus() CaptureStatus {
	return CaptureStatus{
		Running:    false,
		Message:    consts.MsgNotInitialized,
		DeviceName: consts.DeviceUnknown,
		StartTime:  0,
	}
}

// Header is a single request header. Order and duplicates are preserved
// by HTTPRequest.Headers.
type Header struct {
	Name  string
	Value string
}

// MarshalJSON encodes the header as a [name, value] pair.
func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{h.Name, h.Value})
}

func (h *Header) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("header must be a [name, value] pair, got %d items", len(pair))
	}
	h.Name, h.Value = pair[0], pair[1]
	return nil
}

// HTTPRequest is one request recovered from a single TCP payload.
type HTTPRequest struct {
	ID        uint64 `json:"id"`
	Timestamp uint64 `json:"timestamp"`
	SrcIP     string `json:"src_ip"`
	SrcPort   uint16 `json:"src_port"`
	DstIP     string `json:"dst_ip"`
	DstPort   uint16 `json:"dst_port"`

	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Version     string   `json:"version"`
	Host        string   `json:"host"`
	ContentType string   `json:"content_type"`
	Headers     []Header `json:"headers"`
	Body        string   `json:"body"`
}

// RequestID derives the request id from the capture time (seconds) and the
// source port. Two flows sharing a second and port%1000 collide.
func RequestID(timestamp uint64, srcPort uint16) uint64 {
	return timestamp*1000 + uint64(srcPort)%1000
}
