package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vearne/httpcap/consts"
	"github.com/vearne/httpcap/model"
)

func sampleRequest() *model.HTTPRequest {
	return &model.HTTPRequest{
		ID:          1700000000234,
		Timestamp:   1700000000,
		SrcIP:       "192.0.2.10",
		SrcPort:     50234,
		DstIP:       "198.51.100.7",
		DstPort:     80,
		Method:      "POST",
		Path:        "/upload",
		Version:     "HTTP/1.1",
		Host:        "example.com",
		ContentType: "text/plain",
		Headers: []model.Header{
			{Name: "Host", Value: "example.com"},
			{Name: "Content-Type", Value: "text/plain"},
		},
		Body: "line1\r\nline2",
	}
}

func TestCodecSimpleRequest(t *testing.T) {
	codec := GetCodec(CodecSimpleName)
	require.NotNil(t, codec)

	ev := NewRequestEvent(sampleRequest())
	data, err := codec.Marshal(ev)
	require.NoError(t, err)

	var got Event
	require.NoError(t, codec.Unmarshal(data, &got))
	assert.Equal(t, ev.Meta, got.Meta)
	assert.Equal(t, KindRequest, got.Kind)
	assert.Equal(t, ev.Request, got.Request)
	assert.Nil(t, got.Status)
}

func TestCodecSimpleStatus(t *testing.T) {
	codec := CodecSimple{}
	ev := NewStatusEvent(model.CaptureStatus{Running: true, Message: "capturing HTTP requests...", DeviceName: "en0", StartTime: 1700000000})
	data, err := codec.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), " status\n")

	var got Event
	require.NoError(t, codec.Unmarshal(data, &got))
	assert.Equal(t, ev.Status, got.Status)
}

func TestCodecSimpleInvalid(t *testing.T) {
	codec := CodecSimple{}
	var ev Event
	assert.ErrorIs(t, codec.Unmarshal([]byte("garbage"), &ev), consts.ErrProtocal)
	assert.ErrorIs(t, codec.Unmarshal([]byte("1 a b\n{}"), &ev), consts.ErrProtocal)
	assert.Error(t, codec.Unmarshal([]byte("x uuid 1 status\n{}"), &ev))
	assert.ErrorIs(t, codec.Unmarshal([]byte("1 uuid 1 other\n{}"), &ev), consts.ErrProtocal)

	_, err := codec.Marshal(&Event{Kind: "other"})
	assert.ErrorIs(t, err, consts.ErrProtocal)
}

func TestCodecJson(t *testing.T) {
	codec := GetCodec(CodecJsonName)
	require.NotNil(t, codec)

	ev := NewRequestEvent(sampleRequest())
	data, err := codec.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"headers":[["Host","example.com"],["Content-Type","text/plain"]]`)

	var got Event
	require.NoError(t, codec.Unmarshal(data, &got))
	assert.Equal(t, ev.Request, got.Request)
	assert.Equal(t, ev.Meta.UUID, got.Meta.UUID)
}

func TestGetCodecUnknown(t *testing.T) {
	assert.Nil(t, GetCodec("protobuf"))
}

func TestGetCodec(t *testing.T) {
	assert.Equal(t, []string{CodecJsonName, CodecSimpleName}, Names())
	assert.Equal(t, CodecJsonName, GetCodec("JSON").Name())
	assert.Nil(t, GetCodec("xml"))
}
