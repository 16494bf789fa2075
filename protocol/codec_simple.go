package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/vearne/httpcap/consts"
	"github.com/vearne/httpcap/model"
)

const CodecSimpleName = "simple"

func init() {
	RegisterCodec(CodecSimple{})
}

type CodecSimple struct{}

func (c CodecSimple) Marshal(ev *Event) ([]byte, error) {
	buff := bytes.NewBuffer(make([]byte, 0))
	// line 1
	//{version} {uuid} {timestamp} {kind}
	buff.WriteString(fmt.Sprintf("%d %s %d %s", ev.Meta.Version, ev.Meta.UUID,
		ev.Meta.Timestamp, ev.Kind))
	buff.Write([]byte{'\n'})
	// line 2
	// status or request
	var payload interface{}
	switch ev.Kind {
	case KindStatus:
		payload = ev.Status
	case KindRequest:
		payload = ev.Request
	default:
		return nil, consts.ErrProtocal
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	buff.Write(data)
	buff.Write([]byte{'\n'})
	return buff.Bytes(), nil
}

func (c CodecSimple) Unmarshal(data []byte, ev *Event) error {
	var err error
	lines := bytes.SplitN(data, []byte{'\n'}, 3)
	if len(lines) < 2 {
		return consts.ErrProtocal
	}
	// line 1
	strList := strings.Split(string(lines[0]), " ")
	if len(strList) != 4 {
		return consts.ErrProtocal
	}
	ev.Meta.Version, err = strconv.Atoi(strList[0])
	if err != nil {
		return err
	}
	ev.Meta.UUID = strList[1]
	ev.Meta.Timestamp, err = strconv.ParseInt(strList[2], 10, 64)
	if err != nil {
		return err
	}
	ev.Kind = EventKind(strList[3])
	// line 2
	switch ev.Kind {
	case KindStatus:
		ev.Status = &model.CaptureStatus{}
		return json.Unmarshal(lines[1], ev.Status)
	case KindRequest:
		ev.Request = &model.HTTPRequest{}
		return json.Unmarshal(lines[1], ev.Request)
	}
	return consts.ErrProtocal
}

func (c CodecSimple) Name() string {
	return CodecSimpleName
}
