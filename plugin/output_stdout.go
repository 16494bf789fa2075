package plugin

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/vearne/httpcap/protocol"
)

type StdOutput struct {
	codec protocol.Codec
	w     io.Writer
}

func NewStdOutput(codec string) (*StdOutput, error) {
	return NewWriterOutput(codec, os.Stderr)
}

// NewWriterOutput writes encoded events to w.
func NewWriterOutput(codec string, w io.Writer) (*StdOutput, error) {
	var o StdOutput
	o.codec = protocol.GetCodec(codec)
	if o.codec == nil {
		return nil, errors.Errorf("unknown codec %q", codec)
	}
	o.w = w
	return &o, nil
}

func (o *StdOutput) Close() error {
	return nil
}

func (o *StdOutput) Write(ev *protocol.Event) (err error) {
	var (
		data []byte
	)

	data, err = o.codec.Marshal(ev)
	if err != nil {
		return err
	}

	_, err = o.w.Write(data)
	if err != nil {
		return err
	}
	// make it more readable
	_, err = o.w.Write([]byte{'\n'})
	return err
}

func (o *StdOutput) String() string {
	return "Std Output, codec:" + o.codec.Name()
}
