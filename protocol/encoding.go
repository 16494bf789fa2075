package protocol

import (
	"sort"
	"strings"
)

// Codec turns events into the bytes written by output plugins.
type Codec interface {
	Marshal(v *Event) ([]byte, error)
	Unmarshal(data []byte, v *Event) error
	// Name must be static, it is the value of the --codec flag.
	Name() string
}

var registeredCodecs = make(map[string]Codec)

// RegisterCodec is meant to be called from init functions.
func RegisterCodec(codec Codec) {
	if codec == nil {
		panic("cannot register a nil Codec")
	}
	if codec.Name() == "" {
		panic("cannot register Codec with empty string result for Name()")
	}
	registeredCodecs[strings.ToLower(codec.Name())] = codec
}

// GetCodec returns nil for unknown names.
func GetCodec(name string) Codec {
	return registeredCodecs[strings.ToLower(name)]
}

// Names lists the registered codecs in sorted order.
func Names() []string {
	names := make([]string, 0, len(registeredCodecs))
	for name := range registeredCodecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
