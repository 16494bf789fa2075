package biz

import (
	"fmt"

	"github.com/vearne/httpcap/config"
	"github.com/vearne/httpcap/plugin"
	slog "github.com/vearne/simplelog"
)

// InOutPlugins struct for holding references to plugins
type InOutPlugins struct {
	Outputs []PluginWriter
	All     []interface{}
}

// NewPlugins specify and initialize all available output plugins
func NewPlugins(settings *config.AppSettings) (*InOutPlugins, error) {
	plugins := new(InOutPlugins)

	if settings.OutputStdout {
		slog.Debug("NewStdOutput")
		o, err := plugin.NewStdOutput(settings.Codec)
		if err != nil {
			return nil, err
		}
		plugins.register(o)
	}

	if len(settings.OutputKafkaHost) > 0 {
		slog.Debug("NewKafkaOutput, host:%v, topic:%v", settings.OutputKafkaHost, settings.OutputKafkaTopic)
		o, err := plugin.NewKafkaOutput(&plugin.OutputKafkaConfig{
			Host:  settings.OutputKafkaHost,
			Topic: settings.OutputKafkaTopic,
			SASLConfig: plugin.SASLKafkaConfig{
				UseSASL:   settings.OutputKafkaUseSASL,
				Mechanism: settings.OutputKafkaMechanism,
				Username:  settings.OutputKafkaUsername,
				Password:  settings.OutputKafkaPassword,
			},
		}, settings.Codec)
		if err != nil {
			plugins.closeAll()
			return nil, err
		}
		plugins.register(o)
	}

	return plugins, nil
}

func (plugins *InOutPlugins) register(p interface{}) {
	if w, ok := p.(PluginWriter); ok {
		plugins.Outputs = append(plugins.Outputs, w)
	}
	plugins.All = append(plugins.All, p)
}

func (plugins *InOutPlugins) closeAll() {
	for _, p := range plugins.All {
		if cp, ok := p.(interface{ Close() error }); ok {
			cp.Close()
		}
	}
}

func (plugins *InOutPlugins) String() string {
	return fmt.Sprintf("#####  len(Outputs):%d, len(All):%d   #####",
		len(plugins.Outputs), len(plugins.All))
}
