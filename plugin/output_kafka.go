package plugin

import (
	"strings"
	"sync"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"github.com/vearne/httpcap/consts"
	"github.com/vearne/httpcap/protocol"
	slog "github.com/vearne/simplelog"
)

// OutputKafkaConfig is the representation of kafka output configuration
type OutputKafkaConfig struct {
	Host       string `json:"output-kafka-host"`
	Topic      string `json:"output-kafka-topic"`
	SASLConfig SASLKafkaConfig
}

// SASLKafkaConfig SASL configuration
type SASLKafkaConfig struct {
	UseSASL   bool   `json:"output-kafka-use-sasl"`
	Mechanism string `json:"output-kafka-mechanism"`
	Username  string `json:"output-kafka-username"`
	Password  string `json:"output-kafka-password"`
}

// KafkaOutput publishes events to a kafka topic without blocking the caller.
type KafkaOutput struct {
	topic    string
	codec    protocol.Codec
	producer sarama.AsyncProducer
	wg       sync.WaitGroup
}

func NewKafkaOutput(cfg *OutputKafkaConfig, codec string) (*KafkaOutput, error) {
	c := sarama.NewConfig()
	c.ClientID = "httpcap"
	c.Producer.RequiredAcks = sarama.WaitForLocal
	c.Producer.Compression = sarama.CompressionSnappy
	c.Producer.Return.Successes = false
	c.Producer.Return.Errors = true
	if cfg.SASLConfig.UseSASL {
		c.Net.SASL.Enable = true
		c.Net.SASL.Mechanism = sarama.SASLMechanism(cfg.SASLConfig.Mechanism)
		c.Net.SASL.User = cfg.SASLConfig.Username
		c.Net.SASL.Password = cfg.SASLConfig.Password
	}

	producer, err := sarama.NewAsyncProducer(strings.Split(cfg.Host, ","), c)
	if err != nil {
		return nil, errors.Wrapf(err, "kafka producer, host:%v", cfg.Host)
	}
	o, err := newKafkaOutput(producer, cfg.Topic, codec)
	if err != nil {
		producer.AsyncClose()
		return nil, err
	}
	return o, nil
}

func newKafkaOutput(producer sarama.AsyncProducer, topic, codec string) (*KafkaOutput, error) {
	var o KafkaOutput
	o.codec = protocol.GetCodec(codec)
	if o.codec == nil {
		return nil, errors.Errorf("unknown codec %q", codec)
	}
	o.topic = topic
	o.producer = producer

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for err := range producer.Errors() {
			slog.Error("[KafkaOutput]produce message, %v", err)
		}
	}()
	return &o, nil
}

func (o *KafkaOutput) Write(ev *protocol.Event) error {
	data, err := o.codec.Marshal(ev)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: o.topic,
		Value: sarama.ByteEncoder(data),
	}
	// keep requests of one client in order
	if ev.Request != nil {
		msg.Key = sarama.StringEncoder(ev.Request.SrcIP)
	}

	select {
	case o.producer.Input() <- msg:
		return nil
	default:
		return consts.ErrDestinationFull
	}
}

func (o *KafkaOutput) Close() error {
	err := o.producer.Close()
	o.wg.Wait()
	return err
}

func (o *KafkaOutput) String() string {
	return "Kafka Output, topic:" + o.topic
}
