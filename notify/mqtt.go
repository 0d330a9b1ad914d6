package notify

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/mklimuk/vdec/detect"
)

// DefaultTopic is the topic template; %s is replaced with the device name.
const DefaultTopic = "vdec/%s/detect"

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// MQTTSink publishes detection events to a broker.
type MQTTSink struct {
	client   paho.Client
	device   string
	topic    string
	qos      byte
	retained bool
}

type MQTTOption func(*MQTTSink)

func WithTopic(topic string) MQTTOption {
	return func(s *MQTTSink) {
		s.topic = topic
	}
}

func WithQoS(qos byte) MQTTOption {
	return func(s *MQTTSink) {
		s.qos = qos
	}
}

// WithRetained keeps the last status on the broker for late subscribers.
func WithRetained() MQTTOption {
	return func(s *MQTTSink) {
		s.retained = true
	}
}

// DialMQTT connects to the broker and returns a sink publishing events of
// the given device.
func DialMQTT(broker, clientID, device string, opts ...MQTTOption) (*MQTTSink, error) {
	options := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(options)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("notify: connection to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("notify: could not connect to broker: %w", err)
	}
	return NewMQTTSink(client, device, opts...), nil
}

func NewMQTTSink(client paho.Client, device string, opts ...MQTTOption) *MQTTSink {
	s := &MQTTSink{
		client: client,
		device: device,
		topic:  fmt.Sprintf(DefaultTopic, device),
		qos:    1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MQTTSink) Topic() string {
	return s.topic
}

func (s *MQTTSink) Notify(ctx context.Context, ev detect.Event) error {
	payload, err := FormatPayload(s.device, ev)
	if err != nil {
		return fmt.Errorf("notify: could not format payload: %w", err)
	}
	token := s.client.Publish(s.topic, s.qos, s.retained, payload)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
	case <-time.After(publishTimeout):
		return fmt.Errorf("notify: publish to %s timed out", s.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("notify: could not publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() error {
	s.client.Disconnect(1000)
	return nil
}
