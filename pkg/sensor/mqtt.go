package sensor

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/treadgrade/treadgrade/pkg/orientation"
)

// MQTTOptions configures an MQTT accelerometer feed.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Topic    string
}

// MQTTSource subscribes to a topic carrying JSON samples
// ({"x":..,"y":..,"z":..,"ts":..}). Samples that arrive while the consumer is
// busy are dropped; the feed has no backpressure.
type MQTTSource struct {
	client mqtt.Client
	topic  string
	clock  Clock

	samples chan orientation.Sample
	done    chan struct{}
	once    sync.Once
}

// NewMQTTSource connects to the broker and subscribes to the sample topic.
func NewMQTTSource(opts MQTTOptions, clock Clock) (*MQTTSource, error) {
	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID + "-samples").
		SetAutoReconnect(true)

	client := mqtt.NewClient(clientOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, pkgerrors.Wrapf(token.Error(), "failed to connect to MQTT broker %s", opts.Broker)
	}

	s := newMQTTSource(client, opts.Topic, clock)
	token := client.Subscribe(opts.Topic, 0, s.handleMessage)
	token.Wait()
	if token.Error() != nil {
		client.Disconnect(250)
		return nil, pkgerrors.Wrapf(token.Error(), "failed to subscribe to %s", opts.Topic)
	}
	logrus.WithFields(logrus.Fields{
		"broker": opts.Broker,
		"topic":  opts.Topic,
	}).Info("MQTT sample feed subscribed")

	return s, nil
}

func newMQTTSource(client mqtt.Client, topic string, clock Clock) *MQTTSource {
	if clock == nil {
		clock = MonotonicClock()
	}
	return &MQTTSource{
		client:  client,
		topic:   topic,
		clock:   clock,
		samples: make(chan orientation.Sample, 64),
		done:    make(chan struct{}),
	}
}

func (s *MQTTSource) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var sample orientation.Sample
	if err := json.Unmarshal(msg.Payload(), &sample); err != nil {
		logrus.WithError(err).WithField("topic", msg.Topic()).Debug("dropping malformed sample")
		return
	}
	if sample.Timestamp == 0 {
		sample.Timestamp = s.clock()
	}

	select {
	case <-s.done:
	case s.samples <- sample:
	default:
	}
}

func (s *MQTTSource) Next(ctx context.Context) (orientation.Sample, error) {
	select {
	case <-ctx.Done():
		return orientation.Sample{}, ctx.Err()
	case <-s.done:
		return orientation.Sample{}, io.EOF
	case sample := <-s.samples:
		return sample, nil
	}
}

func (s *MQTTSource) Close() error {
	s.once.Do(func() {
		close(s.done)
		if s.client == nil {
			return
		}
		if token := s.client.Unsubscribe(s.topic); token.WaitTimeout(time.Second) && token.Error() != nil {
			logrus.WithError(token.Error()).Warn("failed to unsubscribe sample topic")
		}
		s.client.Disconnect(250)
	})
	return nil
}
