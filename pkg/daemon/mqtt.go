package daemon

import (
	"encoding/json"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/treadgrade/treadgrade/pkg/session"
)

// readoutInterval limits how often an unchanged-phase readout is
// republished while samples stream in.
const readoutInterval = 250 * time.Millisecond

// readoutPublisher mirrors the readout to a retained MQTT topic, so
// dashboards on the LAN see the current grade and flat speed.
type readoutPublisher struct {
	client  mqtt.Client
	topic   string
	publish func(topic string, payload []byte) error
	now     func() time.Time
	// afterFunc is replaced in tests.
	afterFunc func(time.Duration, func()) stopper

	mu      sync.Mutex
	last    session.Readout
	lastAt  time.Time
	pending *session.Readout
	flush   stopper
}

type stopper interface {
	Stop() bool
}

func afterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

func newReadoutPublisher(broker, clientID, topic string) (*readoutPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID + "-readout").
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, pkgerrors.Wrapf(token.Error(), "failed to connect to MQTT broker %s", broker)
	}
	logrus.WithFields(logrus.Fields{
		"broker": broker,
		"topic":  topic,
	}).Info("MQTT readout publisher connected")

	p := newPublisher(topic, func(topic string, payload []byte) error {
		token := client.Publish(topic, 0, true, payload)
		go func() {
			if token.Wait() && token.Error() != nil {
				logrus.WithError(token.Error()).WithField("topic", topic).Warn("failed to publish readout")
			}
		}()
		return nil
	})
	p.client = client
	return p, nil
}

func newPublisher(topic string, publish func(string, []byte) error) *readoutPublisher {
	return &readoutPublisher{
		topic:     topic,
		publish:   publish,
		now:       time.Now,
		afterFunc: afterFunc,
	}
}

// Publish sends r unless only the sensor grade moved and the last readout
// went out less than readoutInterval ago. A dropped readout is sent when the
// interval ends, so the retained topic always ends on the latest readout.
func (p *readoutPublisher) Publish(r session.Readout) {
	if p == nil {
		return
	}

	p.mu.Lock()
	now := p.now()
	if elapsed := now.Sub(p.lastAt); !p.lastAt.IsZero() && sameStatus(p.last, r) && elapsed < readoutInterval {
		p.pending = &r
		if p.flush == nil {
			p.flush = p.afterFunc(readoutInterval-elapsed, p.flushPending)
		}
		p.mu.Unlock()
		return
	}
	p.markSentLocked(r, now)
	p.mu.Unlock()

	p.send(r)
}

func (p *readoutPublisher) flushPending() {
	p.mu.Lock()
	p.flush = nil
	r := p.pending
	if r == nil {
		p.mu.Unlock()
		return
	}
	p.markSentLocked(*r, p.now())
	p.mu.Unlock()

	p.send(*r)
}

func (p *readoutPublisher) markSentLocked(r session.Readout, now time.Time) {
	p.last = r
	p.lastAt = now
	p.pending = nil
	if p.flush != nil {
		p.flush.Stop()
		p.flush = nil
	}
}

func (p *readoutPublisher) send(r session.Readout) {
	payload, err := json.Marshal(r)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal readout")
		return
	}
	if err := p.publish(p.topic, payload); err != nil {
		logrus.WithError(err).Warn("failed to publish readout")
	}
}

func (p *readoutPublisher) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	if p.flush != nil {
		p.flush.Stop()
		p.flush = nil
	}
	p.pending = nil
	p.mu.Unlock()

	if p.client != nil {
		p.client.Disconnect(250)
	}
}

func sameStatus(a, b session.Readout) bool {
	return a.Phase == b.Phase &&
		a.SensorStatus == b.SensorStatus &&
		a.Speed == b.Speed &&
		a.SpeedUnit == b.SpeedUnit &&
		a.ManualGrade == b.ManualGrade &&
		a.GradeSource == b.GradeSource &&
		a.FallDetected == b.FallDetected &&
		a.Foreground == b.Foreground
}
