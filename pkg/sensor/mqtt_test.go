package sensor

import (
	"context"
	"errors"
	"io"
	"testing"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestMQTTSourceHandleMessage(t *testing.T) {
	src := newMQTTSource(nil, "treadgrade/accel", fixedClock(7))
	defer src.Close()

	src.handleMessage(nil, fakeMessage{topic: "treadgrade/accel", payload: []byte(`{"x":0.1,"y":0,"z":9.8,"ts":300}`)})
	src.handleMessage(nil, fakeMessage{topic: "treadgrade/accel", payload: []byte(`not json`)})
	src.handleMessage(nil, fakeMessage{topic: "treadgrade/accel", payload: []byte(`{"x":0,"y":0,"z":9.8}`)})

	ctx := context.Background()
	first, err := src.Next(ctx)
	if err != nil || first.Timestamp != 300 || first.X != 0.1 {
		t.Fatalf("first = %+v, %v", first, err)
	}
	second, err := src.Next(ctx)
	if err != nil || second.Timestamp != 7 {
		t.Fatalf("second = %+v, %v; want clock timestamp", second, err)
	}
}

func TestMQTTSourceDropsWhenFull(t *testing.T) {
	src := newMQTTSource(nil, "t", fixedClock(1))
	for i := 0; i < cap(src.samples)+10; i++ {
		src.handleMessage(nil, fakeMessage{payload: []byte(`{"z":9.8}`)})
	}
	if len(src.samples) != cap(src.samples) {
		t.Fatalf("buffer = %d/%d", len(src.samples), cap(src.samples))
	}
}

func TestMQTTSourceClose(t *testing.T) {
	src := newMQTTSource(nil, "t", nil)
	_ = src.Close()
	_ = src.Close()
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after Close, got %v", err)
	}
}
