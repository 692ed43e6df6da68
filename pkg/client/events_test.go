package client

import (
	"context"
	"strings"
	"testing"

	"github.com/treadgrade/treadgrade/pkg/events"
)

func TestReadEvents(t *testing.T) {
	stream := strings.Join([]string{
		"event:readout",
		`data:{"speed":6}`,
		"",
		": keep-alive",
		"",
		"event: calibration.phase",
		`data: {"from":"Off","to":"AwaitingCalibration"}`,
		"",
		"",
	}, "\n")

	ch := make(chan events.Event, 4)
	if err := readEvents(context.Background(), strings.NewReader(stream), ch); err != nil {
		t.Fatalf("readEvents returned error: %v", err)
	}
	close(ch)

	var got []events.Event
	for ev := range ch {
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(got), got)
	}
	if got[0].Name != events.Readout || string(got[0].Data) != `{"speed":6}` {
		t.Errorf("unexpected first event %+v", got[0])
	}

	phase, err := events.DecodeAs[events.CalibrationPhaseEvent](got[1])
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if got[1].Name != events.CalibrationPhase || phase.To != "AwaitingCalibration" {
		t.Errorf("unexpected second event %+v", got[1])
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"set speed to 6.0 mph"`, "set speed to 6.0 mph"},
		{`v1.2.3`, "v1.2.3"},
		{`"v1.2.3"`, "v1.2.3"},
	}
	for _, tt := range tests {
		got, err := message(tt.in, nil)
		if err != nil || got != tt.want {
			t.Errorf("message(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}

	if got := quote(`6 "fast"`); got != `"6 \"fast\""` {
		t.Errorf("unexpected quote %s", got)
	}
}
