package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/treadgrade/treadgrade/pkg/calibration"
	"github.com/treadgrade/treadgrade/pkg/events"
	"github.com/treadgrade/treadgrade/pkg/orientation"
	"github.com/treadgrade/treadgrade/pkg/session"
)

func TestStreamEventsPrimedWithReadout(t *testing.T) {
	r, _ := setupTestDaemon(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	var name string
	for sc.Scan() {
		line := sc.Text()
		if v, ok := strings.CutPrefix(line, "event:"); ok {
			name = strings.TrimSpace(v)
			continue
		}
		if v, ok := strings.CutPrefix(line, "data:"); ok && name == events.Readout {
			var got session.Readout
			if err := json.Unmarshal([]byte(strings.TrimSpace(v)), &got); err != nil {
				t.Fatalf("bad readout payload %q: %v", v, err)
			}
			if got.Speed != 6 {
				t.Fatalf("unexpected readout %+v", got)
			}
			return
		}
	}
	t.Fatalf("stream ended without a readout: %v", sc.Err())
}

func TestStreamWebsocketCommands(t *testing.T) {
	r, _ := setupTestDaemon(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first wsMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if first.Event != events.Readout {
		t.Fatalf("expected the stream to start with a readout, got %q", first.Event)
	}

	if err := conn.WriteJSON(wsCommand{Action: "sensor-on"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if msg.Event != events.CalibrationPhase {
			continue
		}
		var ev events.CalibrationPhaseEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			t.Fatalf("bad phase payload: %v", err)
		}
		if ev.To != string(calibration.PhaseAwaiting) {
			t.Fatalf("unexpected phase event %+v", ev)
		}
		break
	}

	if err := conn.WriteJSON(wsCommand{Action: "sample", Sample: &orientation.Sample{Z: 9.81, Timestamp: 10}}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := conn.WriteJSON(wsCommand{Action: "confirm"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	waitFor(t, func() bool { return sess.State().Phase() == calibration.PhaseCalibrated })

	w := doRequest(t, r, http.MethodPut, "/foreground", "false")
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", w.Code)
	}
	pitch := sess.State().LatestPitch

	// A tilted jolt while backgrounded must not reach the reducer. Commands
	// are handled in order, so the orientation change marks that the sample
	// has been seen.
	tilted := &orientation.Sample{X: -30, Z: 9.81, Timestamp: 2000}
	if err := conn.WriteJSON(wsCommand{Action: "sample", Sample: tilted}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := conn.WriteJSON(wsCommand{Action: "orientation"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	waitFor(t, func() bool { return sess.State().Phase() == calibration.PhaseAwaiting })

	st := sess.State()
	if st.LatestPitch != pitch || st.FallDetected {
		t.Fatalf("sample applied while in background: %+v", st)
	}
}
