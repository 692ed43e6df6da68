package daemon

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/treadgrade/treadgrade/pkg/events"
	"github.com/treadgrade/treadgrade/pkg/orientation"
)

const keepAliveInterval = 15 * time.Second

var upgrader = websocket.Upgrader{
	// The socket is local, there is no browser origin to check.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamEvents serves the event hub as server-sent events. The stream is
// primed with the current readout and the last phase change.
func streamEvents(c *gin.Context) {
	ch := sseHub.Subscribe()
	defer sseHub.Unsubscribe(ch)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	if ev, ok := sseHub.Latest(events.CalibrationPhase); ok {
		c.SSEvent(ev.Name, string(ev.Data))
	}
	if b, err := json.Marshal(sess.Readout()); err == nil {
		c.SSEvent(events.Readout, string(b))
	}
	c.Writer.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		case <-ticker.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// wsMessage is sent to websocket clients. It mirrors the SSE framing.
type wsMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wsCommand is received from websocket clients. Action is one of toggle,
// sensor-on, sensor-off, confirm, orientation or sample.
type wsCommand struct {
	Action string              `json:"action"`
	Sample *orientation.Sample `json:"sample,omitempty"`
}

// streamWebsocket pushes the same events as streamEvents and accepts
// commands, including samples from a sensor that connects directly.
func streamWebsocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := sseHub.Subscribe()
	defer sseHub.Unsubscribe(ch)

	var writeMu sync.Mutex
	send := func(m wsMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteJSON(m)
	}

	if b, err := json.Marshal(sess.Readout()); err == nil {
		if err := send(wsMessage{Event: events.Readout, Data: b}); err != nil {
			return
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logrus.WithError(err).Debug("websocket read failed")
				}
				return
			}
			handleWSCommand(cmd)
		}
	}()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := send(wsMessage{Event: ev.Name, Data: ev.Data}); err != nil {
				logrus.WithError(err).Debug("websocket write failed")
				return
			}
		case <-done:
			return
		}
	}
}

func handleWSCommand(cmd wsCommand) {
	switch cmd.Action {
	case "toggle":
		sess.ToggleSensorMode()
	case "sensor-on":
		sess.SetSensorMode(true)
	case "sensor-off":
		sess.SetSensorMode(false)
	case "confirm":
		sess.ConfirmCalibration()
	case "orientation":
		sess.OrientationChanged()
	case "sample":
		if cmd.Sample == nil {
			return
		}
		// Sensor updates are paused while in the background.
		if !sess.Foreground() {
			logrus.Debug("dropping websocket sample while in background")
			return
		}
		sess.ProcessSample(*cmd.Sample)
	default:
		logrus.Debugf("unknown websocket action %q", cmd.Action)
	}
}
