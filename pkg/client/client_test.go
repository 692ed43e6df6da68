package client

import (
	"errors"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
)

func serveUnix(t *testing.T, h http.Handler) string {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "d.sock")
	l, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: h}
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })
	return sock
}

func TestClientDaemonNotRunning(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	_, err := c.Get("/readout")
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestClientRoundTrip(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/readout", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"speed":6,"speedUnit":"mph","grade":10,"flatSpeed":5.08,"sensorStatus":"ON","phase":"Calibrated"}`)
	})
	mux.HandleFunc("/speed", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		b, _ := io.ReadAll(r.Body)
		if string(b) != `"7.5"` {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `"bad body"`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `"set speed to 7.5 mph"`)
	})
	c := NewClient(serveUnix(t, mux))

	r, err := c.GetReadout()
	if err != nil {
		t.Fatalf("GetReadout: %v", err)
	}
	if r.Speed != 6 || r.SensorStatus != "ON" || r.Grade != 10 {
		t.Fatalf("unexpected readout %+v", r)
	}

	msg, err := c.SetSpeed("7.5")
	if err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}
	if msg != "set speed to 7.5 mph" {
		t.Fatalf("unexpected message %q", msg)
	}

	if _, err := c.Get("/nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := c.Send("DELETE", "/speed", ""); err == nil {
		t.Fatalf("expected an error for an unsupported method")
	}
}
