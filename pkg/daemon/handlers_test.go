package daemon

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/treadgrade/treadgrade/pkg/calibration"
	"github.com/treadgrade/treadgrade/pkg/config"
	"github.com/treadgrade/treadgrade/pkg/events"
	"github.com/treadgrade/treadgrade/pkg/orientation"
	"github.com/treadgrade/treadgrade/pkg/sensor"
	"github.com/treadgrade/treadgrade/pkg/session"
	"github.com/treadgrade/treadgrade/pkg/types"
)

func setupTestDaemon(t *testing.T) (*gin.Engine, string) {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "treadgrade.json")
	conf = config.NewFileFromConfig(nil, configPath)
	sseHub = events.NewEventHub()
	readoutPub = nil
	sess = newSession(conf)
	feed = newSensorFeed(func() (sensor.Source, error) { return nil, nil }, func(orientation.Sample) {})
	scheduler = newRecalibrationScheduler()

	t.Cleanup(func() {
		scheduler.Stop()
		feed.Stop()
	})

	return setupRoutes(), configPath
}

func doRequest(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestGetReadoutDefaults(t *testing.T) {
	r, _ := setupTestDaemon(t)

	w := doRequest(t, r, http.MethodGet, "/readout", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}

	got := decode[session.Readout](t, w)
	if got.Speed != 6 || got.SpeedUnit != "mph" {
		t.Errorf("unexpected speed %v %s", got.Speed, got.SpeedUnit)
	}
	if got.SensorStatus != session.StatusOff || got.GradeSource != session.GradeSourceManual {
		t.Errorf("expected manual mode with sensor off, got %+v", got)
	}
	if got.Grade != 0 || got.FlatSpeed != 6 {
		t.Errorf("expected flat speed to equal speed at 0%%, got %+v", got)
	}
}

func TestCalibrationFlow(t *testing.T) {
	r, _ := setupTestDaemon(t)

	w := doRequest(t, r, http.MethodPut, "/sensor-mode", "true")
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	if got := sess.Readout(); got.SensorStatus != session.StatusCalibrationRequired || got.Banner != session.BannerCalibrate {
		t.Fatalf("expected calibration prompt, got %+v", got)
	}

	ev, ok := sseHub.Latest(events.CalibrationPhase)
	if !ok {
		t.Fatalf("expected a phase change event")
	}
	phase, err := events.DecodeAs[events.CalibrationPhaseEvent](ev)
	if err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if phase.From != string(calibration.PhaseOff) || phase.To != string(calibration.PhaseAwaiting) {
		t.Fatalf("unexpected phase event %+v", phase)
	}

	// Device lying flat.
	sess.ProcessSample(orientation.Sample{Z: 9.81, Timestamp: 1000})

	w = doRequest(t, r, http.MethodPost, "/calibration/confirm", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, r, http.MethodGet, "/state", "")
	info := decode[types.CalibrationInfo](t, w)
	if info.Phase != calibration.PhaseCalibrated || !info.Calibrated || info.ShowCalibration {
		t.Fatalf("expected calibrated state, got %+v", info)
	}

	// Confirming again is a no-op.
	w = doRequest(t, r, http.MethodPost, "/calibration/confirm", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected no-op confirm to return 200, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPost, "/orientation", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if got := sess.State(); got.Phase() != calibration.PhaseAwaiting || got.FallDetected {
		t.Fatalf("expected plain recalibration prompt, got %+v", got)
	}

	w = doRequest(t, r, http.MethodPost, "/sensor-mode/toggle", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if got := sess.State(); got.Phase() != calibration.PhaseOff || got.ShowCalibration {
		t.Fatalf("expected sensor off, got %+v", got)
	}
}

func TestSetSensorModeBadBody(t *testing.T) {
	r, _ := setupTestDaemon(t)

	w := doRequest(t, r, http.MethodPut, "/sensor-mode", `"yes"`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSpeedAndGradeInput(t *testing.T) {
	r, _ := setupTestDaemon(t)

	tests := []struct {
		name      string
		method    string
		path      string
		body      string
		wantCode  int
		wantSpeed float64
		wantGrade float64
	}{
		{"set speed", http.MethodPut, "/speed", `"7.5"`, http.StatusCreated, 7.5, 0},
		{"invalid speed ignored", http.MethodPut, "/speed", `"fast"`, http.StatusOK, 7.5, 0},
		{"speed up", http.MethodPost, "/speed/increment", "", http.StatusCreated, 7.6, 0},
		{"speed down", http.MethodPost, "/speed/decrement", "", http.StatusCreated, 7.5, 0},
		{"set grade", http.MethodPut, "/grade", `"12"`, http.StatusCreated, 7.5, 12},
		{"grade clamped", http.MethodPut, "/grade", `"45"`, http.StatusCreated, 7.5, 30},
		{"grade down", http.MethodPost, "/grade/decrement", "", http.StatusCreated, 7.5, 29.5},
		{"grade up stays clamped", http.MethodPost, "/grade/increment", "", http.StatusCreated, 7.5, 30},
		{"invalid grade ignored", http.MethodPut, "/grade", `""`, http.StatusOK, 7.5, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, r, tt.method, tt.path, tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if got := sess.Speed(); math.Abs(got-tt.wantSpeed) > 1e-9 {
				t.Errorf("speed = %v, want %v", got, tt.wantSpeed)
			}
			if got := sess.ManualGrade(); math.Abs(got-tt.wantGrade) > 1e-9 {
				t.Errorf("manual grade = %v, want %v", got, tt.wantGrade)
			}
		})
	}
}

func TestGetConvert(t *testing.T) {
	r, _ := setupTestDaemon(t)

	w := doRequest(t, r, http.MethodGet, "/convert?speed=6&grade=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	got := decode[types.Conversion](t, w)
	if math.Abs(got.FlatSpeed-6/1.18) > 1e-9 {
		t.Errorf("flat speed = %v, want %v", got.FlatSpeed, 6/1.18)
	}
	if math.Abs(got.Pace-10) > 1e-9 {
		t.Errorf("pace = %v, want 10", got.Pace)
	}

	// The calculator does not touch the session.
	if sess.Speed() != 6 || sess.ManualGrade() != 0 {
		t.Errorf("session changed by conversion")
	}

	w = doRequest(t, r, http.MethodGet, "/convert?speed=6&grade=99", "")
	if got := decode[types.Conversion](t, w); got.Grade != 30 {
		t.Errorf("expected grade clamped to 30, got %v", got.Grade)
	}

	for _, q := range []string{"", "?speed=abc", "?speed=-1", "?speed=5&grade=x"} {
		w = doRequest(t, r, http.MethodGet, "/convert"+q, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%q: expected 400, got %d", q, w.Code)
		}
	}
}

func TestSetForeground(t *testing.T) {
	r, _ := setupTestDaemon(t)

	w := doRequest(t, r, http.MethodPut, "/foreground", "false")
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if sess.Foreground() || sess.Readout().Foreground {
		t.Fatalf("expected background")
	}

	w = doRequest(t, r, http.MethodPut, "/foreground", "true")
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if !sess.Foreground() {
		t.Fatalf("expected foreground")
	}
}

func TestSetForegroundFeedError(t *testing.T) {
	r, _ := setupTestDaemon(t)
	feed = newSensorFeed(func() (sensor.Source, error) {
		return nil, errors.New("serial port gone")
	}, func(orientation.Sample) {})

	w := doRequest(t, r, http.MethodPut, "/foreground", "false")
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPut, "/foreground", "true")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if sess.Foreground() {
		t.Fatalf("session must stay in the background without a feed")
	}

	got := decode[types.FeedStatus](t, doRequest(t, r, http.MethodGet, "/feed", ""))
	if got.Running || got.LastError != "serial port gone" {
		t.Fatalf("unexpected feed status %+v", got)
	}
}

func TestGetFeed(t *testing.T) {
	r, _ := setupTestDaemon(t)

	w := doRequest(t, r, http.MethodGet, "/feed", "")
	got := decode[types.FeedStatus](t, w)
	if got.Source != string(config.SensorSourceNone) || got.Running {
		t.Fatalf("unexpected feed status %+v", got)
	}
}

func TestRecalibrationSchedule(t *testing.T) {
	r, configPath := setupTestDaemon(t)

	w := doRequest(t, r, http.MethodPost, "/recalibration/skip", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a schedule, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPut, "/recalibration", `"not a cron"`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad expression, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPut, "/recalibration", `"@every 1h"`)
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	if conf.RecalibrationCron() != "@every 1h" {
		t.Fatalf("schedule not stored in config")
	}
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("config not saved: %v", err)
	}

	w = doRequest(t, r, http.MethodGet, "/recalibration", "")
	st := decode[types.RecalibrationStatus](t, w)
	if st.Schedule != "@every 1h" || st.NextRun.IsZero() {
		t.Fatalf("unexpected status %+v", st)
	}

	w = doRequest(t, r, http.MethodPost, "/recalibration/postpone", `"10m"`)
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	w = doRequest(t, r, http.MethodPost, "/recalibration/postpone", `"soon"`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad duration, got %d", w.Code)
	}

	w = doRequest(t, r, http.MethodPost, "/recalibration/skip", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, r, http.MethodPut, "/recalibration", `""`)
	if w.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if conf.RecalibrationCron() != "" {
		t.Fatalf("expected schedule to be cleared")
	}
}

func TestGetConfigAndVersion(t *testing.T) {
	r, _ := setupTestDaemon(t)

	w := doRequest(t, r, http.MethodGet, "/config", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}

	w = doRequest(t, r, http.MethodGet, "/version", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
}
