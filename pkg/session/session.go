package session

import (
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/treadgrade/treadgrade/pkg/calibration"
	"github.com/treadgrade/treadgrade/pkg/incline"
	"github.com/treadgrade/treadgrade/pkg/orientation"
)

// PhaseChangeFunc is called after a calibration phase change.
type PhaseChangeFunc func(from, to calibration.State)

// ReadoutFunc is called whenever the readout changes.
type ReadoutFunc func(Readout)

type Options struct {
	Machine           calibration.Machine
	InitialSpeed      float64
	SpeedUnit         string
	StartInSensorMode bool

	OnPhaseChange PhaseChangeFunc
	OnReadout     ReadoutFunc
}

// Session owns the calibration state, belt speed and manual grade of one
// treadmill run. All methods are safe for concurrent use; mutations are
// serialized so the reducer sees one event at a time.
type Session struct {
	mu sync.Mutex

	machine     calibration.Machine
	state       calibration.State
	speed       float64
	manualGrade float64
	unit        string
	foreground  bool
	last        Readout

	onPhaseChange PhaseChangeFunc
	onReadout     ReadoutFunc
}

func New(opts Options) *Session {
	if opts.Machine == (calibration.Machine{}) {
		opts.Machine = calibration.NewMachine()
	}
	if opts.SpeedUnit == "" {
		opts.SpeedUnit = "mph"
	}

	s := &Session{
		machine:       opts.Machine,
		state:         calibration.Restore(calibration.State{SensorMode: opts.StartInSensorMode}),
		speed:         incline.ClampSpeed(opts.InitialSpeed),
		unit:          opts.SpeedUnit,
		foreground:    true,
		onPhaseChange: opts.OnPhaseChange,
		onReadout:     opts.OnReadout,
	}
	s.last = s.readoutLocked()
	return s
}

// Apply feeds one event to the calibration machine.
func (s *Session) Apply(ev calibration.Event) calibration.State {
	s.mu.Lock()
	prev := s.state
	s.state = s.machine.Reduce(s.state, ev)
	next := s.state
	r, changed := s.refreshLocked()
	s.mu.Unlock()

	if prev.Phase() != next.Phase() || prev.FallDetected != next.FallDetected {
		logrus.WithFields(logrus.Fields{
			"event":        ev.Kind,
			"from":         prev.Phase(),
			"to":           next.Phase(),
			"fallDetected": next.FallDetected,
		}).Info("calibration phase changed")
		if s.onPhaseChange != nil {
			s.onPhaseChange(prev, next)
		}
	}
	s.notify(r, changed)
	return next
}

func (s *Session) ToggleSensorMode() calibration.State {
	return s.Apply(calibration.Event{Kind: calibration.EventToggleSensorMode})
}

func (s *Session) SetSensorMode(enabled bool) calibration.State {
	return s.Apply(calibration.Event{Kind: calibration.EventSetSensorMode, Enabled: enabled})
}

func (s *Session) ConfirmCalibration() calibration.State {
	return s.Apply(calibration.Event{Kind: calibration.EventConfirmCalibration})
}

func (s *Session) ProcessSample(sample orientation.Sample) calibration.State {
	return s.Apply(calibration.Event{Kind: calibration.EventSample, Sample: sample})
}

func (s *Session) OrientationChanged() calibration.State {
	return s.Apply(calibration.Event{Kind: calibration.EventOrientationChange})
}

func (s *Session) Expire() calibration.State {
	return s.Apply(calibration.Event{Kind: calibration.EventExpire})
}

// SetSpeedText parses text as a belt speed. Text that is not a finite,
// non-negative number is ignored and the previous speed is kept. ok reports
// whether the speed was accepted.
func (s *Session) SetSpeedText(text string) (speed float64, ok bool) {
	v, ok := parseNumber(text)
	if !ok || v < 0 {
		return s.Speed(), false
	}
	s.mutate(func() {
		s.speed = normalizeSpeed(v)
		speed = s.speed
	})
	return speed, true
}

// SetGradeText parses text as a manual grade in percent. Invalid text is
// ignored; valid grades are clamped to the machine's bound.
func (s *Session) SetGradeText(text string) (grade float64, ok bool) {
	v, ok := parseNumber(text)
	if !ok {
		return s.ManualGrade(), false
	}
	s.mutate(func() {
		s.manualGrade = s.normalizeGrade(v)
		grade = s.manualGrade
	})
	return grade, true
}

// StepSpeed moves the speed by steps increments of incline.SpeedStep.
func (s *Session) StepSpeed(steps int) (speed float64) {
	s.mutate(func() {
		s.speed = normalizeSpeed(s.speed + float64(steps)*incline.SpeedStep)
		speed = s.speed
	})
	return speed
}

// StepGrade moves the manual grade by steps increments of incline.GradeStep.
func (s *Session) StepGrade(steps int) (grade float64) {
	s.mutate(func() {
		s.manualGrade = s.normalizeGrade(s.manualGrade + float64(steps)*incline.GradeStep)
		grade = s.manualGrade
	})
	return grade
}

// SetForeground records whether the display is in the foreground. It does
// not touch the calibration state.
func (s *Session) SetForeground(foreground bool) {
	s.mutate(func() { s.foreground = foreground })
}

func (s *Session) Foreground() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.foreground
}

func (s *Session) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

func (s *Session) ManualGrade() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manualGrade
}

func (s *Session) State() calibration.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Machine() calibration.Machine {
	return s.machine
}

func (s *Session) Readout() Readout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readoutLocked()
}

// mutate runs fn under the lock and reports the resulting readout.
func (s *Session) mutate(fn func()) {
	s.mu.Lock()
	fn()
	r, changed := s.refreshLocked()
	s.mu.Unlock()
	s.notify(r, changed)
}

func (s *Session) normalizeGrade(v float64) float64 {
	return incline.Round(incline.ClampGrade(v, s.machine.MaxGrade), 2)
}

func normalizeSpeed(v float64) float64 {
	return incline.Round(incline.ClampSpeed(v), 2)
}

func (s *Session) readoutLocked() Readout {
	return NewReadout(s.machine, s.state, View{
		Speed:       s.speed,
		ManualGrade: s.manualGrade,
		SpeedUnit:   s.unit,
		Foreground:  s.foreground,
	})
}

func (s *Session) refreshLocked() (Readout, bool) {
	r := s.readoutLocked()
	changed := r != s.last
	s.last = r
	return r, changed
}

func (s *Session) notify(r Readout, changed bool) {
	if changed && s.onReadout != nil {
		s.onReadout(r)
	}
}

func parseNumber(text string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
