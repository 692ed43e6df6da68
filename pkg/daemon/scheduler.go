package daemon

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/treadgrade/treadgrade/pkg/calibration"
	"github.com/treadgrade/treadgrade/pkg/events"
	"github.com/treadgrade/treadgrade/pkg/types"
)

// leadDuration is how long before a recalibration the user is warned.
var leadDuration = time.Minute

// idleWait is the timer used while no schedule is set.
const idleWait = time.Hour * 10000

// TaskFunc represents a runnable task.
type TaskFunc func() error

// Scheduler runs a task on a cron schedule and announces each run ahead
// of time. Runs can be postponed or skipped individually.
type Scheduler struct {
	OnUpcoming func(runAt time.Time) // called leadDuration before a run
	OnError    func(err error)       // called on task error
	Task       TaskFunc

	parser cron.Parser

	expr     string
	schedule cron.Schedule
	nextRun  time.Time

	mu      sync.Mutex
	running bool

	controlCh chan controlMsg
	stopCh    chan struct{}
}

type controlKind int

const (
	ctrlRecalculate controlKind = iota // schedule changed or was cleared
	ctrlPostpone                       // next run postponed
	ctrlSkip                           // next run skipped
)

type controlMsg struct {
	kind controlKind
	data any
}

func NewScheduler(task TaskFunc, onUpcoming func(time.Time), onError func(error)) *Scheduler {
	if task == nil {
		panic("task function cannot be nil")
	}

	return &Scheduler{
		OnUpcoming: onUpcoming,
		OnError:    onError,
		Task:       task,
		parser:     cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		controlCh:  make(chan controlMsg, 4),
		stopCh:     make(chan struct{}),
	}
}

// newRecalibrationScheduler expires the calibration of the global session
// on every run, so the user is asked to level the device again.
func newRecalibrationScheduler() *Scheduler {
	task := func() error {
		if sess == nil {
			return fmt.Errorf("no session")
		}
		if sess.State().Phase() != calibration.PhaseCalibrated {
			logrus.Debug("calibration not trusted, nothing to expire")
			return nil
		}
		st := sess.Expire()
		logrus.WithField("phase", st.Phase()).Info("calibration expired by schedule")
		return nil
	}

	onUpcoming := func(runAt time.Time) {
		sseHub.Publish(events.RecalibrationUpcoming, events.RecalibrationEvent{
			RunAt:   runAt.Unix(),
			Message: fmt.Sprintf("Recalibration required at %s", runAt.Format(time.Kitchen)),
			Ts:      time.Now().Unix(),
		})
	}

	onError := func(err error) {
		logrus.WithError(err).Error("scheduled recalibration failed")
		sseHub.Publish(events.RecalibrationError, events.RecalibrationEvent{
			Message: err.Error(),
			Ts:      time.Now().Unix(),
		})
	}

	return NewScheduler(task, onUpcoming, onError)
}

func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	select {
	case <-s.stopCh: // already closed
	default:
		close(s.stopCh)
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.runScheduled()
}

// Schedule replaces the cron expression. An empty expression clears the
// schedule without stopping the scheduler.
func (s *Scheduler) Schedule(cronExpr string) error {
	var sh cron.Schedule
	if cronExpr != "" {
		var err error
		sh, err = s.parser.Parse(cronExpr)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.expr = cronExpr
	running := s.running
	if !running {
		s.schedule = sh
		s.nextRun = nextAfter(sh, time.Now())
	}
	s.mu.Unlock()

	if running {
		s.trySendControl(ctrlRecalculate, sh)
	}
	return nil
}

// Postpone postpones the next scheduled run by the given duration. The
// postponed run must still come before the one after it.
func (s *Scheduler) Postpone(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("postpone duration must be positive")
	}

	s.mu.Lock()
	if s.schedule == nil || s.nextRun.IsZero() || !s.running {
		s.mu.Unlock()
		return fmt.Errorf("no active schedule to postpone")
	}
	orig := s.nextRun
	following := s.schedule.Next(orig).Truncate(time.Second)
	s.mu.Unlock()

	pp := orig.Add(d).Truncate(time.Second)
	if pp.Compare(following) >= 0 {
		return fmt.Errorf("postpone duration too long")
	}

	s.mu.Lock()
	s.nextRun = pp
	s.mu.Unlock()

	s.trySendControl(ctrlPostpone, pp)
	return nil
}

// Skip skips the next scheduled run.
func (s *Scheduler) Skip() error {
	s.mu.Lock()
	if s.schedule == nil || s.nextRun.IsZero() {
		s.mu.Unlock()
		return fmt.Errorf("no active schedule to skip")
	}
	s.nextRun = s.schedule.Next(s.nextRun)
	running := s.running
	s.mu.Unlock()

	if running {
		s.trySendControl(ctrlSkip, nil)
	}
	return nil
}

func (s *Scheduler) Status() types.RecalibrationStatus {
	if s == nil {
		return types.RecalibrationStatus{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return types.RecalibrationStatus{
		Schedule: s.expr,
		Running:  s.running,
		NextRun:  s.nextRun,
	}
}

func (s *Scheduler) runScheduled() {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		logrus.Debug("recalibration scheduler stopped")
	}()

	logrus.Debug("recalibration scheduler started")

	for {
		leading := true

		schedule, nextRun := s.snapshot()
		wait := idleWait
		if schedule != nil && !nextRun.IsZero() {
			wait = max(time.Until(nextRun)-leadDuration, 0)
		}
		timer := time.NewTimer(wait)

	loop:
		for {
			select {
			case <-timer.C:
				if schedule == nil || nextRun.IsZero() {
					break loop
				}

				if leading {
					logrus.Debugf("upcoming recalibration at %s", nextRun.Format(time.DateTime))
					leading = false
					timer.Reset(max(time.Until(nextRun), 0))
					s.sendUpcoming(nextRun)
					continue
				}

				logrus.Debugf("running recalibration at %s", nextRun.Format(time.DateTime))
				go func() {
					if err := s.Task(); err != nil {
						s.sendError(fmt.Errorf("task failed: %w", err))
					}
				}()
				s.advanceNextRun()
				break loop
			case <-s.stopCh:
				timer.Stop()
				return
			case msg := <-s.controlCh:
				logrus.WithFields(logrus.Fields{
					"kind": msg.kind,
					"data": msg.data,
				}).Debug("received control msg")

				timer.Stop()
				switch msg.kind {
				case ctrlRecalculate:
					sh, _ := msg.data.(cron.Schedule)
					s.mu.Lock()
					s.schedule = sh
					s.nextRun = nextAfter(sh, time.Now())
					s.mu.Unlock()
				case ctrlPostpone:
					// Only the current run moves. Announce it again.
					pp := msg.data.(time.Time)
					nextRun = pp
					leading = true
					timer.Reset(max(time.Until(pp)-leadDuration, 0))
					continue
				case ctrlSkip:
				}
				break loop
			}
		}
	}
}

func nextAfter(sh cron.Schedule, t time.Time) time.Time {
	if sh == nil {
		return time.Time{}
	}
	return sh.Next(t)
}

func (s *Scheduler) snapshot() (cron.Schedule, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule, s.nextRun
}

func (s *Scheduler) advanceNextRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == nil {
		return
	}
	s.nextRun = s.schedule.Next(s.nextRun)
}

func (s *Scheduler) sendUpcoming(runAt time.Time) {
	if s.OnUpcoming == nil {
		return
	}

	go s.OnUpcoming(runAt)
}

func (s *Scheduler) sendError(err error) {
	if s.OnError == nil {
		return
	}

	go s.OnError(err)
}

func (s *Scheduler) trySendControl(kind controlKind, data any) {
	select {
	case s.controlCh <- controlMsg{kind: kind, data: data}:
	default:
	}
}
