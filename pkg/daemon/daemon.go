package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/treadgrade/treadgrade/pkg/calibration"
	"github.com/treadgrade/treadgrade/pkg/config"
	"github.com/treadgrade/treadgrade/pkg/events"
	"github.com/treadgrade/treadgrade/pkg/orientation"
	"github.com/treadgrade/treadgrade/pkg/sensor"
	"github.com/treadgrade/treadgrade/pkg/session"
)

var (
	conf       config.Config
	sess       *session.Session
	sseHub     *events.EventHub
	feed       *sensorFeed
	scheduler  *Scheduler
	readoutPub *readoutPublisher
)

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/config", getConfig)
	router.GET("/readout", getReadout)
	router.GET("/state", getState)
	router.PUT("/sensor-mode", setSensorMode)
	router.POST("/sensor-mode/toggle", toggleSensorMode)
	router.POST("/calibration/confirm", confirmCalibration)
	router.POST("/orientation", orientationChanged)
	router.PUT("/speed", setSpeed)
	router.POST("/speed/increment", stepSpeed(1))
	router.POST("/speed/decrement", stepSpeed(-1))
	router.PUT("/grade", setGrade)
	router.POST("/grade/increment", stepGrade(1))
	router.POST("/grade/decrement", stepGrade(-1))
	router.PUT("/foreground", setForeground)
	router.GET("/feed", getFeed)
	router.GET("/convert", getConvert)
	router.GET("/recalibration", getRecalibration)
	router.PUT("/recalibration", setRecalibration)
	router.POST("/recalibration/postpone", postponeRecalibration)
	router.POST("/recalibration/skip", skipRecalibration)
	router.GET("/events", streamEvents)
	router.GET("/ws", streamWebsocket)
	router.GET("/version", getVersion)

	return router
}

// newSession builds the session from the config and wires its
// notifications to the event hub and the MQTT publisher.
func newSession(c config.Config) *session.Session {
	machine := calibration.Machine{
		JoltThreshold:  c.JoltThreshold(),
		DebounceMillis: int64(c.DebounceMillis()),
		MaxGrade:       c.MaxGrade(),
	}

	return session.New(session.Options{
		Machine:           machine,
		InitialSpeed:      c.InitialSpeed(),
		SpeedUnit:         c.SpeedUnit(),
		StartInSensorMode: c.StartInSensorMode(),
		OnPhaseChange:     publishPhaseChange,
		OnReadout: func(r session.Readout) {
			sseHub.Publish(events.Readout, r)
			readoutPub.Publish(r)
		},
	})
}

func publishPhaseChange(from, to calibration.State) {
	msg := ""
	switch to.Phase() {
	case calibration.PhaseAwaiting:
		msg = session.BannerCalibrate
		if to.FallDetected {
			msg = session.BannerFall
		}
	case calibration.PhaseCalibrated:
		msg = "Incline sensor calibrated"
	case calibration.PhaseOff:
		msg = "Incline sensor off, using manual grade"
	}

	sseHub.Publish(events.CalibrationPhase, events.CalibrationPhaseEvent{
		From:         string(from.Phase()),
		To:           string(to.Phase()),
		FallDetected: to.FallDetected,
		Message:      msg,
		Ts:           time.Now().Unix(),
	})
	logrus.WithField("event", events.CalibrationPhase).Debug("new event")
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	router := setupRoutes()

	var err error
	conf, err = config.NewFile(configPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	sseHub = events.NewEventHub()

	if conf.MQTTBroker() != "" {
		readoutPub, err = newReadoutPublisher(conf.MQTTBroker(), conf.MQTTClientID(), conf.MQTTReadoutTopic())
		if err != nil {
			// The readout is still served over the socket.
			logrus.WithError(err).Error("failed to start MQTT readout publisher")
		}
	}

	sess = newSession(conf)
	logrus.WithField("phase", sess.State().Phase()).Info("session started")

	clock := sensor.MonotonicClock()
	feed = newSensorFeed(func() (sensor.Source, error) {
		return sensor.Open(conf, clock)
	}, func(s orientation.Sample) {
		sess.ProcessSample(s)
	})
	if err := feed.Start(); err != nil {
		logrus.WithError(err).Error("failed to subscribe to sample feed")
	}

	scheduler = newRecalibrationScheduler()
	if expr := conf.RecalibrationCron(); expr != "" {
		if err := scheduler.Schedule(expr); err != nil {
			logrus.WithError(err).Errorf("invalid recalibration schedule %q", expr)
		} else {
			scheduler.Start()
		}
	}

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
		}
	}()

	srv := &http.Server{
		Handler: router,
	}

	// A stale socket from a crashed daemon would make Listen fail.
	if err := os.Remove(unixSocketPath); err != nil && !os.IsNotExist(err) {
		logrus.Fatal(err)
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if conf.AllowNonRootAccess() || allowNonRoot {
		logrus.Infof("non-root access is allowed, chaning permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(ctx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	logrus.Info("stopping sample feed")
	feed.Stop()

	scheduler.Stop()

	if readoutPub != nil {
		logrus.Info("disconnecting MQTT readout publisher")
		readoutPub.Close()
	}

	logrus.Info("exiting")
	return nil
}
