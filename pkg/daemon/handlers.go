package daemon

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/treadgrade/treadgrade/pkg/config"
	"github.com/treadgrade/treadgrade/pkg/incline"
	"github.com/treadgrade/treadgrade/pkg/orientation"
	"github.com/treadgrade/treadgrade/pkg/types"
	"github.com/treadgrade/treadgrade/pkg/version"
)

func getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func getReadout(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, sess.Readout())
}

func getState(c *gin.Context) {
	st := sess.State()
	c.IndentedJSON(http.StatusOK, types.CalibrationInfo{Phase: st.Phase(), State: st})
}

func setSensorMode(c *gin.Context) {
	var enabled bool
	if err := c.BindJSON(&enabled); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	sess.SetSensorMode(enabled)
	logrus.Infof("set sensor mode to %t", enabled)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("sensor status: %s", sess.Readout().SensorStatus))
}

func toggleSensorMode(c *gin.Context) {
	st := sess.ToggleSensorMode()
	logrus.Infof("toggled sensor mode to %t", st.SensorMode)

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("sensor status: %s", sess.Readout().SensorStatus))
}

func confirmCalibration(c *gin.Context) {
	before := sess.State().Phase()
	st := sess.ConfirmCalibration()

	if st.Phase() == before {
		c.IndentedJSON(http.StatusOK, fmt.Sprintf("nothing to confirm, sensor status: %s", sess.Readout().SensorStatus))
		return
	}

	logrus.WithField("pitch", st.CalibrationPitch).Info("calibration confirmed")
	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("calibrated at %.1f° pitch", orientation.Degrees(st.CalibrationPitch)))
}

func orientationChanged(c *gin.Context) {
	st := sess.OrientationChanged()
	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("phase: %s", st.Phase()))
}

// setSpeed takes the raw text typed by the user. Text that is not a
// number leaves the speed unchanged.
func setSpeed(c *gin.Context) {
	var text string
	if err := c.BindJSON(&text); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	speed, ok := sess.SetSpeedText(text)
	if !ok {
		logrus.Debugf("ignored speed input %q", text)
		c.IndentedJSON(http.StatusOK, fmt.Sprintf("ignored %q, speed stays at %.1f %s", text, speed, conf.SpeedUnit()))
		return
	}

	logrus.Infof("set speed to %.2f", speed)
	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set speed to %.1f %s", speed, conf.SpeedUnit()))
}

func stepSpeed(steps int) gin.HandlerFunc {
	return func(c *gin.Context) {
		speed := sess.StepSpeed(steps)
		c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set speed to %.1f %s", speed, conf.SpeedUnit()))
	}
}

func setGrade(c *gin.Context) {
	var text string
	if err := c.BindJSON(&text); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	grade, ok := sess.SetGradeText(text)
	if !ok {
		logrus.Debugf("ignored grade input %q", text)
		c.IndentedJSON(http.StatusOK, fmt.Sprintf("ignored %q, manual grade stays at %.1f%%", text, grade))
		return
	}

	logrus.Infof("set manual grade to %.1f", grade)
	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set manual grade to %.1f%%", grade))
}

func stepGrade(steps int) gin.HandlerFunc {
	return func(c *gin.Context) {
		grade := sess.StepGrade(steps)
		c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set manual grade to %.1f%%", grade))
	}
}

// setForeground unsubscribes from the sensor while the app is in the
// background and subscribes again when it returns.
func setForeground(c *gin.Context) {
	var fg bool
	if err := c.BindJSON(&fg); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if !fg {
		sess.SetForeground(false)
		feed.Stop()
		c.IndentedJSON(http.StatusCreated, "in background, sample feed stopped")
		return
	}

	// Stay in the background until the feed is back.
	if feed != nil {
		if err := feed.Start(); err != nil {
			logrus.WithError(err).Error("failed to restart sample feed")
			c.IndentedJSON(http.StatusInternalServerError, err.Error())
			_ = c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
	}
	sess.SetForeground(true)

	c.IndentedJSON(http.StatusCreated, "in foreground")
}

func getFeed(c *gin.Context) {
	st := feed.Status()
	st.Source = string(conf.SensorSource())
	c.IndentedJSON(http.StatusOK, st)
}

// getConvert is a stateless calculator. It does not touch the session.
func getConvert(c *gin.Context) {
	speed, err := strconv.ParseFloat(c.Query("speed"), 64)
	if err != nil || speed < 0 {
		err = fmt.Errorf("speed must be a non-negative number, got %q", c.Query("speed"))
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	grade := 0.0
	if q := c.Query("grade"); q != "" {
		grade, err = strconv.ParseFloat(q, 64)
		if err != nil {
			err = fmt.Errorf("grade must be a number, got %q", q)
			c.IndentedJSON(http.StatusBadRequest, err.Error())
			_ = c.AbortWithError(http.StatusBadRequest, err)
			return
		}
	}
	grade = incline.ClampGrade(grade, conf.MaxGrade())

	flat := incline.FlatSpeed(speed, grade)
	c.IndentedJSON(http.StatusOK, types.Conversion{
		Speed:     speed,
		Grade:     grade,
		FlatSpeed: flat,
		Pace:      incline.Pace(speed),
		FlatPace:  incline.Pace(flat),
	})
}

func getRecalibration(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, scheduler.Status())
}

// setRecalibration replaces the recalibration schedule. An empty
// expression disables it.
func setRecalibration(c *gin.Context) {
	var expr string
	if err := c.BindJSON(&expr); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if err := scheduler.Schedule(expr); err != nil {
		err = fmt.Errorf("invalid cron expression %q: %w", expr, err)
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}
	if expr != "" {
		scheduler.Start()
	}

	conf.SetRecalibrationCron(expr)
	if err := conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if expr == "" {
		logrus.Info("disabled recalibration schedule")
		c.IndentedJSON(http.StatusCreated, "recalibration schedule disabled")
		return
	}

	logrus.Infof("set recalibration schedule to %q", expr)
	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("next recalibration at %s", scheduler.Status().NextRun.Format(time.DateTime)))
}

func postponeRecalibration(c *gin.Context) {
	var text string
	if err := c.BindJSON(&text); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	d, err := time.ParseDuration(text)
	if err == nil {
		err = scheduler.Postpone(d)
	}
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("recalibration postponed to %s", scheduler.Status().NextRun.Format(time.DateTime)))
}

func skipRecalibration(c *gin.Context) {
	if err := scheduler.Skip(); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("next recalibration at %s", scheduler.Status().NextRun.Format(time.DateTime)))
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
