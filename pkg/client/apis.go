package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/treadgrade/treadgrade/pkg/config"
	"github.com/treadgrade/treadgrade/pkg/session"
	"github.com/treadgrade/treadgrade/pkg/types"
)

func (c *Client) SetSensorMode(enabled bool) (string, error) {
	return message(c.Put("/sensor-mode", strconv.FormatBool(enabled)))
}

func (c *Client) ToggleSensorMode() (string, error) {
	return message(c.Post("/sensor-mode/toggle", ""))
}

func (c *Client) ConfirmCalibration() (string, error) {
	return message(c.Post("/calibration/confirm", ""))
}

func (c *Client) OrientationChanged() (string, error) {
	return message(c.Post("/orientation", ""))
}

// SetSpeed sends the speed as typed. The daemon ignores text that is not a
// non-negative number.
func (c *Client) SetSpeed(text string) (string, error) {
	return message(c.Put("/speed", quote(text)))
}

func (c *Client) StepSpeed(up bool) (string, error) {
	if up {
		return message(c.Post("/speed/increment", ""))
	}
	return message(c.Post("/speed/decrement", ""))
}

func (c *Client) SetGrade(text string) (string, error) {
	return message(c.Put("/grade", quote(text)))
}

func (c *Client) StepGrade(up bool) (string, error) {
	if up {
		return message(c.Post("/grade/increment", ""))
	}
	return message(c.Post("/grade/decrement", ""))
}

func (c *Client) SetForeground(foreground bool) (string, error) {
	return message(c.Put("/foreground", strconv.FormatBool(foreground)))
}

func (c *Client) SetRecalibration(cronExpr string) (string, error) {
	return message(c.Put("/recalibration", quote(cronExpr)))
}

func (c *Client) PostponeRecalibration(d time.Duration) (string, error) {
	return message(c.Post("/recalibration/postpone", quote(d.String())))
}

func (c *Client) SkipRecalibration() (string, error) {
	return message(c.Post("/recalibration/skip", ""))
}

func (c *Client) GetRecalibration() (*types.RecalibrationStatus, error) {
	return getJSON[types.RecalibrationStatus](c, "/recalibration", "recalibration schedule")
}

func (c *Client) GetReadout() (*session.Readout, error) {
	return getJSON[session.Readout](c, "/readout", "readout")
}

func (c *Client) GetState() (*types.CalibrationInfo, error) {
	return getJSON[types.CalibrationInfo](c, "/state", "calibration state")
}

func (c *Client) GetFeed() (*types.FeedStatus, error) {
	return getJSON[types.FeedStatus](c, "/feed", "feed status")
}

func (c *Client) Convert(speed, grade float64) (*types.Conversion, error) {
	q := url.Values{}
	q.Set("speed", strconv.FormatFloat(speed, 'f', -1, 64))
	q.Set("grade", strconv.FormatFloat(grade, 'f', -1, 64))
	return getJSON[types.Conversion](c, "/convert?"+q.Encode(), "conversion")
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	return getJSON[config.RawFileConfig](c, "/config", "config")
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	return message(ret, nil)
}

func getJSON[T any](c *Client, path, what string) (*T, error) {
	ret, err := c.Get(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get %s", what)
	}

	var v T
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal %s", what)
	}
	return &v, nil
}

// message unwraps the JSON string the daemon answers commands with.
func message(ret string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	var s string
	if json.Unmarshal([]byte(ret), &s) != nil {
		return ret, nil
	}
	return s, nil
}

func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal string %q: %v", s, err))
	}
	return string(b)
}
