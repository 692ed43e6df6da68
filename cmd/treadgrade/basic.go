package main

import (
	"github.com/spf13/cobra"

	"github.com/treadgrade/treadgrade/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewSensorCommand() *cobra.Command {
	cmd := newOnOffCommand(
		"sensor",
		"Switch between sensor-derived and manual grade",
		`Switch between sensor-derived and manual grade.

Turning the sensor on always asks for calibration first. Place the device flat
on the treadmill deck with the belt level, then run "treadgrade calibrate".`,
		gBasic,
		func(on bool) (string, error) { return apiClient.SetSensorMode(on) },
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Toggle sensor mode",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ret, err := apiClient.ToggleSensorMode()
			return respond(ret, err, "toggle sensor mode")
		},
	})

	return cmd
}

func NewCalibrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "calibrate",
		Short:   "Confirm the device is level",
		GroupID: gBasic,
		Long: `Confirm the device is level.

The current pitch becomes the zero-grade reference. This only has an effect
while the sensor is on and waiting for calibration.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ret, err := apiClient.ConfirmCalibration()
			return respond(ret, err, "confirm calibration")
		},
	}
}

func NewOrientationCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "orientation",
		Short:   "Report that the device was rotated",
		GroupID: gAdvanced,
		Long: `Report that the device was rotated.

A calibrated sensor goes back to waiting for calibration.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ret, err := apiClient.OrientationChanged()
			return respond(ret, err, "report orientation change")
		},
	}
}

func NewSpeedCommand() *cobra.Command {
	return newStepCommand(
		"speed",
		"Set treadmill speed",
		`Set treadmill speed in the configured unit.

Values that are not a non-negative number are ignored. "up" and "down" change
the speed by 0.1.`,
		func(text string) (string, error) { return apiClient.SetSpeed(text) },
		func(up bool) (string, error) { return apiClient.StepSpeed(up) },
	)
}

func NewGradeCommand() *cobra.Command {
	return newStepCommand(
		"grade",
		"Set manual incline grade",
		`Set manual incline grade in percent.

The manual grade is shown while the sensor is off or not calibrated. It is
clamped to the configured maximum grade. "up" and "down" change it by 0.5.`,
		func(text string) (string, error) { return apiClient.SetGrade(text) },
		func(up bool) (string, error) { return apiClient.StepGrade(up) },
	)
}

func NewForegroundCommand() *cobra.Command {
	return newOnOffCommand(
		"foreground",
		"Pause or resume the sample feed",
		`Pause or resume the sample feed.

Turning foreground off unsubscribes from the sensor. The calibration is kept
and the feed resumes when foreground is turned back on.`,
		gAdvanced,
		func(on bool) (string, error) { return apiClient.SetForeground(on) },
	)
}
