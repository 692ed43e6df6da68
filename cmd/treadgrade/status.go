package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/treadgrade/treadgrade/pkg/calibration"
	"github.com/treadgrade/treadgrade/pkg/config"
	"github.com/treadgrade/treadgrade/pkg/orientation"
	"github.com/treadgrade/treadgrade/pkg/session"
	"github.com/treadgrade/treadgrade/pkg/types"
)

type statusData struct {
	Readout       *session.Readout           `json:"readout"`
	Calibration   *types.CalibrationInfo     `json:"calibration"`
	Feed          *types.FeedStatus          `json:"feed"`
	Recalibration *types.RecalibrationStatus `json:"recalibration,omitempty"`
	Config        *config.RawFileConfig      `json:"config"`
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	readout, err := apiClient.GetReadout()
	if err != nil {
		return nil, fmt.Errorf("failed to get readout: %w", err)
	}

	info, err := apiClient.GetState()
	if err != nil {
		return nil, fmt.Errorf("failed to get calibration state: %w", err)
	}

	feed, err := apiClient.GetFeed()
	if err != nil {
		return nil, fmt.Errorf("failed to get feed status: %w", err)
	}

	conf, err := apiClient.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	// The schedule is optional information.
	recal, _ := apiClient.GetRecalibration()

	return &statusData{
		Readout:       readout,
		Calibration:   info,
		Feed:          feed,
		Recalibration: recal,
		Config:        conf,
	}, nil
}

func NewStatusCommand() *cobra.Command {
	asJSON := false

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Show the current readout",
		Long:    `Show the current readout, calibration state, sample feed and configuration.`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			if asJSON {
				b, err := json.MarshalIndent(data, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(b))
				return nil
			}

			printStatus(cmd, data)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print status as JSON")

	return cmd
}

func printStatus(cmd *cobra.Command, data *statusData) {
	r := data.Readout
	conf := config.NewFileFromConfig(data.Config, "")

	cmd.Println(bold("Readout:"))
	cmd.Printf("  Speed: %s\n", bold("%.1f %s", r.Speed, r.SpeedUnit))
	cmd.Printf("  Grade: %s (%s)\n", bold("%.1f%%", r.Grade), r.GradeSource)
	if r.GradeSource == session.GradeSourceSensor {
		cmd.Printf("  Manual grade: %.1f%%\n", r.ManualGrade)
	}
	cmd.Printf("  Flat-ground speed: %s\n", color.New(color.Bold, color.FgCyan).Sprintf("%.2f %s", r.FlatSpeed, r.SpeedUnit))
	if r.Pace > 0 {
		cmd.Printf("  Pace: %s, flat %s\n", formatPace(r.Pace, r.SpeedUnit), formatPace(r.FlatPace, r.SpeedUnit))
	}

	cmd.Println()

	cmd.Println(bold("Sensor:"))
	cmd.Printf("  Status: %s\n", sensorStatusText(r.SensorStatus))
	if r.Banner != "" {
		cmd.Printf("    %s\n", color.YellowString(r.Banner))
	}
	if data.Calibration.Phase == calibration.PhaseCalibrated {
		cmd.Printf("  Calibrated at: %.1f° pitch\n", orientation.Degrees(data.Calibration.CalibrationPitch))
	}
	cmd.Printf("  Source: %s\n", bold("%s", data.Feed.Source))
	cmd.Printf("  Feed running: %s", bool2Text(data.Feed.Running))
	if data.Feed.Running {
		cmd.Printf(" (%.1f samples/s)", data.Feed.SamplesPerSecond)
	}
	cmd.Println()
	if data.Feed.LastError != "" {
		cmd.Printf("    Last error: %s\n", color.RedString(data.Feed.LastError))
	}
	cmd.Printf("  In foreground: %s\n", bool2Text(r.Foreground))
	if data.Recalibration != nil && !data.Recalibration.NextRun.IsZero() {
		cmd.Printf("  Next recalibration: %s\n", data.Recalibration.NextRun.Local().Format(time.DateTime))
	}

	cmd.Println()

	cmd.Println(bold("Configuration:"))
	cmd.Printf("  Jolt threshold: %s\n", bold("%.1f m/s²", conf.JoltThreshold()))
	cmd.Printf("  Debounce: %s\n", bold("%d ms", conf.DebounceMillis()))
	cmd.Printf("  Maximum grade: %s\n", bold("±%.0f%%", conf.MaxGrade()))
	cmd.Printf("  Start in sensor mode: %s\n", bool2Text(conf.StartInSensorMode()))
	cmd.Printf("  Allow non-root users to access the daemon: %s\n", bool2Text(conf.AllowNonRootAccess()))
}

func sensorStatusText(status string) string {
	switch status {
	case session.StatusOn:
		return color.New(color.Bold, color.FgGreen).Sprint(status)
	case session.StatusCalibrationRequired:
		return color.New(color.Bold, color.FgYellow).Sprint(status)
	default:
		return bold("%s", status)
	}
}

// formatPace renders minutes per distance unit as m:ss.
func formatPace(minutes float64, speedUnit string) string {
	if minutes <= 0 {
		return "-"
	}
	unit := "mi"
	if speedUnit == "km/h" {
		unit = "km"
	}
	secs := int(minutes*60 + 0.5)
	return fmt.Sprintf("%d:%02d /%s", secs/60, secs%60, unit)
}
