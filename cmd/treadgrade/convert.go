package main

import (
	"github.com/spf13/cobra"

	"github.com/treadgrade/treadgrade/pkg/incline"
	"github.com/treadgrade/treadgrade/pkg/types"
)

func NewConvertCommand() *cobra.Command {
	remote := false
	unit := "mph"

	cmd := &cobra.Command{
		Use:     "convert [speed] [grade]",
		Short:   "Convert an incline workout to flat-ground speed",
		GroupID: gBasic,
		Long: `Convert an incline workout to flat-ground speed.

The grade is in percent and defaults to 0. It is clamped to ±30%. The
conversion runs locally unless --remote asks the daemon.`,
		Example: `  treadgrade convert 6 10   (6 mph at 10% is about 5.08 mph on flat ground)`,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			speed, err := parseFloatArg(args[0], "speed")
			if err != nil {
				return err
			}
			grade := 0.0
			if len(args) > 1 {
				grade, err = parseFloatArg(args[1], "grade")
				if err != nil {
					return err
				}
			}

			var res *types.Conversion
			if remote {
				res, err = apiClient.Convert(speed, grade)
				if err != nil {
					return err
				}
			} else {
				res = convert(speed, grade)
			}

			cmd.Printf("%.1f %s at %.1f%% ≈ %s on flat ground\n", res.Speed, unit, res.Grade, bold("%.2f %s", res.FlatSpeed, unit))
			if res.Pace > 0 {
				cmd.Printf("Pace %s, flat %s\n", formatPace(res.Pace, unit), formatPace(res.FlatPace, unit))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "ask the daemon instead of converting locally")
	cmd.Flags().StringVar(&unit, "unit", unit, "speed unit label (mph or km/h)")

	return cmd
}

func convert(speed, grade float64) *types.Conversion {
	speed = incline.ClampSpeed(speed)
	grade = incline.ClampGrade(grade, incline.MaxGrade)
	flat := incline.FlatSpeed(speed, grade)
	return &types.Conversion{
		Speed:     speed,
		Grade:     grade,
		FlatSpeed: flat,
		Pace:      incline.Pace(speed),
		FlatPace:  incline.Pace(flat),
	}
}
