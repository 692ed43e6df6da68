package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func NewRecalibrationCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recalibration [cron-expression]",
		Aliases: []string{"recal"},
		Short:   "Manage the periodic recalibration reminder",
		Long: `Manage the periodic recalibration reminder.

On every run a calibrated sensor goes back to waiting for calibration, so the
device is re-levelled regularly during long sessions. A notice is published one
minute ahead.

  treadgrade recalibration 'expression'      Set the schedule
  treadgrade recalibration disable           Disable the schedule
  treadgrade recalibration postpone [dur]    Postpone the next run
  treadgrade recalibration skip              Skip the next run
  treadgrade recalibration show              Show the schedule`,
		Example: `  treadgrade recalibration '@every 20m'
  treadgrade recalibration '*/30 * * * *' (every half hour)`,
		GroupID: gAdvanced,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runRecalibrationShow(cmd)
			}
			return runRecalibrationSet(cmd, args[0])
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "disable",
			Short: "Disable the recalibration schedule",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if _, err := apiClient.SetRecalibration(""); err != nil {
					return err
				}
				cmd.Println("Recalibration schedule disabled.")
				return nil
			},
		},
		newRecalibrationPostponeCommand(),
		&cobra.Command{
			Use:   "skip",
			Short: "Skip the next recalibration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ret, err := apiClient.SkipRecalibration()
				if err != nil {
					return err
				}
				cmd.Println(ret)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show the recalibration schedule",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runRecalibrationShow(cmd)
			},
		},
	)

	return cmd
}

func newRecalibrationPostponeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "postpone [duration]",
		Short: "Postpone the next recalibration",
		Example: `  treadgrade recalibration postpone      (Postpone by 5 minutes)
  treadgrade recalibration postpone 10m  (Postpone by 10 minutes)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := 5 * time.Minute
			if len(args) > 0 {
				parsed, err := time.ParseDuration(args[0])
				if err != nil {
					return fmt.Errorf("invalid duration %q: %w", args[0], err)
				}
				d = parsed
			}

			ret, err := apiClient.PostponeRecalibration(d)
			if err != nil {
				return err
			}
			cmd.Println(ret)
			return nil
		},
	}
}

func runRecalibrationSet(cmd *cobra.Command, cronExpr string) error {
	if cronExpr == "" {
		return fmt.Errorf("cron expression cannot be empty")
	}
	ret, err := apiClient.SetRecalibration(cronExpr)
	if err != nil {
		return err
	}
	cmd.Println(ret)
	return nil
}

func runRecalibrationShow(cmd *cobra.Command) error {
	st, err := apiClient.GetRecalibration()
	if err != nil {
		return err
	}
	if st.Schedule == "" {
		cmd.Println("Recalibration schedule is not set.")
		return nil
	}
	cmd.Printf("Schedule: %s\n", st.Schedule)
	if !st.NextRun.IsZero() {
		cmd.Printf("Next run: %s\n", st.NextRun.Local().Format(time.DateTime))
	}
	return nil
}
