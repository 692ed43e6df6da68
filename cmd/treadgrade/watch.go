package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/treadgrade/treadgrade/pkg/events"
	"github.com/treadgrade/treadgrade/pkg/session"
)

func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		Short:   "Follow the readout live",
		GroupID: gBasic,
		Long:    `Follow the readout live until interrupted.`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ch, err := apiClient.SubscribeEvents(ctx)
			if err != nil {
				return err
			}

			for ev := range ch {
				switch ev.Name {
				case events.Readout:
					r, err := events.DecodeAs[session.Readout](ev)
					if err != nil {
						logrus.WithError(err).Debug("bad readout event")
						continue
					}
					cmd.Printf("%s  speed %.1f %s  grade %5.1f%% (%s)  flat %s\n",
						sensorStatusText(r.SensorStatus), r.Speed, r.SpeedUnit, r.Grade, r.GradeSource,
						bold("%.2f %s", r.FlatSpeed, r.SpeedUnit))
				case events.CalibrationPhase:
					p, err := events.DecodeAs[events.CalibrationPhaseEvent](ev)
					if err != nil {
						continue
					}
					msg := p.Message
					if p.FallDetected {
						msg = color.RedString(msg)
					}
					cmd.Printf("%s -> %s: %s\n", p.From, p.To, msg)
				case events.RecalibrationUpcoming, events.RecalibrationError:
					p, err := events.DecodeAs[events.RecalibrationEvent](ev)
					if err != nil {
						continue
					}
					cmd.Println(color.YellowString(p.Message))
				}
			}

			return nil
		},
	}
}
