package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func parseFloatArg(arg string, valueName string) (float64, error) {
	value, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}
	return value, nil
}

// respond logs what the daemon answered to a command.
func respond(ret string, err error, action string) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if ret != "" {
		logrus.Infof("daemon responded: %s", ret)
	}
	return nil
}

func newOnOffCommand(
	use, short, long, group string,
	set func(on bool) (string, error),
) *cobra.Command {
	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Long:    long,
		GroupID: group,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "on",
			Short: "Turn on " + use,
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := set(true)
				return respond(ret, err, "turn on "+use)
			},
		},
		&cobra.Command{
			Use:   "off",
			Short: "Turn off " + use,
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := set(false)
				return respond(ret, err, "turn off "+use)
			},
		},
	)

	return cmd
}

// newStepCommand builds the up/down subcommands of a value that can also be
// set directly with an argument.
func newStepCommand(
	name, short, long string,
	set func(text string) (string, error),
	step func(up bool) (string, error),
) *cobra.Command {
	cmd := &cobra.Command{
		Use:     name + " [value]",
		Short:   short,
		Long:    long,
		GroupID: gBasic,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ret, err := set(args[0])
			return respond(ret, err, "set "+name)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:     "up",
			Aliases: []string{"+"},
			Short:   "Increase " + name + " by one step",
			Args:    cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := step(true)
				return respond(ret, err, "increase "+name)
			},
		},
		&cobra.Command{
			Use:     "down",
			Aliases: []string{"-"},
			Short:   "Decrease " + name + " by one step",
			Args:    cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				ret, err := step(false)
				return respond(ret, err, "decrease "+name)
			},
		},
	)

	return cmd
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
