package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/treadgrade/treadgrade/pkg/client"
	"github.com/treadgrade/treadgrade/pkg/version"
)

var (
	logLevel       = "info"
	unixSocketPath = "/var/run/treadgrade.sock"
	configPath     = "/etc/treadgrade.json"
)

var apiClient = client.NewClient(unixSocketPath)

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	gInstallation = "Installation:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
		gInstallation,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	if errors.Is(err, client.ErrDaemonNotRunning) {
		fmt.Fprintln(os.Stderr, "\nError: treadgrade daemon is not running")
		fmt.Fprintln(os.Stderr, "Is the daemon running? Have you installed it?")
	} else if errors.Is(err, client.ErrPermissionDenied) {
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or reinstall the daemon with the '--allow-non-root-access' flag to grant permissions to your user")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

// offline commands do not talk to the daemon, so the version check is
// skipped for them.
var offline = map[string]bool{
	"daemon":    true,
	"convert":   true,
	"version":   true,
	"install":   true,
	"uninstall": true,
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "treadgrade",
		Short: "treadgrade converts treadmill incline workouts to flat-ground equivalents",
		Long: `treadgrade converts treadmill incline workouts to flat-ground equivalents.

The daemon reads an accelerometer lying on the treadmill deck, derives the
incline grade once you confirm the device is level, and reports the speed you
would have to run on flat ground for the same effort.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			apiClient = client.NewClient(unixSocketPath)

			if offline[cmd.Name()] {
				return nil
			}

			daemonVersion, err := apiClient.GetVersion()
			switch {
			case err == nil && daemonVersion != version.Version:
				logrus.WithFields(logrus.Fields{
					"clientVersion": version.Version,
					"daemonVersion": daemonVersion,
				}).Warn("Version mismatch between client and daemon. treadgrade may not work as expected.")
			case errors.Is(err, client.ErrNotFound):
				logrus.Error("treadgrade daemon is too old to report its version. Reinstall it so client and daemon are the same version.")
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "treadgrade daemon unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewSensorCommand(),
		NewCalibrateCommand(),
		NewOrientationCommand(),
		NewSpeedCommand(),
		NewGradeCommand(),
		NewStatusCommand(),
		NewWatchCommand(),
		NewConvertCommand(),
		NewForegroundCommand(),
		NewRecalibrationCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}
