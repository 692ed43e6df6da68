package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const unitName = "treadgrade.service"

var (
	unitPath = "/etc/systemd/system/" + unitName

	// runSystemctl is swapped in tests.
	runSystemctl = func(args ...string) error {
		out, err := exec.Command("systemctl", args...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
		}
		return nil
	}
)

const unitTemplate = `[Unit]
Description=treadgrade incline daemon
After=network-online.target

[Service]
ExecStart={{exe}} daemon --config {{config}} --daemon-socket {{socket}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`

// RenderUnit returns the systemd unit running exe as the daemon.
func RenderUnit(exe, configPath, socketPath string) string {
	return strings.NewReplacer(
		"{{exe}}", exe,
		"{{config}}", configPath,
		"{{socket}}", socketPath,
	).Replace(unitTemplate)
}

// Install writes the systemd unit and starts the daemon.
func Install(configPath, socketPath string) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(unitPath), err)
	}

	if _, err := os.Stat(unitPath); err == nil {
		logrus.Warnf("%s already exists, overwriting", unitPath)
	}

	logrus.Infof("writing systemd unit to %s", unitPath)
	if err := os.WriteFile(unitPath, []byte(RenderUnit(exePath, configPath, socketPath)), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", unitPath, err)
	}

	logrus.Infof("starting treadgrade")
	if err := runSystemctl("daemon-reload"); err != nil {
		return err
	}
	return runSystemctl("enable", "--now", unitName)
}

// Uninstall stops the daemon and removes its unit.
func Uninstall() error {
	logrus.Infof("stopping treadgrade")

	if err := runSystemctl("disable", "--now", unitName); err != nil {
		return fmt.Errorf("failed to stop %s: %w. Are you root?", unitName, err)
	}

	logrus.Infof("removing systemd unit")

	// if the file doesn't exist, we don't need to remove it
	if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w. Are you root?", unitPath, err)
	}

	return runSystemctl("daemon-reload")
}
