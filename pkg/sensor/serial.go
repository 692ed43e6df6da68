package sensor

import (
	serial "github.com/jacobsa/go-serial/serial"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SerialOptions configures a serial accelerometer feed.
type SerialOptions struct {
	PortName string
	BaudRate uint
}

// openSerial is replaced in tests.
var openSerial = serial.Open

// NewSerialSource opens a serial port that streams "x,y,z" lines, such as a
// microcontroller forwarding an IMU over USB.
func NewSerialSource(opts SerialOptions, clock Clock) (*LineSource, error) {
	serialOpts := serial.OpenOptions{
		PortName:              opts.PortName,
		BaudRate:              opts.BaudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := openSerial(serialOpts)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open serial port %s", opts.PortName)
	}
	logrus.WithFields(logrus.Fields{
		"port": opts.PortName,
		"baud": opts.BaudRate,
	}).Info("serial sample feed opened")

	return NewLineSource(port, clock), nil
}
