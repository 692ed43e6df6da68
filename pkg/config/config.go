package config

import "github.com/sirupsen/logrus"

// SensorSource names where accelerometer samples come from.
type SensorSource string

const (
	SensorSourceNone   SensorSource = "none"
	SensorSourceScript SensorSource = "script"
	SensorSourceSerial SensorSource = "serial"
	SensorSourceMQTT   SensorSource = "mqtt"
)

type Config interface {
	SpeedUnit() string
	InitialSpeed() float64
	StartInSensorMode() bool
	JoltThreshold() float64
	DebounceMillis() int
	MaxGrade() float64
	SensorSource() SensorSource
	ScriptPath() string
	SerialPort() string
	SerialBaudRate() int
	MQTTBroker() string
	MQTTClientID() string
	MQTTSampleTopic() string
	MQTTReadoutTopic() string
	RecalibrationCron() string
	AllowNonRootAccess() bool

	SetRecalibrationCron(string)
	SetAllowNonRootAccess(bool)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error

	LogrusFields() logrus.Fields
}
