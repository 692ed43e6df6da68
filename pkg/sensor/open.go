package sensor

import (
	"fmt"

	"github.com/treadgrade/treadgrade/pkg/config"
)

// Open builds the Source selected by the config. It returns a nil Source
// when no feed is configured.
func Open(c config.Config, clock Clock) (Source, error) {
	switch c.SensorSource() {
	case config.SensorSourceNone, "":
		return nil, nil
	case config.SensorSourceScript:
		script, err := LoadScript(c.ScriptPath())
		if err != nil {
			return nil, err
		}
		return NewScriptSource(script, true, clock), nil
	case config.SensorSourceSerial:
		src, err := NewSerialSource(SerialOptions{
			PortName: c.SerialPort(),
			BaudRate: uint(c.SerialBaudRate()),
		}, clock)
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.SensorSourceMQTT:
		if c.MQTTBroker() == "" {
			return nil, fmt.Errorf("sensor source %q requires mqttBroker", c.SensorSource())
		}
		src, err := NewMQTTSource(MQTTOptions{
			Broker:   c.MQTTBroker(),
			ClientID: c.MQTTClientID(),
			Topic:    c.MQTTSampleTopic(),
		}, clock)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	return nil, fmt.Errorf("unknown sensor source %q", c.SensorSource())
}
