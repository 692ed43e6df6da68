package config

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/treadgrade/treadgrade/pkg/utils/ptr"
)

var (
	defaultFileConfig = &RawFileConfig{
		SpeedUnit:         ptr.To("mph"),
		InitialSpeed:      ptr.To(6.0),
		StartInSensorMode: ptr.To(false),
		JoltThreshold:     ptr.To(8.0),
		DebounceMillis:    ptr.To(500),
		MaxGrade:          ptr.To(30.0),
		SensorSource:      ptr.To(SensorSourceNone),
		ScriptPath:        ptr.To(""),
		SerialPort:        ptr.To("/dev/ttyUSB0"),
		SerialBaudRate:    ptr.To(115200),
		// MQTT is off unless a broker is configured.
		MQTTBroker:         ptr.To(""),
		MQTTClientID:       ptr.To("treadgrade"),
		MQTTSampleTopic:    ptr.To("treadgrade/accel"),
		MQTTReadoutTopic:   ptr.To("treadgrade/readout"),
		RecalibrationCron:  ptr.To(""),
		AllowNonRootAccess: ptr.To(false),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

type RawFileConfig struct {
	SpeedUnit          *string       `json:"speedUnit,omitempty"`
	InitialSpeed       *float64      `json:"initialSpeed,omitempty"`
	StartInSensorMode  *bool         `json:"startInSensorMode,omitempty"`
	JoltThreshold      *float64      `json:"joltThreshold,omitempty"`
	DebounceMillis     *int          `json:"debounceMillis,omitempty"`
	MaxGrade           *float64      `json:"maxGrade,omitempty"`
	SensorSource       *SensorSource `json:"sensorSource,omitempty"`
	ScriptPath         *string       `json:"scriptPath,omitempty"`
	SerialPort         *string       `json:"serialPort,omitempty"`
	SerialBaudRate     *int          `json:"serialBaudRate,omitempty"`
	MQTTBroker         *string       `json:"mqttBroker,omitempty"`
	MQTTClientID       *string       `json:"mqttClientID,omitempty"`
	MQTTSampleTopic    *string       `json:"mqttSampleTopic,omitempty"`
	MQTTReadoutTopic   *string       `json:"mqttReadoutTopic,omitempty"`
	RecalibrationCron  *string       `json:"recalibrationCron,omitempty"`
	AllowNonRootAccess *bool         `json:"allowNonRootAccess,omitempty"`
}

func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	rawConfig := &RawFileConfig{
		SpeedUnit:          ptr.To(c.SpeedUnit()),
		InitialSpeed:       ptr.To(c.InitialSpeed()),
		StartInSensorMode:  ptr.To(c.StartInSensorMode()),
		JoltThreshold:      ptr.To(c.JoltThreshold()),
		DebounceMillis:     ptr.To(c.DebounceMillis()),
		MaxGrade:           ptr.To(c.MaxGrade()),
		SensorSource:       ptr.To(c.SensorSource()),
		ScriptPath:         ptr.To(c.ScriptPath()),
		SerialPort:         ptr.To(c.SerialPort()),
		SerialBaudRate:     ptr.To(c.SerialBaudRate()),
		MQTTBroker:         ptr.To(c.MQTTBroker()),
		MQTTClientID:       ptr.To(c.MQTTClientID()),
		MQTTSampleTopic:    ptr.To(c.MQTTSampleTopic()),
		MQTTReadoutTopic:   ptr.To(c.MQTTReadoutTopic()),
		RecalibrationCron:  ptr.To(c.RecalibrationCron()),
		AllowNonRootAccess: ptr.To(c.AllowNonRootAccess()),
	}

	return rawConfig, nil
}

// value returns the field selected by pick, falling back to the default
// when it is unset.
func value[T any](f *File, pick func(*RawFileConfig) *T) T {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if v := pick(f.c); v != nil {
		return *v
	}
	return *pick(defaultFileConfig)
}

func (f *File) SpeedUnit() string {
	return value(f, func(c *RawFileConfig) *string { return c.SpeedUnit })
}

func (f *File) InitialSpeed() float64 {
	speed := value(f, func(c *RawFileConfig) *float64 { return c.InitialSpeed })
	if speed < 0 {
		return 0
	}
	return speed
}

func (f *File) StartInSensorMode() bool {
	return value(f, func(c *RawFileConfig) *bool { return c.StartInSensorMode })
}

func (f *File) JoltThreshold() float64 {
	return value(f, func(c *RawFileConfig) *float64 { return c.JoltThreshold })
}

func (f *File) DebounceMillis() int {
	return value(f, func(c *RawFileConfig) *int { return c.DebounceMillis })
}

func (f *File) MaxGrade() float64 {
	maxGrade := value(f, func(c *RawFileConfig) *float64 { return c.MaxGrade })
	// Beyond ~55% the flat-speed denominator reaches zero on declines.
	if maxGrade <= 0 || maxGrade > 50 {
		return *defaultFileConfig.MaxGrade
	}
	return maxGrade
}

func (f *File) SensorSource() SensorSource {
	return value(f, func(c *RawFileConfig) *SensorSource { return c.SensorSource })
}

func (f *File) ScriptPath() string {
	return value(f, func(c *RawFileConfig) *string { return c.ScriptPath })
}

func (f *File) SerialPort() string {
	return value(f, func(c *RawFileConfig) *string { return c.SerialPort })
}

func (f *File) SerialBaudRate() int {
	return value(f, func(c *RawFileConfig) *int { return c.SerialBaudRate })
}

func (f *File) MQTTBroker() string {
	return value(f, func(c *RawFileConfig) *string { return c.MQTTBroker })
}

func (f *File) MQTTClientID() string {
	return value(f, func(c *RawFileConfig) *string { return c.MQTTClientID })
}

func (f *File) MQTTSampleTopic() string {
	return value(f, func(c *RawFileConfig) *string { return c.MQTTSampleTopic })
}

func (f *File) MQTTReadoutTopic() string {
	return value(f, func(c *RawFileConfig) *string { return c.MQTTReadoutTopic })
}

func (f *File) RecalibrationCron() string {
	return value(f, func(c *RawFileConfig) *string { return c.RecalibrationCron })
}

func (f *File) AllowNonRootAccess() bool {
	return value(f, func(c *RawFileConfig) *bool { return c.AllowNonRootAccess })
}

func (f *File) SetRecalibrationCron(expr string) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.RecalibrationCron = &expr
}

func (f *File) SetAllowNonRootAccess(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.AllowNonRootAccess = &b
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using json.Decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"speedUnit":          f.SpeedUnit(),
		"initialSpeed":       f.InitialSpeed(),
		"startInSensorMode":  f.StartInSensorMode(),
		"joltThreshold":      f.JoltThreshold(),
		"debounceMillis":     f.DebounceMillis(),
		"maxGrade":           f.MaxGrade(),
		"sensorSource":       f.SensorSource(),
		"mqttBroker":         f.MQTTBroker(),
		"recalibrationCron":  f.RecalibrationCron(),
		"allowNonRootAccess": f.AllowNonRootAccess(),
	}
}
