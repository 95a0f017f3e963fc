// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/relabs-tech/sensorhub/internal/reading"
)

// DefaultPath is where the commands look for their configuration.
const DefaultPath = "sensorhub_config.txt"

// IMU bridge modes.
const (
	BridgeOff     = "off"
	BridgeMPU9250 = "mpu9250"
	BridgeMock    = "mock"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string
	TopicPrefix          string

	// Input device names and control nodes
	LightInputName       string
	LightControlPath     string
	ProximityInputName   string
	ProximityControlPath string
	CompassInputName     string
	CompassControlPath   string

	// Hub
	SensorsEnabled   []reading.SensorID
	SampleInterval   int // milliseconds
	PollBufferSize   int
	ConsoleLogFormat string // "text" or "json"

	// IMU bridge, replaces the compass driver when not "off"
	IMUBridge    string
	IMUSPIDevice string
	IMUCSPin     string
	BMPSPIDevice string // empty disables temperature

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CBus         string
	DisplayUpdateInterval int // milliseconds
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a configuration for the stock driver set with all sensors
// enabled.
func Default() *Config {
	return &Config{
		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientIDProducer:  "sensorhub-producer",
		MQTTClientIDConsole:   "sensorhub-console",
		MQTTClientIDWeb:       "sensorhub-web",
		MQTTClientIDDisplay:   "sensorhub-display",
		TopicPrefix:           "sensorhub",
		LightInputName:        "lightsensor-level",
		LightControlPath:      "/dev/lightsensor",
		ProximityInputName:    "proximity",
		ProximityControlPath:  "/dev/cm3602",
		CompassInputName:      "compass",
		CompassControlPath:    "/dev/akm8973_aot",
		SensorsEnabled:        allSensors(),
		SampleInterval:        200,
		PollBufferSize:        16,
		ConsoleLogFormat:      "text",
		IMUBridge:             BridgeOff,
		WebServerPort:         8080,
		DisplayI2CBus:         "",
		DisplayUpdateInterval: 500,
	}
}

func allSensors() []reading.SensorID {
	return []reading.SensorID{
		reading.Accelerometer, reading.MagneticField, reading.Orientation,
		reading.Temperature, reading.Proximity, reading.Light,
	}
}

// Load reads a KEY=VALUE file over the defaults.
func Load(configPath string) (*Config, error) {
	values, err := godotenv.Read(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return fromMap(values)
}

// Parse reads KEY=VALUE text over the defaults.
func Parse(text string) (*Config, error) {
	values, err := godotenv.Unmarshal(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return fromMap(values)
}

func fromMap(values map[string]string) (*Config, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cfg := Default()
	for _, key := range keys {
		if err := cfg.setValue(key, strings.TrimSpace(values[key])); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "TOPIC_PREFIX":
		c.TopicPrefix = strings.TrimSuffix(value, "/")

	// Devices
	case "LIGHT_INPUT_NAME":
		c.LightInputName = value
	case "LIGHT_CONTROL_PATH":
		c.LightControlPath = value
	case "PROXIMITY_INPUT_NAME":
		c.ProximityInputName = value
	case "PROXIMITY_CONTROL_PATH":
		c.ProximityControlPath = value
	case "COMPASS_INPUT_NAME":
		c.CompassInputName = value
	case "COMPASS_CONTROL_PATH":
		c.CompassControlPath = value

	// Hub
	case "SENSORS_ENABLED":
		ids, err := parseSensors(value)
		if err != nil {
			return fmt.Errorf("invalid SENSORS_ENABLED %q: %w", value, err)
		}
		c.SensorsEnabled = ids
	case "SAMPLE_INTERVAL_MS":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL_MS %q: %w", value, err)
		}
		c.SampleInterval = interval
	case "POLL_BUFFER_SIZE":
		size, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid POLL_BUFFER_SIZE %q: %w", value, err)
		}
		c.PollBufferSize = size
	case "LOG_FORMAT":
		c.ConsoleLogFormat = value

	// IMU bridge
	case "IMU_BRIDGE":
		switch value {
		case BridgeOff, BridgeMPU9250, BridgeMock:
			c.IMUBridge = value
		default:
			return fmt.Errorf("IMU_BRIDGE must be off, mpu9250 or mock, got %q", value)
		}
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "BMP_SPI_DEVICE":
		c.BMPSPIDevice = value

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// parseSensors accepts a comma separated list of sensor names, or "all".
func parseSensors(value string) ([]reading.SensorID, error) {
	if value == "all" {
		return allSensors(), nil
	}
	var ids []reading.SensorID
	for _, name := range strings.Split(value, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id, err := reading.ParseSensorID(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicPrefix == "" {
		return fmt.Errorf("TOPIC_PREFIX is required")
	}
	if c.SampleInterval < 0 {
		return fmt.Errorf("SAMPLE_INTERVAL_MS must not be negative, got %d", c.SampleInterval)
	}
	if c.PollBufferSize < 1 {
		return fmt.Errorf("POLL_BUFFER_SIZE must be at least 1, got %d", c.PollBufferSize)
	}
	if c.IMUBridge == BridgeMPU9250 && (c.IMUSPIDevice == "" || c.IMUCSPin == "") {
		return fmt.Errorf("IMU_SPI_DEVICE and IMU_CS_PIN are required with IMU_BRIDGE=mpu9250")
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", c.DisplayUpdateInterval)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Only the first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
