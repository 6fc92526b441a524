package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// Device link
	Transport   string // "ws" or "serial"
	DeviceWSURL string
	SerialPort  string
	SerialBaud  uint

	// Orientation
	SmoothingMS float64

	// MQTT
	MQTTBroker          string
	MQTTClientIDBridge  string
	MQTTClientIDDisplay string

	// Topics
	TopicSample string
	TopicPose   string

	// Web server
	WebServerPort int

	// Display
	DisplayUpdateInterval int // milliseconds

	// Simulator
	SimPort       int
	SimIntervalMS int
	SimProtocol   string // "imu.v2" or "imu.v1"
}

// Package-level unexported variables for the singleton: other
// packages must use InitGlobal() to set and Get() to read, which
// keeps initialization one-shot and access race-free.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Transport:             "ws",
		SerialBaud:            115200,
		SmoothingMS:           100,
		TopicSample:           "motion/sample",
		TopicPose:             "motion/pose",
		WebServerPort:         8080,
		DisplayUpdateInterval: 200,
		SimPort:               9000,
		SimIntervalMS:         20,
		SimProtocol:           "imu.v2",
	}
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Device link
	case "TRANSPORT":
		if value != "ws" && value != "serial" {
			return fmt.Errorf("TRANSPORT must be \"ws\" or \"serial\", got %q", value)
		}
		c.Transport = value
	case "DEVICE_WS_URL":
		c.DeviceWSURL = value
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD":
		baud, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD %q: %w", value, err)
		}
		c.SerialBaud = uint(baud)

	// Orientation
	case "SMOOTHING_MS":
		ms, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SMOOTHING_MS %q: %w", value, err)
		}
		if ms < 0 {
			return fmt.Errorf("SMOOTHING_MS must be >= 0, got %v", ms)
		}
		c.SmoothingMS = ms

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_BRIDGE":
		c.MQTTClientIDBridge = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_SAMPLE":
		c.TopicSample = value
	case "TOPIC_POSE":
		c.TopicPose = value

	// Web server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	// Simulator
	case "SIM_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SIM_PORT %q: %w", value, err)
		}
		c.SimPort = port
	case "SIM_INTERVAL_MS":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SIM_INTERVAL_MS %q: %w", value, err)
		}
		if interval <= 0 {
			return fmt.Errorf("SIM_INTERVAL_MS must be > 0, got %d", interval)
		}
		c.SimIntervalMS = interval
	case "SIM_PROTOCOL":
		if value != "imu.v2" && value != "imu.v1" {
			return fmt.Errorf("SIM_PROTOCOL must be \"imu.v2\" or \"imu.v1\", got %q", value)
		}
		c.SimProtocol = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that the selected transport is fully configured.
func (c *Config) validate() error {
	switch c.Transport {
	case "ws":
		if c.DeviceWSURL == "" {
			return fmt.Errorf("DEVICE_WS_URL is required when TRANSPORT=ws")
		}
	case "serial":
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required when TRANSPORT=serial")
		}
		if c.SerialBaud == 0 {
			return fmt.Errorf("SERIAL_BAUD is required when TRANSPORT=serial")
		}
	}
	return nil
}

// InitGlobal initializes the global configuration from file. Uses
// sync.Once so repeated calls are harmless.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance. InitGlobal must be
// called first, or this returns nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
