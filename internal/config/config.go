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
	// Autopilot telemetry link
	TLMAddr           string
	TLMPort           int
	ReconnectInterval int // milliseconds
	ReadTimeout       int // milliseconds, 0 waits indefinitely

	// MAVLink identity and handshake
	SystemID         uint8
	ComponentID      uint8
	StreamRate       uint16 // Hz
	OriginHeartbeats int

	// Placeholder global origin
	OriginLat float64
	OriginLon float64
	OriginAlt float64

	// Fusion
	UsePositionDelta  bool
	CamDirection      float64 // degrees
	CamHeight         float64 // centimetres
	ReseedOnReconnect bool
	PoseQueueCapacity int

	// MQTT
	MQTTBroker           string
	MQTTClientIDBridge   string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicPose     string
	TopicAttitude string
	TopicStatus   string

	// Timing
	AttitudePublishInterval int // milliseconds
	ProducerInterval        int // milliseconds

	// GPS (optional origin source)
	GPSSerialPort string
	GPSBaudRate   int

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CAddr        uint16 // only SSD1306DefaultAddr is supported
	DisplayUpdateInterval int // milliseconds
}

// SSD1306DefaultAddr is the only I2C address the ssd1306 driver opens.
const SSD1306DefaultAddr = 0x3C

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot modify it without locking.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access; Get() takes the read lock.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns a Config with every optional key at its default value.
func Default() *Config {
	return &Config{
		ReconnectInterval: 1000,
		ReadTimeout:       50,

		SystemID:         20,
		ComponentID:      98,
		StreamRate:       20,
		OriginHeartbeats: 8,

		OriginLat: 37.2343,
		OriginLon: -115.8067,
		OriginAlt: 61.0,

		UsePositionDelta: true,

		MQTTClientIDBridge:   "vo-bridge",
		MQTTClientIDProducer: "vo-pose-producer",
		MQTTClientIDConsole:  "vo-console",
		MQTTClientIDWeb:      "vo-web",
		MQTTClientIDDisplay:  "vo-display",

		TopicPose:     "vo/pose",
		TopicAttitude: "vo/attitude",
		TopicStatus:   "vo/status",

		AttitudePublishInterval: 100,
		ProducerInterval:        50,

		GPSBaudRate:   9600,
		WebServerPort: 8080,

		DisplayI2CAddr:        SSD1306DefaultAddr,
		DisplayUpdateInterval: 500,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
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

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Autopilot telemetry link
	case "TLM_ADDR":
		c.TLMAddr = value
	case "TLM_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TLM_PORT %q: %w", value, err)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("TLM_PORT must be 1-65535, got %d", port)
		}
		c.TLMPort = port
	case "RECONNECT_INTERVAL":
		interval, err := parseNonNegative(key, value)
		if err != nil {
			return err
		}
		c.ReconnectInterval = interval
	case "READ_TIMEOUT":
		timeout, err := parseNonNegative(key, value)
		if err != nil {
			return err
		}
		c.ReadTimeout = timeout

	// MAVLink identity and handshake
	case "SYSTEM_ID":
		id, err := strconv.ParseUint(value, 0, 8)
		if err != nil {
			return fmt.Errorf("invalid SYSTEM_ID %q: %w", value, err)
		}
		if id == 0 || id == 255 {
			return fmt.Errorf("SYSTEM_ID must be 1-254, got %d", id)
		}
		c.SystemID = uint8(id)
	case "COMPONENT_ID":
		id, err := strconv.ParseUint(value, 0, 8)
		if err != nil {
			return fmt.Errorf("invalid COMPONENT_ID %q: %w", value, err)
		}
		c.ComponentID = uint8(id)
	case "STREAM_RATE":
		rate, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return fmt.Errorf("invalid STREAM_RATE %q: %w", value, err)
		}
		if rate == 0 {
			return fmt.Errorf("STREAM_RATE must be positive")
		}
		c.StreamRate = uint16(rate)
	case "ORIGIN_HEARTBEATS":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ORIGIN_HEARTBEATS %q: %w", value, err)
		}
		if n < 1 {
			return fmt.Errorf("ORIGIN_HEARTBEATS must be at least 1, got %d", n)
		}
		c.OriginHeartbeats = n

	// Placeholder global origin
	case "ORIGIN_LAT":
		lat, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ORIGIN_LAT %q: %w", value, err)
		}
		if lat < -90 || lat > 90 {
			return fmt.Errorf("ORIGIN_LAT must be within ±90, got %v", lat)
		}
		c.OriginLat = lat
	case "ORIGIN_LON":
		lon, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ORIGIN_LON %q: %w", value, err)
		}
		if lon < -180 || lon > 180 {
			return fmt.Errorf("ORIGIN_LON must be within ±180, got %v", lon)
		}
		c.OriginLon = lon
	case "ORIGIN_ALT":
		alt, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid ORIGIN_ALT %q: %w", value, err)
		}
		c.OriginAlt = alt

	// Fusion
	case "USE_POSITION_DELTA":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid USE_POSITION_DELTA %q: %w", value, err)
		}
		c.UsePositionDelta = b
	case "CAM_DIRECTION":
		deg, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid CAM_DIRECTION %q: %w", value, err)
		}
		c.CamDirection = deg
	case "CAM_HEIGHT":
		cm, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid CAM_HEIGHT %q: %w", value, err)
		}
		c.CamHeight = cm
	case "RESEED_ON_RECONNECT":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid RESEED_ON_RECONNECT %q: %w", value, err)
		}
		c.ReseedOnReconnect = b
	case "POSE_QUEUE_CAPACITY":
		n, err := parseNonNegative(key, value)
		if err != nil {
			return err
		}
		c.PoseQueueCapacity = n

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_BRIDGE":
		c.MQTTClientIDBridge = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_POSE":
		c.TopicPose = value
	case "TOPIC_ATTITUDE":
		c.TopicAttitude = value
	case "TOPIC_STATUS":
		c.TopicStatus = value

	// Timing
	case "ATTITUDE_PUBLISH_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ATTITUDE_PUBLISH_INTERVAL %q: %w", value, err)
		}
		c.AttitudePublishInterval = interval
	case "PRODUCER_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid PRODUCER_INTERVAL %q: %w", value, err)
		}
		c.ProducerInterval = interval

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
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

func parseNonNegative(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %d", key, n)
	}
	return n, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.TLMAddr == "" {
		return fmt.Errorf("TLM_ADDR is required")
	}
	if c.TLMPort == 0 {
		return fmt.Errorf("TLM_PORT is required")
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicPose == "" {
		return fmt.Errorf("TOPIC_POSE must not be empty")
	}
	if c.AttitudePublishInterval <= 0 {
		return fmt.Errorf("ATTITUDE_PUBLISH_INTERVAL must be positive")
	}
	if c.DisplayI2CAddr != SSD1306DefaultAddr {
		return fmt.Errorf("DISPLAY_I2C_ADDR must be 0x%02X, got 0x%02X", SSD1306DefaultAddr, c.DisplayI2CAddr)
	}
	if c.GPSSerialPort != "" && c.GPSBaudRate <= 0 {
		return fmt.Errorf("GPS_BAUD_RATE is required when GPS_SERIAL_PORT is set")
	}
	return nil
}

// TelemetryAddr is the host:port of the autopilot telemetry endpoint.
func (c *Config) TelemetryAddr() string {
	return fmt.Sprintf("%s:%d", c.TLMAddr, c.TLMPort)
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
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
