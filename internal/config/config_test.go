package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimal = `
# autopilot
TLM_ADDR=127.0.0.1
TLM_PORT=5762
MQTT_BROKER=tcp://localhost:1883
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:5762", cfg.TelemetryAddr())
	assert.True(t, cfg.UsePositionDelta)
	assert.False(t, cfg.ReseedOnReconnect)
	assert.Equal(t, 1000, cfg.ReconnectInterval)
	assert.Equal(t, 50, cfg.ReadTimeout)
	assert.Equal(t, uint8(20), cfg.SystemID)
	assert.Equal(t, uint8(98), cfg.ComponentID)
	assert.Equal(t, uint16(20), cfg.StreamRate)
	assert.Equal(t, 8, cfg.OriginHeartbeats)
	assert.Equal(t, 37.2343, cfg.OriginLat)
	assert.Equal(t, -115.8067, cfg.OriginLon)
	assert.Equal(t, 61.0, cfg.OriginAlt)
	assert.Equal(t, "vo/pose", cfg.TopicPose)
	assert.Equal(t, uint16(0x3C), cfg.DisplayI2CAddr)
	assert.Empty(t, cfg.GPSSerialPort)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimal+`
USE_POSITION_DELTA=false
CAM_DIRECTION=90
CAM_HEIGHT=25
RESEED_ON_RECONNECT=true
READ_TIMEOUT=0
POSE_QUEUE_CAPACITY=64
SYSTEM_ID=1
DISPLAY_I2C_ADDR=0x3c
ORIGIN_HEARTBEATS=3
`))
	require.NoError(t, err)

	assert.False(t, cfg.UsePositionDelta)
	assert.Equal(t, 90.0, cfg.CamDirection)
	assert.Equal(t, 25.0, cfg.CamHeight)
	assert.True(t, cfg.ReseedOnReconnect)
	assert.Equal(t, 0, cfg.ReadTimeout)
	assert.Equal(t, 64, cfg.PoseQueueCapacity)
	assert.Equal(t, uint8(1), cfg.SystemID)
	assert.Equal(t, uint16(SSD1306DefaultAddr), cfg.DisplayI2CAddr)
	assert.Equal(t, 3, cfg.OriginHeartbeats)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", minimal + "IMU_LEFT_SPI_DEVICE=/dev/spidev0.0\n", "unknown config key"},
		{"missing address", "TLM_PORT=5762\nMQTT_BROKER=tcp://x:1883\n", "TLM_ADDR is required"},
		{"missing port", "TLM_ADDR=host\nMQTT_BROKER=tcp://x:1883\n", "TLM_PORT is required"},
		{"missing broker", "TLM_ADDR=host\nTLM_PORT=1\n", "MQTT_BROKER is required"},
		{"bad port", minimal + "TLM_PORT=70000\n", "TLM_PORT must be"},
		{"bad bool", minimal + "USE_POSITION_DELTA=maybe\n", "invalid USE_POSITION_DELTA"},
		{"negative timeout", minimal + "READ_TIMEOUT=-5\n", "READ_TIMEOUT must not be negative"},
		{"gcs system id", minimal + "SYSTEM_ID=255\n", "SYSTEM_ID must be"},
		{"no separator", minimal + "TLM_ADDR\n", "invalid config line"},
		{"display address", minimal + "DISPLAY_I2C_ADDR=0x3D\n", "DISPLAY_I2C_ADDR must be 0x3C, got 0x3D"},
		{"gps without baud", minimal + "GPS_SERIAL_PORT=/dev/ttyUSB0\nGPS_BAUD_RATE=0\n", "GPS_BAUD_RATE is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
