package app

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/vo_bridge/internal/attitude"
	"github.com/relabs-tech/vo_bridge/internal/bridge"
	"github.com/relabs-tech/vo_bridge/internal/config"
)

// DisplayData holds the latest feedback for the OLED.
type DisplayData struct {
	mu sync.RWMutex

	att        attitude.Snapshot
	haveAtt    bool
	status     bridge.Status
	haveStatus bool
}

func (d *DisplayData) snapshot() displaySnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return displaySnapshot{
		att:        d.att,
		haveAtt:    d.haveAtt,
		status:     d.status,
		haveStatus: d.haveStatus,
	}
}

type displaySnapshot struct {
	att        attitude.Snapshot
	haveAtt    bool
	status     bridge.Status
	haveStatus bool
}

// RunDisplay shows link state and attitude on an SSD1306 until ctx is done.
func RunDisplay(ctx context.Context) error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	// upstream ssd1306 always talks to 0x3C; config.validate enforces it
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	// Connect to MQTT
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicAttitude, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var a attitude.Snapshot
		if err := json.Unmarshal(msg.Payload(), &a); err != nil {
			log.Printf("display: attitude unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.att = a
		data.haveAtt = true
		data.mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicAttitude)

	token = client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var st bridge.Status
		if err := json.Unmarshal(msg.Payload(), &st); err != nil {
			log.Printf("display: status unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.status = st
		data.haveStatus = true
		data.mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicStatus)

	ticker := time.NewTicker(millis(cfg.DisplayUpdateInterval))
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := dev.Draw(dev.Bounds(), renderStatus(data.snapshot()), image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(d *font.Drawer, x, y int, s string) {
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

// renderStatus lays out four lines: link, handshake, roll/pitch, yaw.
func renderStatus(s displaySnapshot) *image1bit.VerticalLSB {
	img, drawer := newCanvas()

	if !s.haveStatus {
		drawLine(drawer, 0, 26, "VO Bridge")
		drawLine(drawer, 0, 39, "Waiting...")
		return img
	}

	link := "DOWN"
	if s.status.Link == "connected" {
		link = "UP"
	}
	drawLine(drawer, 0, 13, fmt.Sprintf("%-4s hb:%d q:%d", link, s.status.Heartbeats, s.status.QueueDepth))
	drawLine(drawer, 0, 26, phaseLabel(s.status.Phase))

	if !s.haveAtt {
		drawLine(drawer, 0, 39, "No attitude")
		return img
	}
	d := s.att.InDegrees()
	drawLine(drawer, 0, 39, fmt.Sprintf("R%6.1f P%6.1f", d.Roll, d.Pitch))
	yaw := fmt.Sprintf("Y%6.1f", d.Yaw)
	if !s.att.Fresh {
		yaw += " old"
	}
	drawLine(drawer, 0, 52, yaw)
	return img
}

func phaseLabel(phase string) string {
	switch phase {
	case "awaiting_peer":
		return "Wait autopilot"
	case "stream_requested":
		return "Stream req'd"
	case "origin_established":
		return "Streaming"
	}
	return phase
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newCanvas()
	drawLine(drawer, 10, 26, "VO Bridge")
	drawLine(drawer, 5, 43, "Waiting for")
	drawLine(drawer, 25, 56, "autopilot")
	return img
}
