package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/vo_bridge/internal/attitude"
	"github.com/relabs-tech/vo_bridge/internal/bridge"
)

func litPixels(img *image1bit.VerticalLSB) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

func TestRenderStatusStates(t *testing.T) {
	waiting := renderStatus(displaySnapshot{})
	noAttitude := renderStatus(displaySnapshot{
		haveStatus: true,
		status:     bridge.Status{Link: "connected", Phase: "stream_requested", Heartbeats: 3},
	})
	full := renderStatus(displaySnapshot{
		haveStatus: true,
		status:     bridge.Status{Link: "connected", Phase: "origin_established", Heartbeats: 12},
		haveAtt:    true,
		att:        attitude.Snapshot{Roll: 0.1, Pitch: -0.05, Yaw: 1.2, Fresh: true},
	})

	assert.Equal(t, 128, waiting.Bounds().Dx())
	assert.Equal(t, 64, waiting.Bounds().Dy())
	assert.NotZero(t, litPixels(waiting))
	assert.NotEqual(t, waiting.Pix, noAttitude.Pix)
	assert.NotEqual(t, noAttitude.Pix, full.Pix)
	assert.Greater(t, litPixels(full), litPixels(noAttitude))
}

func TestPhaseLabel(t *testing.T) {
	assert.Equal(t, "Wait autopilot", phaseLabel("awaiting_peer"))
	assert.Equal(t, "Streaming", phaseLabel("origin_established"))
	assert.Equal(t, "weird", phaseLabel("weird"))
}

func TestDisplayDataSnapshot(t *testing.T) {
	d := &DisplayData{}
	d.mu.Lock()
	d.att = attitude.Snapshot{Yaw: 2}
	d.haveAtt = true
	d.mu.Unlock()

	s := d.snapshot()
	assert.True(t, s.haveAtt)
	assert.False(t, s.haveStatus)
	assert.Equal(t, 2.0, s.att.Yaw)
}
