package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/vo_bridge/internal/attitude"
	"github.com/relabs-tech/vo_bridge/internal/bridge"
	"github.com/relabs-tech/vo_bridge/internal/pose"
)

func TestFormatAttitude(t *testing.T) {
	line := formatAttitude(attitude.Snapshot{Roll: 0.5, Pitch: -0.25, Yaw: 3.14159265, Fresh: true})
	assert.Equal(t, "[ATT ] ROLL=  28.65  PITCH= -14.32  YAW= 180.00", line)
	assert.Contains(t, formatAttitude(attitude.Snapshot{}), "(stale)")
}

func TestFormatStatus(t *testing.T) {
	line := formatStatus(bridge.Status{Link: "connected", Phase: "origin_established", Heartbeats: 9, DeltasSent: 3, Connections: 1})
	assert.Equal(t, "[LINK] connected/origin_established hb=9 queue=0 dropped=0 rejected=0 deltas=3 estimates=0 conns=1", line)
}

func TestPrintSample(t *testing.T) {
	var buf bytes.Buffer
	printSample(&buf, pose.Sample{TimeUsec: 1500, X: 1, Y: -2, Z: 0.5, Yaw: 0.25})
	assert.Equal(t, "[POSE] t=      1500  X=  1.000  Y= -2.000  Z=  0.500  YAW=   0.25\n", buf.String())
}
