// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bridge

import (
	"github.com/relabs-tech/vo_bridge/internal/attitude"
	"github.com/relabs-tech/vo_bridge/internal/mavlink"
	"github.com/relabs-tech/vo_bridge/internal/pose"
	"github.com/relabs-tech/vo_bridge/internal/transform"
)

// DeltaConfidence is the fixed confidence (percent) reported with every
// VISION_POSITION_DELTA.
const DeltaConfidence = 90.0

// Mode selects what the engine sends.
type Mode int

const (
	// DeltaMode sends VISION_POSITION_DELTA relative to the previous sample.
	DeltaMode Mode = iota
	// AbsoluteMode sends VICON_POSITION_ESTIMATE.
	AbsoluteMode
)

// String returns "delta" or "absolute".
func (m Mode) String() string {
	if m == AbsoluteMode {
		return "absolute"
	}
	return "delta"
}

// EngineConfig configures the fusion engine.
type EngineConfig struct {
	Mode Mode
	// CameraYawOffset is the camera heading relative to the vehicle, radians.
	CameraYawOffset float64
	// CameraHeight is the camera mount height above ground, metres.
	CameraHeight float64
}

// Engine turns queued pose samples into position messages.
type Engine struct {
	cfg   EngineConfig
	state *State
}

// NewEngine returns an Engine working on state.
func NewEngine(cfg EngineConfig, state *State) *Engine {
	return &Engine{cfg: cfg, state: state}
}

// Reseed forgets the previous pose so the next sample seeds it again.
func (e *Engine) Reseed() {
	e.state.mu.Lock()
	e.state.prev.Initialized = false
	e.state.epoch++
	e.state.mu.Unlock()
}

// Step runs the fusion half of one cycle. The first sample after start (or
// after Reseed) only seeds the previous pose. Later samples are consumed only
// once the origin is established, and produce one message handed to send.
// The state lock is not held while send runs.
func (e *Engine) Step(originEstablished bool, send func(mavlink.Outbound) error) error {
	st := e.state
	st.mu.Lock()

	if st.queue.Len() == 0 {
		st.mu.Unlock()
		return nil
	}
	att := st.attitude

	if !st.prev.Initialized {
		s, _ := st.queue.Pop()
		st.prev = nextPrevious(s, att)
		st.mu.Unlock()
		return nil
	}

	if !originEstablished {
		st.mu.Unlock()
		return nil
	}

	s, _ := st.queue.Pop()
	epoch := st.epoch
	var msg mavlink.Outbound
	if e.cfg.Mode == DeltaMode {
		msg = ComputeDelta(st.prev, s, att, e.cfg.CameraYawOffset)
	} else {
		msg = ComputeEstimate(s, att, e.cfg.CameraYawOffset, e.cfg.CameraHeight)
	}
	st.mu.Unlock()

	err := send(msg)

	st.mu.Lock()
	if e.cfg.Mode == DeltaMode {
		// a restart during the send already asked for a re-seed
		if st.epoch == epoch {
			st.prev = nextPrevious(s, att)
		}
		st.status.DeltasSent++
	} else {
		st.status.EstimatesSent++
	}
	st.mu.Unlock()
	return err
}

func nextPrevious(s pose.Sample, att attitude.Snapshot) PreviousPose {
	return PreviousPose{
		X:           s.X,
		Y:           s.Y,
		Z:           s.Z,
		Roll:        att.Roll,
		Pitch:       att.Pitch,
		Yaw:         s.Yaw,
		TimeUsec:    s.TimeUsec,
		Initialized: true,
	}
}

// ComputeDelta builds the delta from prev to s. Roll and pitch changes come
// from the autopilot attitude, the yaw change from the estimator. The planar
// displacement is rotated by the sample yaw plus the camera offset; the
// vertical one is passed through.
func ComputeDelta(prev PreviousPose, s pose.Sample, att attitude.Snapshot, camYawOffset float64) *mavlink.PositionDelta {
	dx, dy := transform.Rotate(s.X-prev.X, s.Y-prev.Y, s.Yaw+camYawOffset)
	return &mavlink.PositionDelta{
		TimeUsec:      s.TimeUsec,
		TimeDeltaUsec: s.TimeUsec - prev.TimeUsec,
		AngleDelta: [3]float64{
			transform.NormalizeAngle(att.Roll - prev.Roll),
			transform.NormalizeAngle(att.Pitch - prev.Pitch),
			transform.NormalizeAngle(s.Yaw - prev.Yaw),
		},
		PositionDelta: [3]float64{dx, dy, s.Z - prev.Z},
		Confidence:    DeltaConfidence,
	}
}

// ComputeEstimate builds an absolute estimate for s: position rotated by
// the camera offset, height corrected for the camera mount.
func ComputeEstimate(s pose.Sample, att attitude.Snapshot, camYawOffset, camHeight float64) *mavlink.PositionEstimate {
	x, y := transform.Rotate(s.X, s.Y, camYawOffset)
	return &mavlink.PositionEstimate{
		TimeUsec: s.TimeUsec,
		X:        x,
		Y:        y,
		Z:        s.Z - camHeight,
		Roll:     att.Roll,
		Pitch:    att.Pitch,
		Yaw:      s.Yaw,
	}
}
