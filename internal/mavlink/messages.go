// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mavlink is the bridge's view of the MAVLink wire protocol: the few
// inbound and outbound message kinds it cares about, and a codec that frames
// them on a byte stream.
package mavlink

// GCSSystemID is the system id reserved for ground control stations.
// Heartbeats from it never drive the handshake.
const GCSSystemID uint8 = 255

// StreamExtra1 is MAV_DATA_STREAM_EXTRA1, the stream carrying ATTITUDE.
const StreamExtra1 uint8 = 10

// Identity is the system/component pair stamped on outgoing frames.
type Identity struct {
	SystemID    uint8
	ComponentID uint8
}

// Inbound is a decoded message the bridge reacts to.
type Inbound interface {
	inbound()
}

// Outbound is a message the bridge can send to the autopilot.
type Outbound interface {
	outbound()
}

// Heartbeat identifies a peer on the link.
type Heartbeat struct {
	SystemID    uint8
	ComponentID uint8
}

// Attitude is the autopilot's orientation in radians.
type Attitude struct {
	SystemID uint8
	Roll     float64
	Pitch    float64
	Yaw      float64
}

// RequestDataStream asks the target to stream a data category at RateHz.
type RequestDataStream struct {
	TargetSystem    uint8
	TargetComponent uint8
	StreamID        uint8
	RateHz          uint16
	Start           bool
}

// SetGlobalOrigin sets the EKF origin. Latitude/Longitude in degrees,
// Altitude in metres above MSL.
type SetGlobalOrigin struct {
	TargetSystem uint8
	Latitude     float64
	Longitude    float64
	Altitude     float64
	TimeUsec     uint64
}

// PositionDelta is VISION_POSITION_DELTA: the change since the previous
// update, already rotated into the transmit frame.
type PositionDelta struct {
	TimeUsec      uint64
	TimeDeltaUsec uint64
	AngleDelta    [3]float64
	PositionDelta [3]float64
	Confidence    float64
}

// PositionEstimate is VICON_POSITION_ESTIMATE: an absolute pose in the
// transmit frame.
type PositionEstimate struct {
	TimeUsec uint64
	X        float64
	Y        float64
	Z        float64
	Roll     float64
	Pitch    float64
	Yaw      float64
}

func (*Heartbeat) inbound() {}
func (*Attitude) inbound()  {}

func (*RequestDataStream) outbound() {}
func (*SetGlobalOrigin) outbound()   {}
func (*PositionDelta) outbound()     {}
func (*PositionEstimate) outbound()  {}
