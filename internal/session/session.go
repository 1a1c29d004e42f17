// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session implements the per-connection handshake with the
// autopilot: identify the peer, request the attitude stream, then set the
// global origin once the peer's estimator has had time to start.
package session

import (
	"log"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/vo_bridge/internal/mavlink"
)

// Defaults taken from field use with ArduPilot.
const (
	DefaultStreamRate = 20
	// The EKF ignores SET_GPS_GLOBAL_ORIGIN until its own start-up is done;
	// eight heartbeats has been enough in practice.
	DefaultOriginHeartbeats = 8
)

// Phase is the handshake state.
type Phase int

const (
	AwaitingPeer Phase = iota
	StreamRequested
	OriginEstablished
)

func (p Phase) String() string {
	switch p {
	case AwaitingPeer:
		return "awaiting_peer"
	case StreamRequested:
		return "stream_requested"
	case OriginEstablished:
		return "origin_established"
	}
	return "unknown"
}

// Config configures a Session.
type Config struct {
	StreamID         uint8
	StreamRate       uint16
	OriginHeartbeats int
	Origin           OriginSource
	Clock            clock.Clock
}

// Session tracks one connection's handshake. Create a new one per connection.
type Session struct {
	cfg Config

	phase           Phase
	targetSystem    uint8
	targetComponent uint8
	heartbeats      int
}

// New returns a Session in AwaitingPeer.
func New(cfg Config) *Session {
	if cfg.StreamID == 0 {
		cfg.StreamID = mavlink.StreamExtra1
	}
	if cfg.StreamRate == 0 {
		cfg.StreamRate = DefaultStreamRate
	}
	if cfg.OriginHeartbeats <= 0 {
		cfg.OriginHeartbeats = DefaultOriginHeartbeats
	}
	if cfg.Origin == nil {
		cfg.Origin = PlaceholderOrigin
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Session{cfg: cfg}
}

// Phase reports the handshake state.
func (s *Session) Phase() Phase { return s.phase }

// OriginEstablished reports whether position updates may be sent.
func (s *Session) OriginEstablished() bool { return s.phase == OriginEstablished }

// Heartbeats reports how many peer heartbeats were accepted.
func (s *Session) Heartbeats() int { return s.heartbeats }

// Target reports the peer identity captured from the first heartbeat.
func (s *Session) Target() (system, component uint8) {
	return s.targetSystem, s.targetComponent
}

// HandleHeartbeat advances the handshake and returns the messages to send.
func (s *Session) HandleHeartbeat(hb *mavlink.Heartbeat) []mavlink.Outbound {
	if hb.SystemID == mavlink.GCSSystemID {
		return nil
	}
	s.heartbeats++

	var out []mavlink.Outbound
	if s.phase == AwaitingPeer {
		s.targetSystem = hb.SystemID
		s.targetComponent = hb.ComponentID
		out = append(out, &mavlink.RequestDataStream{
			TargetSystem:    s.targetSystem,
			TargetComponent: s.targetComponent,
			StreamID:        s.cfg.StreamID,
			RateHz:          s.cfg.StreamRate,
			Start:           true,
		})
		s.phase = StreamRequested
		log.Printf("session: peer %d/%d found, requested stream %d at %d Hz",
			s.targetSystem, s.targetComponent, s.cfg.StreamID, s.cfg.StreamRate)
	}

	if s.phase == StreamRequested && s.heartbeats > s.cfg.OriginHeartbeats {
		o := s.cfg.Origin.Origin()
		out = append(out, &mavlink.SetGlobalOrigin{
			TargetSystem: s.targetSystem,
			Latitude:     o.Latitude,
			Longitude:    o.Longitude,
			Altitude:     o.Altitude,
			TimeUsec:     uint64(s.cfg.Clock.Now().UnixMicro()),
		})
		s.phase = OriginEstablished
		log.Printf("session: origin set to %.5f,%.5f alt %.1fm after %d heartbeats",
			o.Latitude, o.Longitude, o.Altitude, s.heartbeats)
	}
	return out
}
