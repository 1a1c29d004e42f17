// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mavlink

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/bluenviron/gomavlib/v3/pkg/dialect"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/ardupilotmega"
	"github.com/bluenviron/gomavlib/v3/pkg/frame"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

// Codec reads and writes MAVLink frames on one connection.
type Codec interface {
	// Read blocks for the next frame. It returns (nil, nil) when bytes were
	// consumed without producing a message the bridge handles, and an error
	// only when the underlying stream failed.
	Read() (Inbound, error)
	// Write encodes m and hands it to the sender.
	Write(m Outbound) error
}

type frameCodec struct {
	r *frame.Reader
	w *frame.Writer
}

// NewCodec builds a codec reading frames from r and writing them through w.
// Frames go out as MAVLink 2, which VISION_POSITION_DELTA (id 11011) needs.
func NewCodec(r io.Reader, w io.Writer, id Identity) (Codec, error) {
	dialectRW := &dialect.ReadWriter{Dialect: ardupilotmega.Dialect}
	if err := dialectRW.Initialize(); err != nil {
		return nil, fmt.Errorf("mavlink dialect: %w", err)
	}

	fr := &frame.Reader{
		ByteReader: r,
		DialectRW:  dialectRW,
	}
	if err := fr.Initialize(); err != nil {
		return nil, fmt.Errorf("mavlink frame reader: %w", err)
	}

	fw := &frame.Writer{
		ByteWriter:     w,
		DialectRW:      dialectRW,
		OutVersion:     frame.V2,
		OutSystemID:    id.SystemID,
		OutComponentID: id.ComponentID,
	}
	if err := fw.Initialize(); err != nil {
		return nil, fmt.Errorf("mavlink frame writer: %w", err)
	}

	return &frameCodec{r: fr, w: fw}, nil
}

func (c *frameCodec) Read() (Inbound, error) {
	fr, err := c.r.Read()
	if err != nil {
		if IsTransportError(err) {
			return nil, err
		}
		// bad magic, checksum or length: the parser already skipped the bytes
		return nil, nil
	}
	return decode(fr.GetSystemID(), fr.GetComponentID(), fr.GetMessage()), nil
}

func decode(sysID, compID uint8, msg message.Message) Inbound {
	switch m := msg.(type) {
	case *ardupilotmega.MessageHeartbeat:
		return &Heartbeat{SystemID: sysID, ComponentID: compID}
	case *ardupilotmega.MessageAttitude:
		return &Attitude{
			SystemID: sysID,
			Roll:     float64(m.Roll),
			Pitch:    float64(m.Pitch),
			Yaw:      float64(m.Yaw),
		}
	}
	return nil
}

func (c *frameCodec) Write(m Outbound) error {
	msg, err := encode(m)
	if err != nil {
		return err
	}
	return c.w.WriteMessage(msg)
}

func encode(m Outbound) (message.Message, error) {
	switch m := m.(type) {
	case *RequestDataStream:
		var startStop uint8
		if m.Start {
			startStop = 1
		}
		return &ardupilotmega.MessageRequestDataStream{
			TargetSystem:    m.TargetSystem,
			TargetComponent: m.TargetComponent,
			ReqStreamId:     m.StreamID,
			ReqMessageRate:  m.RateHz,
			StartStop:       startStop,
		}, nil

	case *SetGlobalOrigin:
		return &ardupilotmega.MessageSetGpsGlobalOrigin{
			TargetSystem: m.TargetSystem,
			Latitude:     int32(m.Latitude * 1e7),
			Longitude:    int32(m.Longitude * 1e7),
			Altitude:     int32(m.Altitude * 1e3),
			TimeUsec:     m.TimeUsec,
		}, nil

	case *PositionDelta:
		return &ardupilotmega.MessageVisionPositionDelta{
			TimeUsec:      m.TimeUsec,
			TimeDeltaUsec: m.TimeDeltaUsec,
			AngleDelta:    toFloat32x3(m.AngleDelta),
			PositionDelta: toFloat32x3(m.PositionDelta),
			Confidence:    float32(m.Confidence),
		}, nil

	case *PositionEstimate:
		return &ardupilotmega.MessageViconPositionEstimate{
			Usec:  m.TimeUsec,
			X:     float32(m.X),
			Y:     float32(m.Y),
			Z:     float32(m.Z),
			Roll:  float32(m.Roll),
			Pitch: float32(m.Pitch),
			Yaw:   float32(m.Yaw),
		}, nil
	}
	return nil, fmt.Errorf("mavlink: unsupported outbound message %T", m)
}

func toFloat32x3(v [3]float64) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

// IsTransportError reports whether err came from the byte stream (peer
// close, reset, deadline) rather than from frame parsing.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
