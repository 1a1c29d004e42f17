package mavlink

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"testing"

	"github.com/bluenviron/gomavlib/v3/pkg/dialect"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/ardupilotmega"
	"github.com/bluenviron/gomavlib/v3/pkg/frame"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDialectRW(t *testing.T) *dialect.ReadWriter {
	t.Helper()
	rw := &dialect.ReadWriter{Dialect: ardupilotmega.Dialect}
	require.NoError(t, rw.Initialize())
	return rw
}

// peerWriter writes frames as if sent by the autopilot.
func peerWriter(t *testing.T, w io.Writer, sysID, compID uint8) *frame.Writer {
	t.Helper()
	fw := &frame.Writer{
		ByteWriter:     w,
		DialectRW:      newDialectRW(t),
		OutVersion:     frame.V2,
		OutSystemID:    sysID,
		OutComponentID: compID,
	}
	require.NoError(t, fw.Initialize())
	return fw
}

// peerReader reads frames as the autopilot would.
func peerReader(t *testing.T, r io.Reader) *frame.Reader {
	t.Helper()
	fr := &frame.Reader{
		ByteReader: r,
		DialectRW:  newDialectRW(t),
	}
	require.NoError(t, fr.Initialize())
	return fr
}

func TestCodecReadsHeartbeatAndAttitude(t *testing.T) {
	var wire bytes.Buffer
	peer := peerWriter(t, &wire, 1, 1)
	require.NoError(t, peer.WriteMessage(&ardupilotmega.MessageHeartbeat{}))
	require.NoError(t, peer.WriteMessage(&ardupilotmega.MessageAttitude{
		Roll: 0.1, Pitch: -0.2, Yaw: 1.5,
	}))

	c, err := NewCodec(&wire, io.Discard, Identity{SystemID: 20, ComponentID: 98})
	require.NoError(t, err)

	msg, err := c.Read()
	require.NoError(t, err)
	assert.Equal(t, &Heartbeat{SystemID: 1, ComponentID: 1}, msg)

	msg, err = c.Read()
	require.NoError(t, err)
	att, ok := msg.(*Attitude)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, uint8(1), att.SystemID)
	assert.InDelta(t, 0.1, att.Roll, 1e-6)
	assert.InDelta(t, -0.2, att.Pitch, 1e-6)
	assert.InDelta(t, 1.5, att.Yaw, 1e-6)

	_, err = c.Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestCodecIgnoresOtherMessages(t *testing.T) {
	var wire bytes.Buffer
	peer := peerWriter(t, &wire, 1, 1)
	require.NoError(t, peer.WriteMessage(&ardupilotmega.MessageSysStatus{}))

	c, err := NewCodec(&wire, io.Discard, Identity{SystemID: 20, ComponentID: 98})
	require.NoError(t, err)

	msg, err := c.Read()
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestCodecAbsorbsGarbage(t *testing.T) {
	var wire bytes.Buffer
	wire.Write([]byte{0x01, 0x02, 0x03})
	peer := peerWriter(t, &wire, 1, 1)
	require.NoError(t, peer.WriteMessage(&ardupilotmega.MessageHeartbeat{}))

	c, err := NewCodec(&wire, io.Discard, Identity{SystemID: 20, ComponentID: 98})
	require.NoError(t, err)

	var got Inbound
	for i := 0; i < 8 && got == nil; i++ {
		got, err = c.Read()
		require.NoError(t, err)
	}
	assert.Equal(t, &Heartbeat{SystemID: 1, ComponentID: 1}, got)
}

func TestCodecWritesOutbound(t *testing.T) {
	var wire bytes.Buffer
	c, err := NewCodec(bytes.NewReader(nil), &wire, Identity{SystemID: 20, ComponentID: 98})
	require.NoError(t, err)

	require.NoError(t, c.Write(&RequestDataStream{
		TargetSystem: 1, TargetComponent: 1, StreamID: StreamExtra1, RateHz: 20, Start: true,
	}))
	require.NoError(t, c.Write(&SetGlobalOrigin{
		TargetSystem: 1, Latitude: 37.2343, Longitude: -115.8067, Altitude: 61, TimeUsec: 42,
	}))
	require.NoError(t, c.Write(&PositionDelta{
		TimeUsec: 2000, TimeDeltaUsec: 1000,
		AngleDelta:    [3]float64{0, 0, 0.25},
		PositionDelta: [3]float64{1, -2, 0.5},
		Confidence:    90,
	}))
	require.NoError(t, c.Write(&PositionEstimate{
		TimeUsec: 3000, X: 1, Y: 2, Z: -0.3, Roll: 0.01, Pitch: 0.02, Yaw: 0.03,
	}))

	r := peerReader(t, &wire)
	var msgs []message.Message
	for {
		fr, err := r.Read()
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
		assert.Equal(t, uint8(20), fr.GetSystemID())
		assert.Equal(t, uint8(98), fr.GetComponentID())
		msgs = append(msgs, fr.GetMessage())
	}
	require.Len(t, msgs, 4)

	req, ok := msgs[0].(*ardupilotmega.MessageRequestDataStream)
	require.True(t, ok, "got %T", msgs[0])
	assert.Equal(t, uint8(1), req.TargetSystem)
	assert.Equal(t, uint8(10), req.ReqStreamId)
	assert.Equal(t, uint16(20), req.ReqMessageRate)
	assert.Equal(t, uint8(1), req.StartStop)

	origin, ok := msgs[1].(*ardupilotmega.MessageSetGpsGlobalOrigin)
	require.True(t, ok, "got %T", msgs[1])
	assert.InDelta(t, 372343000, origin.Latitude, 1)
	assert.InDelta(t, -1158067000, origin.Longitude, 1)
	assert.Equal(t, int32(61000), origin.Altitude)
	assert.Equal(t, uint64(42), origin.TimeUsec)

	delta, ok := msgs[2].(*ardupilotmega.MessageVisionPositionDelta)
	require.True(t, ok, "got %T", msgs[2])
	assert.Equal(t, uint64(1000), delta.TimeDeltaUsec)
	assert.Equal(t, [3]float32{1, -2, 0.5}, delta.PositionDelta)
	assert.Equal(t, [3]float32{0, 0, 0.25}, delta.AngleDelta)
	assert.Equal(t, float32(90), delta.Confidence)

	est, ok := msgs[3].(*ardupilotmega.MessageViconPositionEstimate)
	require.True(t, ok, "got %T", msgs[3])
	assert.Equal(t, uint64(3000), est.Usec)
	assert.Equal(t, float32(-0.3), est.Z)
}

type unknownOutbound struct{}

func (*unknownOutbound) outbound() {}

func TestCodecRejectsUnknownOutbound(t *testing.T) {
	c, err := NewCodec(bytes.NewReader(nil), io.Discard, Identity{SystemID: 20, ComponentID: 98})
	require.NoError(t, err)
	assert.Error(t, c.Write(&unknownOutbound{}))
}

func TestIsTransportError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{io.EOF, true},
		{fmt.Errorf("wrapped: %w", io.EOF), true},
		{net.ErrClosed, true},
		{os.ErrDeadlineExceeded, true},
		{&net.OpError{Op: "read", Err: fmt.Errorf("connection reset by peer")}, true},
		{fmt.Errorf("invalid checksum"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsTransportError(tt.err), "%v", tt.err)
	}
}
