package session

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/vo_bridge/internal/mavlink"
)

func newTestSession(origin OriginSource) (*Session, *clock.Mock) {
	mock := clock.NewMock()
	mock.Set(time.Unix(1700000000, 0))
	return New(Config{Origin: origin, Clock: mock}), mock
}

func TestGCSHeartbeatIgnored(t *testing.T) {
	s, _ := newTestSession(nil)

	out := s.HandleHeartbeat(&mavlink.Heartbeat{SystemID: 255, ComponentID: 190})
	assert.Empty(t, out)
	assert.Equal(t, 0, s.Heartbeats())
	assert.Equal(t, AwaitingPeer, s.Phase())
}

func TestFirstHeartbeatRequestsStream(t *testing.T) {
	s, _ := newTestSession(nil)

	out := s.HandleHeartbeat(&mavlink.Heartbeat{SystemID: 1, ComponentID: 1})
	want := []mavlink.Outbound{&mavlink.RequestDataStream{
		TargetSystem:    1,
		TargetComponent: 1,
		StreamID:        mavlink.StreamExtra1,
		RateHz:          20,
		Start:           true,
	}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("unexpected messages (-want +got):\n%s", diff)
	}
	assert.Equal(t, StreamRequested, s.Phase())

	sys, comp := s.Target()
	assert.Equal(t, uint8(1), sys)
	assert.Equal(t, uint8(1), comp)

	// no second request
	out = s.HandleHeartbeat(&mavlink.Heartbeat{SystemID: 1, ComponentID: 1})
	assert.Empty(t, out)
}

func TestOriginAfterNinthHeartbeat(t *testing.T) {
	s, mock := newTestSession(nil)

	var origins []*mavlink.SetGlobalOrigin
	for i := 1; i <= 10; i++ {
		for _, m := range s.HandleHeartbeat(&mavlink.Heartbeat{SystemID: 1, ComponentID: 1}) {
			if o, ok := m.(*mavlink.SetGlobalOrigin); ok {
				require.Equal(t, 9, i, "origin sent on heartbeat %d", i)
				origins = append(origins, o)
			}
		}
		if i < 9 {
			assert.False(t, s.OriginEstablished(), "heartbeat %d", i)
		}
	}

	require.Len(t, origins, 1)
	assert.True(t, s.OriginEstablished())
	assert.Equal(t, 10, s.Heartbeats())

	want := &mavlink.SetGlobalOrigin{
		TargetSystem: 1,
		Latitude:     37.2343,
		Longitude:    -115.8067,
		Altitude:     61.0,
		TimeUsec:     uint64(mock.Now().UnixMicro()),
	}
	if diff := cmp.Diff(want, origins[0]); diff != "" {
		t.Errorf("unexpected origin (-want +got):\n%s", diff)
	}
}

func TestGCSHeartbeatsDoNotCountTowardsOrigin(t *testing.T) {
	s, _ := newTestSession(nil)

	for i := 0; i < 20; i++ {
		s.HandleHeartbeat(&mavlink.Heartbeat{SystemID: 255})
	}
	s.HandleHeartbeat(&mavlink.Heartbeat{SystemID: 1, ComponentID: 1})
	assert.Equal(t, StreamRequested, s.Phase())
	assert.Equal(t, 1, s.Heartbeats())
}

func TestCustomThreshold(t *testing.T) {
	s := New(Config{OriginHeartbeats: 2})
	s.HandleHeartbeat(&mavlink.Heartbeat{SystemID: 3, ComponentID: 1})
	s.HandleHeartbeat(&mavlink.Heartbeat{SystemID: 3, ComponentID: 1})
	assert.False(t, s.OriginEstablished())
	out := s.HandleHeartbeat(&mavlink.Heartbeat{SystemID: 3, ComponentID: 1})
	require.Len(t, out, 1)
	assert.IsType(t, &mavlink.SetGlobalOrigin{}, out[0])
}

func TestOriginFromGPS(t *testing.T) {
	gps := NewGPSOrigin(PlaceholderOrigin)
	assert.Equal(t, Origin(PlaceholderOrigin), gps.Origin())

	fix := Origin{Latitude: 48.1, Longitude: 11.5, Altitude: 520}
	gps.Update(fix, time.Unix(1700000000, 0))

	s, _ := newTestSession(gps)
	var got *mavlink.SetGlobalOrigin
	for i := 0; i < 9; i++ {
		for _, m := range s.HandleHeartbeat(&mavlink.Heartbeat{SystemID: 1, ComponentID: 1}) {
			if o, ok := m.(*mavlink.SetGlobalOrigin); ok {
				got = o
			}
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, 48.1, got.Latitude)
	assert.Equal(t, 11.5, got.Longitude)
	assert.Equal(t, 520.0, got.Altitude)

	_, at, ok := gps.LastFix()
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000), at.Unix())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "awaiting_peer", AwaitingPeer.String())
	assert.Equal(t, "stream_requested", StreamRequested.String())
	assert.Equal(t, "origin_established", OriginEstablished.String())
}
