// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bridge

import (
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/vo_bridge/internal/attitude"
	"github.com/relabs-tech/vo_bridge/internal/pose"
)

// PreviousPose is the last fused pose, the base of the next delta.
type PreviousPose struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	Roll        float64 `json:"roll"`
	Pitch       float64 `json:"pitch"`
	Yaw         float64 `json:"yaw"`
	TimeUsec    uint64  `json:"time_usec"`
	Initialized bool    `json:"initialized"`
}

// Status is a point-in-time summary of the bridge for external readers.
type Status struct {
	Link          string    `json:"link"`
	Phase         string    `json:"phase"`
	Heartbeats    int       `json:"heartbeats"`
	QueueDepth    int       `json:"queue_depth"`
	QueueDropped  uint64    `json:"queue_dropped"`
	Rejected      uint64    `json:"rejected"`
	Restarts      uint64    `json:"estimator_restarts"`
	DeltasSent    uint64    `json:"deltas_sent"`
	EstimatesSent uint64    `json:"estimates_sent"`
	Connections   int       `json:"connections"`
	Seeded        bool      `json:"seeded"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// State is the region shared between the estimator producer, the bridge
// worker and attitude readers. One mutex covers the pose queue, the attitude
// cache and the previous pose, so the worker sees them consistently.
type State struct {
	mu       sync.Mutex
	queue    *pose.Queue
	attitude attitude.Snapshot
	prev     PreviousPose
	status   Status
	// epoch advances whenever prev is invalidated behind the worker's back
	epoch uint64
}

// NewState returns an empty State. queueCapacity <= 0 means unbounded.
func NewState(queueCapacity int) *State {
	return &State{
		queue:  pose.NewQueue(queueCapacity),
		status: Status{Link: "disconnected", Phase: "awaiting_peer"},
	}
}

// PushSample enqueues an estimator sample. It never blocks on the network:
// the worker releases the lock around every send. When the sample shows the
// estimator clock restarted, the previous pose is dropped so the new
// sequence re-seeds instead of producing a delta across the two clocks.
func (s *State) PushSample(p pose.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.queue.Restarts()
	if err := s.queue.Push(p); err != nil {
		s.status.Rejected++
		return err
	}
	if s.queue.Restarts() != before {
		s.prev.Initialized = false
		s.epoch++
		log.Printf("bridge: estimator clock restarted at %d us, re-seeding", p.TimeUsec)
	}
	return nil
}

// Attitude returns the most recent attitude.
func (s *State) Attitude() attitude.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attitude
}

// SetAttitude replaces the cached attitude and marks it fresh.
func (s *State) SetAttitude(roll, pitch, yaw float64, at time.Time) {
	s.mu.Lock()
	s.attitude = attitude.Snapshot{
		Roll:      roll,
		Pitch:     pitch,
		Yaw:       yaw,
		Fresh:     true,
		UpdatedAt: at,
	}
	s.mu.Unlock()
}

// Previous returns a copy of the previous fused pose.
func (s *State) Previous() PreviousPose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prev
}

// Pending reports how many samples wait to be fused.
func (s *State) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Status returns the current status summary.
func (s *State) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.QueueDepth = s.queue.Len()
	st.QueueDropped = s.queue.Dropped()
	st.Restarts = s.queue.Restarts()
	st.Seeded = s.prev.Initialized
	return st
}

// beginConnection marks the start of a connection: the attitude is no longer
// fresh until the new peer reports one.
func (s *State) beginConnection() {
	s.mu.Lock()
	s.attitude.Fresh = false
	s.status.Connections++
	s.mu.Unlock()
}

func (s *State) setLink(link, phase string, heartbeats int, at time.Time) {
	s.mu.Lock()
	s.status.Link = link
	s.status.Phase = phase
	s.status.Heartbeats = heartbeats
	s.status.UpdatedAt = at
	s.mu.Unlock()
}
