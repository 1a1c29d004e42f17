// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pose

import (
	"math"
	"time"
)

type mockSource struct {
	start  time.Time
	now    func() time.Time
	radius float64
	period float64 // seconds per lap
	last   uint64
}

// NewMockSource creates a mock estimator that walks a horizontal circle of
// the given radius (metres) once per period, facing along the track.
func NewMockSource(radius float64, period time.Duration) Source {
	return newMockSource(radius, period, time.Now)
}

func newMockSource(radius float64, period time.Duration, now func() time.Time) *mockSource {
	if period <= 0 {
		period = 20 * time.Second
	}
	return &mockSource{
		start:  now(),
		now:    now,
		radius: radius,
		period: period.Seconds(),
	}
}

func (m *mockSource) Next() (Sample, error) {
	elapsed := m.now().Sub(m.start)
	ts := uint64(elapsed.Microseconds())
	// keep timestamps strictly increasing even if the clock stalls
	if ts <= m.last {
		ts = m.last + 1
	}
	m.last = ts

	phase := 2 * math.Pi * elapsed.Seconds() / m.period
	yaw := math.Remainder(phase+math.Pi/2, 2*math.Pi)

	return Sample{
		TimeUsec: ts,
		X:        m.radius * math.Cos(phase),
		Y:        m.radius * math.Sin(phase),
		Z:        0.1 * math.Sin(phase*3),
		Yaw:      yaw,
	}, nil
}
