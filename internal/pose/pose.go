// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pose

import "errors"

// ErrOutOfOrder is returned when a sample does not advance the sampling clock.
var ErrOutOfOrder = errors.New("pose sample timestamp not increasing")

// Sample is one estimator output. Position is in the estimator frame
// (metres), yaw in radians, TimeUsec on the estimator's monotonic clock.
type Sample struct {
	TimeUsec uint64  `json:"time_usec"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Yaw      float64 `json:"yaw"`
}

// Source is anything that can provide pose samples over time.
type Source interface {
	Next() (Sample, error)
}
