// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package attitude

import (
	"math"
	"time"
)

// Snapshot is the last attitude reported by the autopilot, in radians.
// Fresh is set whenever a new ATTITUDE message has been applied.
type Snapshot struct {
	Roll      float64   `json:"roll"`
	Pitch     float64   `json:"pitch"`
	Yaw       float64   `json:"yaw"`
	Fresh     bool      `json:"fresh"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Degrees is a Snapshot converted for human display.
type Degrees struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// InDegrees converts the snapshot angles to degrees.
func (s Snapshot) InDegrees() Degrees {
	return Degrees{
		Roll:  s.Roll * 180.0 / math.Pi,
		Pitch: s.Pitch * 180.0 / math.Pi,
		Yaw:   s.Yaw * 180.0 / math.Pi,
	}
}
