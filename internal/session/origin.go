// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"sync"
	"time"
)

// Origin is a geodetic reference point. Degrees and metres above MSL.
type Origin struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Altitude  float64 `json:"alt"`
}

// OriginSource supplies the origin at the moment it is sent.
type OriginSource interface {
	Origin() Origin
}

// FixedOrigin always returns itself.
type FixedOrigin Origin

// Origin implements OriginSource.
func (o FixedOrigin) Origin() Origin { return Origin(o) }

// PlaceholderOrigin is used when nothing better is known. Updates are
// relative, so the value only has to be consistent.
var PlaceholderOrigin = FixedOrigin{Latitude: 37.2343, Longitude: -115.8067, Altitude: 61.0}

// GPSOrigin returns the latest GPS fix, or a fallback until one arrives.
// Safe for concurrent use: a GPS reader updates it while the bridge reads.
type GPSOrigin struct {
	mu       sync.RWMutex
	fallback Origin
	fix      Origin
	fixAt    time.Time
	haveFix  bool
}

// NewGPSOrigin returns a GPSOrigin that reports fallback until Update.
func NewGPSOrigin(fallback OriginSource) *GPSOrigin {
	return &GPSOrigin{fallback: fallback.Origin()}
}

// Update records a new valid fix.
func (g *GPSOrigin) Update(o Origin, at time.Time) {
	g.mu.Lock()
	g.fix = o
	g.fixAt = at
	g.haveFix = true
	g.mu.Unlock()
}

// Origin implements OriginSource.
func (g *GPSOrigin) Origin() Origin {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.haveFix {
		return g.fix
	}
	return g.fallback
}

// LastFix reports the latest fix and whether there is one.
func (g *GPSOrigin) LastFix() (Origin, time.Time, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.fix, g.fixAt, g.haveFix
}
