// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package transform holds the planar frame rotation and angle wrapping used
// to move estimator poses into the autopilot's transmit frame.
package transform

import "math"

// Rotate turns the planar vector (x, y) by angle a (radians) into the
// transmit frame:
//
//	x' =  cos(a)*x - sin(a)*y
//	y' = -(sin(a)*x + cos(a)*y)
//
// The sign flip on y' converts the estimator's left-handed camera frame to
// the autopilot's NED convention.
func Rotate(x, y, a float64) (float64, float64) {
	sin, cos := math.Sincos(a)
	return cos*x - sin*y, -(sin*x + cos*y)
}

// NormalizeAngle wraps a into (-π, π].
func NormalizeAngle(a float64) float64 {
	r := math.Remainder(a, 2*math.Pi)
	if r <= -math.Pi {
		r += 2 * math.Pi
	}
	return r
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}
