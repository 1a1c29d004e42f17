// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/vo_bridge/internal/pose"
)

// RunMockConsole prints the mock estimator trajectory without MQTT, for
// checking the producer on a bench.
func RunMockConsole(ctx context.Context, out io.Writer, interval time.Duration) error {
	src := pose.NewMockSource(mockRadius, mockPeriod)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		s, err := src.Next()
		if err != nil {
			return err
		}
		printSample(out, s)
	}
}

func printSample(out io.Writer, s pose.Sample) {
	fmt.Fprintf(out,
		"[POSE] t=%10d  X=%7.3f  Y=%7.3f  Z=%7.3f  YAW=%7.2f\n",
		s.TimeUsec, s.X, s.Y, s.Z, s.Yaw,
	)
}
