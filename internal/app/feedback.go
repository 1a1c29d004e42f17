// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/vo_bridge/internal/bridge"
)

type feedbackTopics struct {
	Attitude string
	Status   string
}

type publishFunc func(topic string, payload []byte) error

// publishFeedback pushes the attitude cache and bridge status every interval
// until ctx is done.
func publishFeedback(ctx context.Context, clk clock.Clock, interval time.Duration, state *bridge.State, topics feedbackTopics, pub publishFunc) error {
	if interval <= 0 {
		return fmt.Errorf("feedback: interval must be positive, got %v", interval)
	}
	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := publishSnapshot(state, topics, pub); err != nil {
				log.Printf("feedback: %v", err)
			}
		}
	}
}

func publishSnapshot(state *bridge.State, topics feedbackTopics, pub publishFunc) error {
	att, err := json.Marshal(state.Attitude())
	if err != nil {
		return fmt.Errorf("marshal attitude: %w", err)
	}
	if err := pub(topics.Attitude, att); err != nil {
		return fmt.Errorf("publish %s: %w", topics.Attitude, err)
	}

	if topics.Status == "" {
		return nil
	}
	status, err := json.Marshal(state.Status())
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := pub(topics.Status, status); err != nil {
		return fmt.Errorf("publish %s: %w", topics.Status, err)
	}
	return nil
}
