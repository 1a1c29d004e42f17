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

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/vo_bridge/internal/config"
	"github.com/relabs-tech/vo_bridge/internal/pose"
)

const (
	mockRadius = 2.0 // metres
	mockPeriod = 20 * time.Second
)

// RunPoseProducer publishes a mock estimator trajectory to the pose topic,
// standing in for the visual odometry process during bench tests.
func RunPoseProducer(ctx context.Context) error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("producer: connected to MQTT broker at %s", cfg.MQTTBroker)

	src := pose.NewMockSource(mockRadius, mockPeriod)
	ticker := time.NewTicker(millis(cfg.ProducerInterval))
	defer ticker.Stop()

	var published uint64
	for {
		select {
		case <-ctx.Done():
			log.Printf("producer: stopping after %d samples", published)
			return nil
		case <-ticker.C:
		}

		s, err := src.Next()
		if err != nil {
			log.Printf("producer: mock source: %v", err)
			continue
		}

		payload, err := json.Marshal(s)
		if err != nil {
			log.Printf("producer: json marshal error: %v", err)
			continue
		}

		token := client.Publish(cfg.TopicPose, 0, false, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("producer: publish error: %v", token.Error())
			continue
		}
		published++
	}
}
