// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/benbjohnson/clock"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/vo_bridge/internal/bridge"
	"github.com/relabs-tech/vo_bridge/internal/config"
	"github.com/relabs-tech/vo_bridge/internal/link"
	"github.com/relabs-tech/vo_bridge/internal/mavlink"
	"github.com/relabs-tech/vo_bridge/internal/pose"
	"github.com/relabs-tech/vo_bridge/internal/session"
	"github.com/relabs-tech/vo_bridge/internal/transform"
)

// RunBridge connects the estimator (MQTT pose topic) to the autopilot
// telemetry link and publishes attitude and status back at a fixed rate.
// It returns nil on a clean shutdown through ctx.
func RunBridge(ctx context.Context) error {
	cfg := config.Get()
	state := bridge.NewState(cfg.PoseQueueCapacity)

	// ---- 1) MQTT: pose in, feedback out ----
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDBridge).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("bridge: mqtt connect: %w", token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("bridge: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicPose, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if err := ingestPose(state, msg.Payload()); err != nil {
			log.Printf("bridge: pose dropped: %v", err)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("bridge: subscribe %s: %w", cfg.TopicPose, token.Error())
	}
	log.Printf("bridge: subscribed to %s", cfg.TopicPose)

	g, ctx := errgroup.WithContext(ctx)

	// ---- 2) Origin: placeholder, or live GPS when a receiver is configured ----
	var origin session.OriginSource = session.FixedOrigin{
		Latitude:  cfg.OriginLat,
		Longitude: cfg.OriginLon,
		Altitude:  cfg.OriginAlt,
	}
	if cfg.GPSSerialPort != "" {
		gpsOrigin := session.NewGPSOrigin(origin)
		origin = gpsOrigin
		g.Go(func() error {
			// losing the receiver only costs accuracy; keep bridging
			if err := RunGPSOrigin(ctx, cfg.GPSSerialPort, cfg.GPSBaudRate, gpsOrigin); err != nil {
				log.Printf("gps: %v, staying on last known origin", err)
			}
			return nil
		})
	}

	// ---- 3) Autopilot link and worker ----
	mgr := link.New(link.Config{
		Addr:          cfg.TelemetryAddr(),
		RetryInterval: millis(cfg.ReconnectInterval),
	})
	worker := bridge.NewWorker(workerConfig(cfg, origin), mgr, state)
	g.Go(func() error {
		return worker.Run(ctx)
	})

	// ---- 4) Fixed-rate feedback ----
	pub := func(topic string, payload []byte) error {
		t := client.Publish(topic, 0, false, payload)
		t.Wait()
		return t.Error()
	}
	g.Go(func() error {
		return publishFeedback(ctx, clock.New(), millis(cfg.AttitudePublishInterval), state, feedbackTopics{
			Attitude: cfg.TopicAttitude,
			Status:   cfg.TopicStatus,
		}, pub)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Println("bridge: shutting down")
		return nil
	}
	return err
}

// workerConfig maps the file configuration onto the worker.
func workerConfig(cfg *config.Config, origin session.OriginSource) bridge.WorkerConfig {
	mode := bridge.DeltaMode
	if !cfg.UsePositionDelta {
		mode = bridge.AbsoluteMode
	}
	return bridge.WorkerConfig{
		Identity: mavlink.Identity{
			SystemID:    cfg.SystemID,
			ComponentID: cfg.ComponentID,
		},
		ReadTimeout:       millis(cfg.ReadTimeout),
		ReseedOnReconnect: cfg.ReseedOnReconnect,
		Session: session.Config{
			StreamID:         mavlink.StreamExtra1,
			StreamRate:       cfg.StreamRate,
			OriginHeartbeats: cfg.OriginHeartbeats,
			Origin:           origin,
		},
		Engine: bridge.EngineConfig{
			Mode:            mode,
			CameraYawOffset: transform.DegToRad(cfg.CamDirection),
			CameraHeight:    cfg.CamHeight / 100.0,
		},
	}
}

// ingestPose decodes one estimator sample and queues it.
func ingestPose(state *bridge.State, payload []byte) error {
	var s pose.Sample
	if err := json.Unmarshal(payload, &s); err != nil {
		return fmt.Errorf("decode pose: %w", err)
	}
	if err := state.PushSample(s); err != nil {
		return fmt.Errorf("sample %d: %w", s.TimeUsec, err)
	}
	return nil
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
