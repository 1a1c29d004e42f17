// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/vo_bridge/internal/app"
	"github.com/relabs-tech/vo_bridge/internal/config"
	"github.com/relabs-tech/vo_bridge/internal/link"
)

func main() {
	configPath := flag.String("config", "./bridge_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting vo-bridge (visual odometry → MAVLink)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()
	log.Printf("autopilot at %s, delta mode: %v", cfg.TelemetryAddr(), cfg.UsePositionDelta)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunBridge(ctx); err != nil {
		if errors.Is(err, link.ErrResourceExhausted) {
			log.Fatalf("fatal: out of sockets: %v", err)
		}
		log.Fatalf("fatal: %v", err)
	}
}
