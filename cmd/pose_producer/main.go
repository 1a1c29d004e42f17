package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/vo_bridge/internal/app"
	"github.com/relabs-tech/vo_bridge/internal/config"
)

func main() {
	configPath := flag.String("config", "./bridge_config.txt", "path to configuration file")
	consoleOnly := flag.Bool("console", false, "print samples instead of publishing them")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *consoleOnly {
		log.Println("starting vo-bridge pose producer (mock console)")
		if err := app.RunMockConsole(ctx, os.Stdout, 100*time.Millisecond); err != nil {
			log.Fatalf("fatal: %v", err)
		}
		return
	}

	log.Println("starting vo-bridge pose producer (mock estimator → MQTT)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunPoseProducer(ctx); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
