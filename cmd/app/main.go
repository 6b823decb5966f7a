package main

import (
	"flag"
	"log"
	"os"

	"CandleCast/internal/di"
	"CandleCast/pkg/config"
	"CandleCast/pkg/server"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	stageName := flag.String("stage", "collector", "stage to run: collector, analyst or advisor")
	flag.Parse()

	stage, err := config.ParseStage(*stageName)
	if err != nil {
		log.Fatalf("invalid stage: %v", err)
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := cfg.ValidateFor(stage); err != nil {
		log.Fatalf("config invalid for %s: %v", stage, err)
	}

	log.Printf("env=%s stage=%s brokers=%v", cfg.Environment, stage, cfg.Kafka.Brokers)

	var (
		app     *server.App
		cleanup func()
	)
	switch stage {
	case config.StageCollector:
		app, cleanup, err = di.InitializeCollector(cfg)
	case config.StageAnalyst:
		app, cleanup, err = di.InitializeAnalyst(cfg)
	case config.StageAdvisor:
		app, cleanup, err = di.InitializeAdvisor(cfg)
	}
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	runErr := app.Run()
	cleanup()
	if runErr != nil {
		log.Printf("app error: %v", runErr)
		os.Exit(1)
	}
}
