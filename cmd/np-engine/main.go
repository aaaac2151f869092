package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"NetPulse/internal/api"
	"NetPulse/internal/config"
	"NetPulse/internal/engine/streamengine"
	"NetPulse/internal/query"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	log.Println("Starting np-engine...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize the stream engine
	engine, err := streamengine.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create stream engine: %v", err)
	}

	// 3. Start the engine
	if err := engine.Start(); err != nil {
		log.Fatalf("Failed to start stream engine: %v", err)
	}

	// 4. Start the HTTP API, with a querier if a ClickHouse writer is enabled
	var querier query.Querier
	for _, writerDef := range cfg.Engine.Writers {
		if writerDef.Enabled && writerDef.Type == "clickhouse" {
			querier, err = query.NewClickHouseQuerier(writerDef.ClickHouse)
			if err != nil {
				log.Printf("Warning: failed to create querier: %v, query API disabled.", err)
			}
			break
		}
	}

	var apiServer *api.Server
	if cfg.API.ListenAddr != "" {
		apiServer = api.NewServer(cfg.API, engine.Coordinator(), querier)
		apiServer.Start()
	}

	// 5. Wait for a shutdown signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	log.Println("Shutdown signal received, stopping engine...")

	if apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := apiServer.Shutdown(ctx); err != nil {
			log.Printf("API server forced to shutdown: %v", err)
		}
		cancel()
	}

	engine.Stop()
	log.Println("Shutdown complete.")
}
