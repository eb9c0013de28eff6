package main

import (
	"flag"
	"log"
	"os"

	"Foresight/internal/di"
	"Foresight/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s port=%d clickhouse=%t kafka=%t cache=%t market_data=%t",
		cfg.Environment, cfg.Server.Port, cfg.ClickHouse.Enabled, cfg.Kafka.Enabled,
		cfg.Cache.Enabled, cfg.MarketData.Enabled)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
