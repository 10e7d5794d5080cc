package main

import (
	"flag"
	"log"
	"os"

	"TradeInfo/internal/di"
	"TradeInfo/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "config file path (defaults only when empty)")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s storage=%s changefeed=%s", cfg.Environment, cfg.Storage.Type, cfg.ChangeFeed.Backend)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// blocks until SIGINT/SIGTERM
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
