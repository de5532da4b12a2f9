package main

import (
	"flag"
	"log"
	"os"

	"CoinSim/internal/di"
	"CoinSim/pkg/config"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// .env first, so the config env overrides can see it.
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("starting env=%s journal=%s symbols=%d timeframe=%s",
		cfg.Environment, cfg.Backend.Type, len(cfg.Stream.Symbols), cfg.Stream.Timeframe)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
