package main

import (
	"log"

	"github.com/joho/godotenv"

	"ocrscan/cmd"
	"ocrscan/internal/config"
	"ocrscan/internal/logger"
)

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	logCfg := logger.DefaultConfig()
	if cfg, err := config.Load(); err != nil {
		log.Printf("Warning: Could not load configuration: %v", err)
	} else {
		logCfg = cfg.GetLoggerConfig()
	}
	if err := logger.Setup(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	log := logger.WithComponent("main")
	log.Debug().Msg("Starting ocrscan")

	cmd.Execute()

	log.Debug().Msg("ocrscan finished")
}
