package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/pandamarket/market/internal/market/app"
)

func main() {
	// Best effort; a missing .env just means the environment is already set.
	_ = godotenv.Load()

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
