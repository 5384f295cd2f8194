package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/thiago-r-goveia/bearing-vibration/internal/config"
	"github.com/thiago-r-goveia/bearing-vibration/internal/database"
	"github.com/thiago-r-goveia/bearing-vibration/internal/logger"
	"github.com/thiago-r-goveia/bearing-vibration/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		log.Fatal(err)
	}

	format, err := logger.ParseFormat(cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	logger.SetLevelAndFormat(level, format)

	dbpool, err := database.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}
	defer dbpool.Close()

	dbManager := database.NewPostgresDBManager(context.Background(), dbpool)
	router := server.SetupRoutes(server.NewFeatureService(dbManager, logger.Logger))

	logger.Info("server starting", "port", cfg.APIPort)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.APIPort), router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
