package main

import (
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"gakushu/internal/api"
	"gakushu/internal/config"
	"gakushu/internal/db"
	"gakushu/internal/stats"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("could not load .env file", "error", err)
	}
	cfg := config.Load()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("invalid timezone", "error", err)
	}

	database, err := db.Open(cfg.DataDir)
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	defer database.Close()

	if err := database.EnsureAdmin(cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal("failed to seed admin user", "error", err)
	}
	if cfg.AdminEmail != "" {
		log.Info("admin account ready", "email", cfg.AdminEmail)
	}

	engine := stats.New(database)
	server := api.New(database, engine, loc)

	log.Info("gakushu listening", "addr", cfg.Addr, "tz", cfg.Timezone)
	if err := http.ListenAndServe(cfg.Addr, server.Routes()); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}
