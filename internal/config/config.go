// Package config reads service configuration from the environment, with an
// optional .env file loaded by the entry point.
package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	Addr          string
	DataDir       string
	Timezone      string
	AdminEmail    string
	AdminPassword string
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func Load() Config {
	return Config{
		Addr:          getEnv("GAKUSHU_ADDR", ":8080"),
		DataDir:       getEnv("GAKUSHU_DATA_DIR", "data"),
		Timezone:      getEnv("GAKUSHU_TZ", "Asia/Tokyo"),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}
}

// Location resolves the configured timezone. Every "today" in the service is
// derived in this single location.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
