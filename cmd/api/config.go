package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// config is read from the environment after .env has been loaded.
type config struct {
	Addr            string
	LogLevel        string
	ShutdownTimeout time.Duration
	SessionTTL      time.Duration
	OTelDisabled    bool
}

func loadConfig() (config, error) {
	cfg := config{
		Addr:     envOr("HTTP_ADDR", ":8080"),
		LogLevel: os.Getenv("LOG_LEVEL"),
	}

	var err error
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		return config{}, err
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", 30*time.Minute); err != nil {
		return config{}, err
	}
	if cfg.OTelDisabled, err = boolEnv("OTEL_SDK_DISABLED", false); err != nil {
		return config{}, err
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}
