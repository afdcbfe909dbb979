package main

import (
	"fmt"
	"os"
	"strconv"
)

// Config collects the environment the service runs with.
type Config struct {
	DatabaseURL     string
	HTTPAddr        string
	JWTSecret       string
	EvidenceURL     string
	QuorumThreshold int
}

// FromEnv reads configuration from the process environment. Only the
// database URL and JWT secret are mandatory; everything else has a default.
func FromEnv() (Config, error) {
	cfg := Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		EvidenceURL:     os.Getenv("EVIDENCE_URL"),
		QuorumThreshold: 0,
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("config: DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("config: JWT_SECRET is required")
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	if raw := os.Getenv("QUORUM_THRESHOLD"); raw != "" {
		threshold, err := strconv.Atoi(raw)
		if err != nil || threshold <= 0 {
			return Config{}, fmt.Errorf("config: QUORUM_THRESHOLD must be a positive integer, got %q", raw)
		}
		cfg.QuorumThreshold = threshold
	}

	return cfg, nil
}
