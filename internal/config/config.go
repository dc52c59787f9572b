package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	// RCON connection to the game server.
	RCONHost     string
	RCONPort     int
	RCONPassword string
	// 0 means retry forever.
	RCONMaxAttempts int

	DataDir      string
	LogPath      string
	PlayersPath  string
	WorldDir     string
	DatabasePath string

	ListenAddr    string
	ContainerName string

	// Death budget = floor(playerCount * Multiplier).
	Multiplier float64

	SmiteTarget string

	DefaultUser string
	DefaultPass string
}

func Load() (*Config, error) {
	dataDir := envOr("BMC_DATA_DIR", "./data")
	// Docker bind mounts and world deletion need absolute paths
	dataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	port, err := envInt("RCON_PORT", 25575)
	if err != nil {
		return nil, err
	}
	attempts, err := envInt("BMC_RCON_MAX_ATTEMPTS", 0)
	if err != nil {
		return nil, err
	}
	multiplier, err := envFloat("BMC_MULTIPLIER", 1.5)
	if err != nil {
		return nil, err
	}
	if multiplier < 1.0 {
		return nil, fmt.Errorf("BMC_MULTIPLIER must be >= 1.0, got %v", multiplier)
	}

	return &Config{
		RCONHost:        envOr("RCON_HOST", "minecraft"),
		RCONPort:        port,
		RCONPassword:    envOr("RCON_PASSWORD", "change_me_super_secret"),
		RCONMaxAttempts: attempts,
		DataDir:         dataDir,
		LogPath:         envOr("BMC_LOG", filepath.Join(dataDir, "logs", "latest.log")),
		PlayersPath:     envOr("BMC_PLAYERS", filepath.Join(dataDir, "player_names.json")),
		WorldDir:        envOr("BMC_WORLD_DIR", filepath.Join(dataDir, "world")),
		DatabasePath:    envOr("BMC_DB", filepath.Join(dataDir, "bettermc.db")),
		ListenAddr:      envOr("BMC_LISTEN", ":8080"),
		ContainerName:   envOr("BMC_CONTAINER", "minecraft"),
		Multiplier:      multiplier,
		SmiteTarget:     envOr("BMC_SMITE_TARGET", "lolostheman"),
		DefaultUser:     envOr("BMC_DEFAULT_USER", "admin"),
		DefaultPass:     envOr("BMC_DEFAULT_PASS", "admin"),
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
