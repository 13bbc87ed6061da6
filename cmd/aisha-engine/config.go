package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all engine server configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	ListenAddr    string `json:"listen_addr"`
	DBPath        string `json:"db_path"`
	LogLevel      string `json:"log_level"`
	Concurrency   int    `json:"concurrency"`
	PollInterval  string `json:"poll_interval"`
	SchedulerTick string `json:"scheduler_tick"`

	// External inference over MCP. Empty command means the built-in
	// heuristic provider handles the ai_* nodes.
	MCPCommand string   `json:"mcp_command"`
	MCPArgs    []string `json:"mcp_args"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:    ":4400",
		DBPath:        filepath.Join(engineDir(), "engine.db"),
		LogLevel:      "info",
		Concurrency:   4,
		PollInterval:  "500ms",
		SchedulerTick: "30s",
	}
}

func engineDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aisha-engine"
	}
	return filepath.Join(home, ".aisha-engine")
}

func settingsPath() string {
	return filepath.Join(engineDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("AISHA_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("AISHA_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("AISHA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("AISHA_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Concurrency = n
		}
	}
	if v := os.Getenv("AISHA_POLL_INTERVAL"); v != "" {
		cfg.PollInterval = v
	}
	if v := os.Getenv("AISHA_SCHEDULER_TICK"); v != "" {
		cfg.SchedulerTick = v
	}
	if v := os.Getenv("AISHA_MCP_COMMAND"); v != "" {
		cfg.MCPCommand = v
	}
	if v := os.Getenv("AISHA_MCP_ARGS"); v != "" {
		cfg.MCPArgs = strings.Fields(v)
	}

	return cfg
}

func (c Config) pollInterval() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

func (c Config) schedulerTick() time.Duration {
	d, err := time.ParseDuration(c.SchedulerTick)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
