package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the capture agent.
type Config struct {
	// HTTP API settings
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// CDP connection settings
	CDPAddress    string
	CDPPort       int
	TabURLFilter  string
	EvalTimeoutMS int

	// Optional local browser launch
	LaunchBrowser   bool
	StartURL        string
	ProfileDir      string
	BrowserHeadless bool

	// Page-ready polling
	PollIntervalMS int
	PollCeilingMS  int

	// Retention caps per capture domain
	ConsoleCap       int
	ResourceCap      int
	NetworkCap       int
	AccessibilityCap int

	// Storage settings
	DataDir         string
	ArchivePath     string
	PrefsPath       string
	ExportMaxSizeMB int

	// Optional webhook pinged when a session is archived
	NotifyEndpoint string

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables and an optional .env
// file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		BindAddr:         getEnvOrDefault("WALNUT_BIND_ADDR", "127.0.0.1:8420"),
		PortCandidates:   getEnvListOrDefault("WALNUT_PORT_CANDIDATES", []string{"127.0.0.1:8420", "127.0.0.1:8421", "127.0.0.1:8422"}),
		PortAutoFallback: getEnvBoolOrDefault("WALNUT_PORT_AUTO_FALLBACK", true),
		CDPAddress:       getEnvOrDefault("WALNUT_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:          getEnvIntOrDefault("WALNUT_CDP_PORT", 9222),
		TabURLFilter:     getEnvOrDefault("WALNUT_TAB_URL_FILTER", ""),
		EvalTimeoutMS:    getEnvIntOrDefault("WALNUT_EVAL_TIMEOUT_MS", 15000),
		LaunchBrowser:    getEnvBoolOrDefault("WALNUT_LAUNCH_BROWSER", false),
		StartURL:         getEnvOrDefault("WALNUT_START_URL", "about:blank"),
		ProfileDir:       getEnvOrDefault("WALNUT_PROFILE_DIR", "./walnut_data/profile"),
		BrowserHeadless:  getEnvBoolOrDefault("WALNUT_BROWSER_HEADLESS", true),
		PollIntervalMS:   getEnvIntOrDefault("WALNUT_POLL_INTERVAL_MS", 500),
		PollCeilingMS:    getEnvIntOrDefault("WALNUT_POLL_CEILING_MS", 10000),
		ConsoleCap:       getEnvIntOrDefault("WALNUT_CONSOLE_CAP", 500),
		ResourceCap:      getEnvIntOrDefault("WALNUT_RESOURCE_CAP", 1000),
		NetworkCap:       getEnvIntOrDefault("WALNUT_NETWORK_CAP", 1000),
		AccessibilityCap: getEnvIntOrDefault("WALNUT_ACCESSIBILITY_CAP", 200),
		DataDir:          getEnvOrDefault("WALNUT_DATA_DIR", "./walnut_data"),
		ArchivePath:      getEnvOrDefault("WALNUT_ARCHIVE_PATH", "./walnut_data/archive.db"),
		PrefsPath:        getEnvOrDefault("WALNUT_PREFS_PATH", "./walnut_data/prefs.json"),
		ExportMaxSizeMB:  getEnvIntOrDefault("WALNUT_EXPORT_MAX_SIZE_MB", 100),
		NotifyEndpoint:   getEnvOrDefault("WALNUT_NOTIFY_ENDPOINT", ""),
		LogLevel:         getEnvOrDefault("WALNUT_LOG_LEVEL", "info"),
		LogFile:          getEnvOrDefault("WALNUT_LOG_FILE", "logs/walnut_agent.log"),
	}

	if cfg.PollIntervalMS <= 0 {
		return nil, fmt.Errorf("WALNUT_POLL_INTERVAL_MS must be positive, got %d", cfg.PollIntervalMS)
	}
	if cfg.PollCeilingMS < cfg.PollIntervalMS {
		return nil, fmt.Errorf("WALNUT_POLL_CEILING_MS (%d) must be >= poll interval (%d)", cfg.PollCeilingMS, cfg.PollIntervalMS)
	}

	return cfg, nil
}

// CDPURL returns the CDP HTTP endpoint used by the chromedp remote
// allocator.
func (c *Config) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
