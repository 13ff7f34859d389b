package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Thresholds
	ReviewMinLength   int           // IMDB minimum review length in runes
	ReviewCooldown    time.Duration // all-or-nothing gate on IMDB review submission
	WatchlistQuota    int           // IMDB hard list-size ceiling
	WatchlistMaxAge   time.Duration // 0 disables age-based watchlist pruning
	PageLoadInterval  time.Duration // fixed retry interval for IMDB page loads
	PageLoadBudget    time.Duration // total retry budget for IMDB page loads
	RequestTimeout    time.Duration // per-request Trakt timeout
	MaxRequestRetries int           // Trakt retry attempts incl. the first

	// Paths
	SettingsFile string // $CONFIG_DIR/settings.json
	DatabaseFile string // $CONFIG_DIR/syncer.db

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("REVIEW_MIN_LENGTH", 600)
	viper.SetDefault("REVIEW_COOLDOWN_HOURS", 240)
	viper.SetDefault("WATCHLIST_QUOTA", 9999)
	viper.SetDefault("WATCHLIST_MAX_AGE_DAYS", 0)
	viper.SetDefault("PAGE_LOAD_INTERVAL_SECONDS", 5)
	viper.SetDefault("PAGE_LOAD_BUDGET_SECONDS", 180)
	viper.SetDefault("REQUEST_TIMEOUT_SECONDS", 20)
	viper.SetDefault("MAX_REQUEST_RETRIES", 5)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "imdb-trakt-syncer")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		ReviewMinLength:   viper.GetInt("REVIEW_MIN_LENGTH"),
		ReviewCooldown:    time.Duration(viper.GetInt("REVIEW_COOLDOWN_HOURS")) * time.Hour,
		WatchlistQuota:    viper.GetInt("WATCHLIST_QUOTA"),
		WatchlistMaxAge:   time.Duration(viper.GetInt("WATCHLIST_MAX_AGE_DAYS")) * 24 * time.Hour,
		PageLoadInterval:  time.Duration(viper.GetInt("PAGE_LOAD_INTERVAL_SECONDS")) * time.Second,
		PageLoadBudget:    time.Duration(viper.GetInt("PAGE_LOAD_BUDGET_SECONDS")) * time.Second,
		RequestTimeout:    time.Duration(viper.GetInt("REQUEST_TIMEOUT_SECONDS")) * time.Second,
		MaxRequestRetries: viper.GetInt("MAX_REQUEST_RETRIES"),

		SettingsFile: filepath.Join(configDir, "settings.json"),
		DatabaseFile: filepath.Join(configDir, "syncer.db"),

		LogLevel:  viper.GetString("LOG_LEVEL"),
		LogFormat: viper.GetString("LOG_FORMAT"),
	}

	return config, nil
}
