package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete screencap configuration
type Config struct {
	Output   OutputConfig   `mapstructure:"output"`
	Host     HostConfig     `mapstructure:"host"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Settings SettingsConfig `mapstructure:"settings"`
}

// OutputConfig controls where captures are written
type OutputConfig struct {
	// Dir is the screenshot directory, created once at startup
	Dir string `mapstructure:"dir"`
	// Prefix starts every filename, followed by a timestamp
	Prefix string `mapstructure:"prefix"`
	// TagPanoramas writes GPano XMP metadata into 360 captures
	TagPanoramas bool `mapstructure:"tag_panoramas"`
}

// HostConfig describes the interactive scene host
type HostConfig struct {
	// Width and Height are the presented frame size in pixels
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
	// FrameRate is how many frames per second the host renders
	FrameRate int `mapstructure:"frame_rate"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (case-insensitive)
	Level string `mapstructure:"level"`
	// Dir holds screencap.log; empty logs to stderr
	Dir string `mapstructure:"dir"`
}

// SettingsConfig locates the persisted capture settings
type SettingsConfig struct {
	// File is the YAML settings file. Empty means settings.yaml in ConfigDir.
	File string `mapstructure:"file"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Dir:          "screenshots",
			Prefix:       "screencap",
			TagPanoramas: true,
		},
		Host: HostConfig{
			Width:     1280,
			Height:    720,
			FrameRate: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
		Settings: SettingsConfig{
			File: "",
		},
	}
}

// FrameInterval returns the time between two host frames
func (c *HostConfig) FrameInterval() time.Duration {
	if c.FrameRate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.FrameRate)
}

// SettingsPath returns the settings file, falling back to ConfigDir
func (c *SettingsConfig) SettingsPath() string {
	if c.File != "" {
		return c.File
	}
	return filepath.Join(ConfigDir(), "settings.yaml")
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Output defaults
	viper.SetDefault("output.dir", defaults.Output.Dir)
	viper.SetDefault("output.prefix", defaults.Output.Prefix)
	viper.SetDefault("output.tag_panoramas", defaults.Output.TagPanoramas)

	// Host defaults
	viper.SetDefault("host.width", defaults.Host.Width)
	viper.SetDefault("host.height", defaults.Host.Height)
	viper.SetDefault("host.frame_rate", defaults.Host.FrameRate)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	// Settings defaults
	viper.SetDefault("settings.file", defaults.Settings.File)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "screencap")
	}
	// Fall back to ~/.config/screencap
	home, err := os.UserHomeDir()
	if err != nil {
		return ".screencap"
	}
	return filepath.Join(home, ".config", "screencap")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
