// Package config loads and saves the assembler's TOML configuration
// file: a DefaultConfig plus Load/LoadFrom/Save, and platform-specific
// config/log paths.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	"golang.org/x/term"
)

// Config holds the assembler's tunable settings.
type Config struct {
	// Assembler settings
	Assembler struct {
		MaxErrorCount    int    `toml:"max_error_count"`
		MaxPasses        int    `toml:"max_passes"`
		ObjectExtension  string `toml:"object_extension"`
		ListingExtension string `toml:"listing_extension"`
	} `toml:"assembler"`

	// Listing settings
	Listing struct {
		BytesPerLine int  `toml:"bytes_per_line"`
		ColumnWidth  int  `toml:"column_width"`
		IndentWidth  int  `toml:"indent_width"`
		ColorOutput  bool `toml:"color_output"`
	} `toml:"listing"`
}

// DefaultConfig returns a configuration with default values, with
// ColorOutput auto-detected from whether stdout is a terminal rather
// than hard-coded.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Assembler.MaxErrorCount = 100
	cfg.Assembler.MaxPasses = 10
	cfg.Assembler.ObjectExtension = ".o80"
	cfg.Assembler.ListingExtension = ".lst"

	cfg.Listing.BytesPerLine = 16
	cfg.Listing.ColumnWidth = 24
	cfg.Listing.IndentWidth = 2
	cfg.Listing.ColorOutput = term.IsTerminal(int(os.Stdout.Fd()))

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\z80asm\config.toml
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "z80asm")

	case "darwin", "linux":
		// macOS/Linux: ~/.config/z80asm/config.toml
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// Fallback to current directory
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "z80asm")

	default:
		// Unknown platform: use current directory
		return "config.toml"
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0750); err != nil {
		// If we can't create the directory, fall back to current directory
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// GetLogPath returns the platform-specific log directory path.
func GetLogPath() string {
	var logDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\z80asm\logs
		logDir = os.Getenv("APPDATA")
		if logDir == "" {
			logDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		logDir = filepath.Join(logDir, "z80asm", "logs")

	case "darwin", "linux":
		// macOS/Linux: ~/.local/share/z80asm/logs
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "logs"
		}
		logDir = filepath.Join(homeDir, ".local", "share", "z80asm", "logs")

	default:
		return "logs"
	}

	// Ensure directory exists
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "logs"
	}

	return logDir
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read and parse config file
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *Config) SaveTo(path string) (err error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file
	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	// err is a named return so a close failure still reaches the caller
	// when the encode itself succeeded.
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	// Encode to TOML
	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
