package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/slowverb/slowverb/api"
)

// Config holds explicit engine and player configuration. Nothing in the
// engine reads a process-wide settings store; everything it needs arrives
// through this struct at construction time.
type Config struct {
	MusicDirectories []string `json:"music_directories"`
	DefaultVolume    float64  `json:"default_volume"`
	RateMode         string   `json:"rate_mode"`    // "independent" or "linked"
	EndOfTrack       string   `json:"end_of_track"` // "stop", "loop" or "advance"
	ExportDirectory  string   `json:"export_directory"`
	ExportBitDepth   int      `json:"export_bit_depth"`

	// PresetA and PresetB back the remote "like"/"dislike" commands.
	PresetA api.EffectParams `json:"preset_a"`
	PresetB api.EffectParams `json:"preset_b"`

	KeyBindings KeyMap `json:"key_bindings"`
}

// KeyMap defines keyboard shortcuts
type KeyMap struct {
	PlayPause   string `json:"play_pause"`
	SeekForward string `json:"seek_forward"`
	SeekBack    string `json:"seek_back"`
	Next        string `json:"next"`
	Previous    string `json:"previous"`
	RateUp      string `json:"rate_up"`
	RateDown    string `json:"rate_down"`
	PitchUp     string `json:"pitch_up"`
	PitchDown   string `json:"pitch_down"`
	ReverbUp    string `json:"reverb_up"`
	ReverbDown  string `json:"reverb_down"`
	ModeToggle  string `json:"mode_toggle"`
	VolumeUp    string `json:"volume_up"`
	VolumeDown  string `json:"volume_down"`
	PresetA     string `json:"preset_a"`
	PresetB     string `json:"preset_b"`
	Export      string `json:"export"`
	Quit        string `json:"quit"`
}

// GetDefaultConfig returns default configuration
func GetDefaultConfig() *Config {
	return &Config{
		MusicDirectories: []string{},
		DefaultVolume:    0.7,
		RateMode:         "independent",
		EndOfTrack:       "stop",
		ExportBitDepth:   16,
		PresetA: api.EffectParams{
			Rate:      0.85,
			ReverbMix: 35,
		},
		PresetB: api.DefaultEffectParams(),
		KeyBindings: KeyMap{
			PlayPause:   " ",
			SeekForward: "right",
			SeekBack:    "left",
			Next:        "n",
			Previous:    "p",
			RateUp:      "]",
			RateDown:    "[",
			PitchUp:     "}",
			PitchDown:   "{",
			ReverbUp:    ".",
			ReverbDown:  ",",
			ModeToggle:  "m",
			VolumeUp:    "+",
			VolumeDown:  "-",
			PresetA:     "a",
			PresetB:     "b",
			Export:      "e",
			Quit:        "q",
		},
	}
}

// LoadConfig reads and unmarshals configuration from file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return GetDefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// SaveConfig marshals and saves configuration to file
func SaveConfig(config *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadOrCreate loads config from path or creates default if not exists
func LoadOrCreate(path string) (*Config, error) {
	config, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	// Save default config if file didn't exist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := SaveConfig(config, path); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	}

	return config, nil
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	// Check environment variable first
	if path := os.Getenv("SLOWVERB_CONFIG"); path != "" {
		return path
	}

	// Use XDG config directory if available
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "slowverb", "config.json")
	}

	// Fall back to home directory
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(home, ".config", "slowverb", "config.json")
}
