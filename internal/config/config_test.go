package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.DefaultVolume != 0.7 {
		t.Errorf("DefaultVolume = %v, want 0.7", cfg.DefaultVolume)
	}
	if cfg.RateMode != "independent" {
		t.Errorf("RateMode = %q, want %q", cfg.RateMode, "independent")
	}
	if cfg.EndOfTrack != "stop" {
		t.Errorf("EndOfTrack = %q, want %q", cfg.EndOfTrack, "stop")
	}
	if cfg.ExportBitDepth != 16 {
		t.Errorf("ExportBitDepth = %v, want 16", cfg.ExportBitDepth)
	}
	if !cfg.PresetA.Valid() {
		t.Error("PresetA should be within engine limits")
	}
	if !cfg.PresetB.Valid() {
		t.Error("PresetB should be within engine limits")
	}
	if cfg.KeyBindings.PlayPause != " " {
		t.Errorf("PlayPause binding = %q, want space", cfg.KeyBindings.PlayPause)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := GetDefaultConfig()
	cfg.DefaultVolume = 0.5
	cfg.RateMode = "linked"
	cfg.ExportDirectory = "/tmp/exports"
	cfg.PresetA.Rate = 0.8
	cfg.PresetA.ReverbMix = 40

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if loaded.DefaultVolume != 0.5 {
		t.Errorf("DefaultVolume = %v, want 0.5", loaded.DefaultVolume)
	}
	if loaded.RateMode != "linked" {
		t.Errorf("RateMode = %q, want %q", loaded.RateMode, "linked")
	}
	if loaded.ExportDirectory != "/tmp/exports" {
		t.Errorf("ExportDirectory = %q, want %q", loaded.ExportDirectory, "/tmp/exports")
	}
	if loaded.PresetA.Rate != 0.8 || loaded.PresetA.ReverbMix != 40 {
		t.Errorf("PresetA = %+v not preserved", loaded.PresetA)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadConfig on missing file: %v", err)
	}
	if cfg.DefaultVolume != GetDefaultConfig().DefaultVolume {
		t.Error("missing file should yield default config")
	}
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadOrCreate returned nil config")
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file should have been created: %v", err)
	}
}

func TestGetConfigPathEnvOverride(t *testing.T) {
	t.Setenv("SLOWVERB_CONFIG", "/custom/path.json")
	if got := GetConfigPath(); got != "/custom/path.json" {
		t.Errorf("GetConfigPath = %q, want env override", got)
	}
}
