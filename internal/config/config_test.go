package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("want nil error for a missing config file, got %v", err)
	}
	if cfg != Default() {
		t.Fatalf("want Default(), got %+v", cfg)
	}
}

func TestLoadOverridesOnlyPresentFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"vsync": false, "window_width": 1920}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.VSync {
		t.Fatalf("want vsync overridden to false")
	}
	if cfg.WindowWidth != 1920 {
		t.Fatalf("want window_width overridden to 1920, got %d", cfg.WindowWidth)
	}
	if cfg.AppName != Default().AppName {
		t.Fatalf("want app_name to keep its default, got %q", cfg.AppName)
	}
	if cfg.FramesInFlight != Default().FramesInFlight {
		t.Fatalf("want frames_in_flight to keep its default, got %d", cfg.FramesInFlight)
	}
}

func TestLoadMalformedJSONReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`not json`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("want an error for malformed JSON")
	}
}
