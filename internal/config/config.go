// Package config loads the process-start configuration the teacher's Usage
// property bag (vulkan-go-asche's usage.go) was heading towards — its own doc
// comment says the bag "should be extendable to JSON parsing" — completed
// here as a typed struct decoded with encoding/json, which is the idiomatic
// Go rendition rather than a stringly-typed property tree.
package config

import (
	"encoding/json"
	"os"
)

// Config is the engine's process-start configuration.
type Config struct {
	AppName          string `json:"app_name"`
	WindowWidth      int    `json:"window_width"`
	WindowHeight     int    `json:"window_height"`
	VSync            bool   `json:"vsync"`
	EnableValidation bool   `json:"enable_validation"`
	FramesInFlight   int    `json:"frames_in_flight"`
}

// Default returns the engine's construction defaults.
func Default() Config {
	return Config{
		AppName:          "turbo",
		WindowWidth:      1280,
		WindowHeight:     720,
		VSync:            true,
		EnableValidation: true,
		FramesInFlight:   2,
	}
}

// Load reads path as JSON over the Default configuration: fields absent
// from the file keep their default value. A missing file is not an error —
// callers get Default() back unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
