package main

import (
	"os"

	"github.com/BurntSushi/toml"
)

// config is the optional on-disk configuration file (spec.md section 4.N's
// ambient configuration layer): defaults for paths and audio that CLI
// flags can override. No example repo in the retrieval pack ships a TOML
// config reader, so this follows BurntSushi/toml's own documented
// Decode-into-struct usage directly (see DESIGN.md).
type config struct {
	BIOSPath   string `toml:"bios_path"`
	SavePath   string `toml:"save_path"`
	SampleRate int    `toml:"sample_rate"`
}

func defaultConfig() config {
	return config{SampleRate: 32768}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return config{}, err
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 32768
	}
	return cfg, nil
}
