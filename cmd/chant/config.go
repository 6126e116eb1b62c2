package main

import (
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// Config holds environment overrides, read from CHANT_*.
var Config struct {
	Store string `split_words:"true"` // path to the state file
	Relay string `split_words:"true"` // relay URL, overriding the "relay" property
	Topic string `split_words:"true"` // topic, overriding the "topic" property
}

func initConfig() error {
	return envconfig.Process("chant", &Config)
}

// GetStoreLocation returns the filename where the client state is kept.
// If necessary, a store directory will be created.
func GetStoreLocation() string {
	if Config.Store != "" {
		return Config.Store
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}

	storeDir := filepath.Join(configDir, "chant")
	if err = os.MkdirAll(storeDir, 0700); err != nil {
		panic(err)
	}

	return filepath.Join(storeDir, "state.json")
}
