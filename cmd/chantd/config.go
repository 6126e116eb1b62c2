package main

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

var Config struct {
	DatabaseDSN    string        `split_words:"true"` // empty selects the in-memory store
	Listen         string        `default:":8080"`
	PathPrefix     string        `split_words:"true" default:"/"`
	MaxMessageSize int64         `split_words:"true" default:"65536"`
	Rate           float64       `default:"5"` // publishes per second per client
	Burst          int           `default:"20"`
	ClientIdle     time.Duration `split_words:"true" default:"10m"`
	MaxWait        time.Duration `split_words:"true" default:"25s"`
	Retention      int           `default:"10000"` // records kept per topic
	MaxAge         time.Duration `split_words:"true" default:"168h"`
	PruneInterval  time.Duration `split_words:"true" default:"5m"`
}

func initConfig() error {
	if err := envconfig.Process("chantd", &Config); err != nil {
		return err
	}

	if !strings.HasSuffix(Config.PathPrefix, "/") {
		Config.PathPrefix += "/"
	}

	return nil
}
