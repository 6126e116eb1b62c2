package main

import (
	"fmt"
	"strings"

	"github.com/commandquery/chant/relay"
)

const (
	DefaultRelay = "http://localhost:8080/"
	DefaultTopic = "derpy.chat"
)

// Properties is a set of configuration properties used to control
// the behaviour of the client.
type Properties struct {
	Relay  string `json:"relay"`  // relay URL
	Topic  string `json:"topic"`  // topic to chat on
	Handle string `json:"handle"` // display name sent with each message
}

func NewProperties() *Properties {
	return &Properties{
		Relay: DefaultRelay,
		Topic: DefaultTopic,
	}
}

func (p *Properties) Set(name string, value string) error {
	switch name {
	case "relay":
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("relay must start with http:// or https://")
		}
		p.Relay = value
	case "topic":
		if err := relay.CheckTopic(value); err != nil {
			return err
		}
		p.Topic = value
	case "handle":
		p.Handle = value
	default:
		return fmt.Errorf("unknown property '%s'", name)
	}

	return nil
}

// RelayURL is the relay in use, after environment overrides.
func (p *Properties) RelayURL() string {
	if Config.Relay != "" {
		return Config.Relay
	}
	return p.Relay
}

// CurrentTopic is the topic in use, after environment overrides.
func (p *Properties) CurrentTopic() string {
	if Config.Topic != "" {
		return Config.Topic
	}
	return p.Topic
}
