// Package mqtt subscribes to the detection topic a BirdNET station publishes
// on and triggers a live table refresh for every message.
package mqtt

import (
	"time"

	"github.com/wasatchbitworks/birdworks-live/internal/conf"
)

// Refresher is told to refresh when a detection message arrives.
type Refresher interface {
	// TriggerRefresh starts a refresh and reports whether it was admitted.
	TriggerRefresh() bool
}

// Config holds the configuration for the MQTT trigger.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	// Connection timeouts
	ConnectTimeout       time.Duration
	DisconnectTimeout    time.Duration
	MaxReconnectInterval time.Duration
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		ClientID:             "birdworks-live",
		Topic:                "birdnet/detections",
		ConnectTimeout:       30 * time.Second,
		DisconnectTimeout:    250 * time.Millisecond,
		MaxReconnectInterval: 5 * time.Minute,
	}
}

// ConfigFromSettings overlays the mqtt settings section on DefaultConfig.
func ConfigFromSettings(s *conf.MQTTSettings) Config {
	cfg := DefaultConfig()
	cfg.Broker = s.Broker
	cfg.Username = s.Username
	cfg.Password = s.Password
	if s.ClientID != "" {
		cfg.ClientID = s.ClientID
	}
	if s.Topic != "" {
		cfg.Topic = s.Topic
	}
	return cfg
}
