// Package config loads the slideshow configuration from a YAML file.
package config

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BeatGlow/netdisplay"
	"github.com/BeatGlow/netdisplay/stream"
)

// Config represents the complete slideshow configuration
type Config struct {
	Panels         PanelsConfig  `yaml:"panels"`
	Delay          time.Duration `yaml:"delay"`           // pause after each frame, e.g. 50ms
	ChunkSize      int           `yaml:"chunk_size"`      // bytes per binary message
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // per panel
	ReadyTimeout   time.Duration `yaml:"ready_timeout"`   // 0 waits forever
	ByteOrder      string        `yaml:"byte_order"`      // little, big
	Playlist       []string      `yaml:"playlist"`        // empty entries are empty slots
}

// PanelsConfig contains the panel addresses
type PanelsConfig struct {
	Bottom string `yaml:"bottom"` // ESP32_1
	Top    string `yaml:"top"`    // ESP32_2
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Delay:          stream.DefaultConfig.Delay,
		ChunkSize:      stream.DefaultConfig.ChunkSize,
		ConnectTimeout: stream.DefaultConfig.ConnectTimeout,
		ByteOrder:      "little",
	}
}

// Load reads and parses a YAML configuration file on top of the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Order returns the configured pixel byte order.
func (c *Config) Order() binary.ByteOrder {
	if c.ByteOrder == "big" {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// PlaylistSlots returns the configured playlist padded to the full capacity.
func (c *Config) PlaylistSlots() stream.Playlist {
	p := stream.NewPlaylist()
	p.Fill(c.Playlist)
	return p
}

// Stream returns the session configuration.
func (c *Config) Stream() *stream.Config {
	return &stream.Config{
		BottomURL:      c.Panels.Bottom,
		TopURL:         c.Panels.Top,
		Delay:          c.Delay,
		ChunkSize:      c.ChunkSize,
		ConnectTimeout: c.ConnectTimeout,
		ReadyTimeout:   c.ReadyTimeout,
		Order:          c.Order(),
		Dial:           netdisplay.OpenWebSocket,
	}
}
