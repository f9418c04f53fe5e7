package config

import (
	"fmt"
	"net/url"

	"github.com/BeatGlow/netdisplay/stream"
)

// Validate checks if the configuration is valid and fills in defaults
func Validate(cfg *Config) error {
	if err := validateURL("panels.bottom", cfg.Panels.Bottom); err != nil {
		return err
	}
	if err := validateURL("panels.top", cfg.Panels.Top); err != nil {
		return err
	}
	if cfg.Panels.Bottom == cfg.Panels.Top {
		return fmt.Errorf("panels.bottom and panels.top must be different panels")
	}

	if cfg.Delay < 0 {
		return fmt.Errorf("delay must be >= 0")
	}
	if cfg.ReadyTimeout < 0 {
		return fmt.Errorf("ready_timeout must be >= 0")
	}
	if cfg.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must be > 0")
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = stream.DefaultConfig.ChunkSize
	}
	if cfg.ConnectTimeout < 0 {
		return fmt.Errorf("connect_timeout must be > 0")
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = stream.DefaultConfig.ConnectTimeout
	}

	switch cfg.ByteOrder {
	case "":
		cfg.ByteOrder = "little"
	case "little", "big":
	default:
		return fmt.Errorf("byte_order must be little or big, got %q", cfg.ByteOrder)
	}

	if len(cfg.Playlist) > stream.PlaylistCapacity {
		return fmt.Errorf("playlist has %d entries, at most %d are supported", len(cfg.Playlist), stream.PlaylistCapacity)
	}

	return nil
}

func validateURL(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%s must use ws:// or wss://, got %q", field, value)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", field, value)
	}
	return nil
}
