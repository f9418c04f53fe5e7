package config

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BeatGlow/netdisplay/stream"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "netdisplay.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
panels:
  bottom: ws://192.168.230.205:81
  top: ws://192.168.230.171:81
delay: 250ms
ready_timeout: 5s
byte_order: big
playlist:
  - slides/one.png
  - ""
  - slides/three.jpg
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Panels.Bottom != "ws://192.168.230.205:81" || cfg.Panels.Top != "ws://192.168.230.171:81" {
		t.Errorf("unexpected panels %+v", cfg.Panels)
	}
	if cfg.Delay != 250*time.Millisecond {
		t.Errorf("expected delay 250ms, got %s", cfg.Delay)
	}
	if cfg.ReadyTimeout != 5*time.Second {
		t.Errorf("expected ready timeout 5s, got %s", cfg.ReadyTimeout)
	}
	if cfg.ConnectTimeout != 10*time.Second {
		t.Errorf("expected default connect timeout, got %s", cfg.ConnectTimeout)
	}
	if cfg.ChunkSize != 8192 {
		t.Errorf("expected default chunk size, got %d", cfg.ChunkSize)
	}
	if cfg.Order() != binary.BigEndian {
		t.Error("expected big endian byte order")
	}

	slots := cfg.PlaylistSlots()
	if len(slots) != stream.PlaylistCapacity || slots.Len() != 2 || slots[2] != "slides/three.jpg" {
		t.Errorf("unexpected playlist %q", slots[:3])
	}

	sc := cfg.Stream()
	if sc.BottomURL != cfg.Panels.Bottom || sc.TopURL != cfg.Panels.Top || sc.Delay != cfg.Delay {
		t.Errorf("unexpected stream config %+v", sc)
	}
	if sc.Dial == nil {
		t.Error("expected a dialer")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected missing file to fail")
	}

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "panels: [", "failed to parse"},
		{"no bottom", "panels: {top: 'ws://a:81'}", "panels.bottom is required"},
		{"scheme", "panels: {bottom: 'http://a:81', top: 'ws://b:81'}", "ws:// or wss://"},
		{"same panel", "panels: {bottom: 'ws://a:81', top: 'ws://a:81'}", "must be different"},
		{"delay", "panels: {bottom: 'ws://a:81', top: 'ws://b:81'}\ndelay: -1s", "delay"},
		{"order", "panels: {bottom: 'ws://a:81', top: 'ws://b:81'}\nbyte_order: middle", "byte_order"},
		{"chunk", "panels: {bottom: 'ws://a:81', top: 'ws://b:81'}\nchunk_size: -5", "chunk_size"},
	}
	for _, test := range tests {
		t.Run(test.name, func(it *testing.T) {
			_, err := Load(writeConfig(it, test.content))
			if err == nil || !strings.Contains(err.Error(), test.want) {
				it.Fatalf("expected error containing %q, got %v", test.want, err)
			}
		})
	}
}

func TestValidatePlaylistCapacity(t *testing.T) {
	cfg := Default()
	cfg.Panels = PanelsConfig{Bottom: "ws://a:81", Top: "ws://b:81"}
	cfg.Playlist = make([]string, stream.PlaylistCapacity+1)
	if err := Validate(cfg); err == nil {
		t.Fatal("expected oversized playlist to fail")
	}
}
