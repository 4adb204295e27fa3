// ABOUTME: Tests for session configuration
// ABOUTME: Tests defaults and validation rules
package app

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("movie.mp4")

	if cfg.Backend != "auto" || cfg.Output != "malgo" {
		t.Errorf("expected auto/malgo, got %s/%s", cfg.Backend, cfg.Output)
	}
	if cfg.LoaderInterval != 30*time.Millisecond || cfg.AudioInterval != 3*time.Millisecond {
		t.Errorf("unexpected intervals %v %v", cfg.LoaderInterval, cfg.AudioInterval)
	}
	if cfg.PacketReserve != 256 || cfg.FetchBatch != 20 || cfg.InitialPrefetch != 5000 {
		t.Errorf("unexpected loader settings %+v", cfg)
	}
	if cfg.DriftThreshold != 0.15 {
		t.Errorf("expected drift threshold 0.15, got %v", cfg.DriftThreshold)
	}
	if cfg.AudioBufferSize != 8192 || cfg.MaxAudioBufferSize != 524288 {
		t.Errorf("unexpected audio buffer sizes %d %d", cfg.AudioBufferSize, cfg.MaxAudioBufferSize)
	}
	if cfg.Volume != 1 || cfg.Speed != 1 {
		t.Errorf("expected volume and speed 1, got %v %v", cfg.Volume, cfg.Speed)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestWithDefaultsKeepsZeroVolume(t *testing.T) {
	cfg := Config{Path: "a.wav", Volume: 0}.withDefaults()
	if cfg.Volume != 0 {
		t.Errorf("expected volume 0 kept, got %v", cfg.Volume)
	}
	if cfg.Speed != 1 {
		t.Errorf("expected default speed, got %v", cfg.Speed)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"missing path", func(c *Config) { c.Path = "" }, true},
		{"bad backend", func(c *Config) { c.Backend = "gstreamer" }, true},
		{"bad output", func(c *Config) { c.Output = "pulse" }, true},
		{"native backend", func(c *Config) { c.Backend = "native" }, false},
		{"oto output", func(c *Config) { c.Output = "oto" }, false},
		{"negative threshold", func(c *Config) { c.DriftThreshold = -1 }, true},
		{"max below initial", func(c *Config) { c.MaxAudioBufferSize = 10 }, true},
		{"loud", func(c *Config) { c.Volume = 1.5 }, true},
		{"muted", func(c *Config) { c.Volume = 0 }, false},
		{"too fast", func(c *Config) { c.Speed = 6 }, true},
		{"slowest", func(c *Config) { c.Speed = 0.25 }, false},
		{"negative rate", func(c *Config) { c.SampleRate = -44100 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("movie.mp4")
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
