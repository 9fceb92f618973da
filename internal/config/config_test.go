package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.FrameSize != 420 || cfg.PhotoWidth != 158 || cfg.PhotoHeight != 170 {
		t.Errorf("Unexpected geometry: %d %dx%d", cfg.FrameSize, cfg.PhotoWidth, cfg.PhotoHeight)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keyring.yaml")
	data := []byte("frame_size: 300\nstore_backend: redis\nfps: 30\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.FrameSize != 300 {
		t.Errorf("Expected frame size 300, got %d", cfg.FrameSize)
	}
	if cfg.StoreBackend != "redis" {
		t.Errorf("Expected redis backend, got %s", cfg.StoreBackend)
	}
	// untouched fields keep their defaults
	if cfg.PhotoWidth != 158 {
		t.Errorf("Expected default photo width, got %d", cfg.PhotoWidth)
	}

	missing, err := Load(filepath.Join(dir, "nope.yaml"))
	if err != nil {
		t.Fatalf("Missing file should fall back to defaults: %v", err)
	}
	if missing.FrameSize != 420 {
		t.Errorf("Expected default frame size, got %d", missing.FrameSize)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("KEYRING_FRAME_SIZE", "512")
	t.Setenv("KEYRING_STORE_DIR", "/tmp/frames")
	t.Setenv("KEYRING_WORKERS", "not-a-number")

	cfg := Default()
	cfg.ApplyEnv(filepath.Join(t.TempDir(), "absent.env"))

	if cfg.FrameSize != 512 {
		t.Errorf("Expected 512, got %d", cfg.FrameSize)
	}
	if cfg.StoreDir != "/tmp/frames" {
		t.Errorf("Expected /tmp/frames, got %s", cfg.StoreDir)
	}
	if cfg.Workers != 0 {
		t.Errorf("Invalid int should keep fallback, got %d", cfg.Workers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"zero frame", func(c *Config) { c.FrameSize = 0 }, true},
		{"negative photo", func(c *Config) { c.PhotoHeight = -1 }, true},
		{"zero fps", func(c *Config) { c.FPS = 0 }, true},
		{"unknown backend", func(c *Config) { c.StoreBackend = "s3" }, true},
		{"unknown compression", func(c *Config) { c.CompressionLevel = "max" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
