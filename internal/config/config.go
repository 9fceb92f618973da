package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	FrameSize        int    `yaml:"frame_size"`
	PhotoWidth       int    `yaml:"photo_width"`
	PhotoHeight      int    `yaml:"photo_height"`
	Workers          int    `yaml:"workers"`
	CompressionLevel string `yaml:"compression"` // default, none, speed, best
	FPS              int    `yaml:"fps"`
	DPI              int    `yaml:"dpi"`

	AssetsDir    string `yaml:"assets_dir"`
	AssetPattern string `yaml:"asset_pattern"`
	TablePath    string `yaml:"table_path"` // empty means the built-in keyring table

	StoreBackend  string `yaml:"store_backend"` // dir or redis
	StoreDir      string `yaml:"store_dir"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPrefix   string `yaml:"redis_prefix"`
	RedisChannel  string `yaml:"redis_channel"`
	HTTPAddr      string `yaml:"http_addr"`
	PublicURL     string `yaml:"public_url"`
	MaxUploadSize int64  `yaml:"max_upload_size"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration of the keyring widget.
func Default() *Config {
	return &Config{
		FrameSize:        420,
		PhotoWidth:       158,
		PhotoHeight:      170,
		Workers:          0, // 0 = number of CPUs
		CompressionLevel: "default",
		FPS:              15,
		DPI:              150,
		AssetsDir:        "assets/keyring",
		AssetPattern:     "keyring_%02d.png",
		StoreBackend:     "dir",
		StoreDir:         "output/frames",
		RedisAddr:        "localhost:6379",
		RedisPrefix:      "keyring",
		RedisChannel:     "keyring:refresh",
		HTTPAddr:         ":8080",
		PublicURL:        "http://localhost:8080",
		MaxUploadSize:    32 << 20,
		LogLevel:         "info",
	}
}

// Load reads a YAML config file over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv loads .env files (if any) and overrides fields from KEYRING_* variables.
func (c *Config) ApplyEnv(envFiles ...string) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// .env is optional
		_ = godotenv.Load(f)
	}

	c.FrameSize = getEnvInt("KEYRING_FRAME_SIZE", c.FrameSize)
	c.PhotoWidth = getEnvInt("KEYRING_PHOTO_WIDTH", c.PhotoWidth)
	c.PhotoHeight = getEnvInt("KEYRING_PHOTO_HEIGHT", c.PhotoHeight)
	c.Workers = getEnvInt("KEYRING_WORKERS", c.Workers)
	c.CompressionLevel = getEnv("KEYRING_COMPRESSION", c.CompressionLevel)
	c.FPS = getEnvInt("KEYRING_FPS", c.FPS)
	c.DPI = getEnvInt("KEYRING_DPI", c.DPI)
	c.AssetsDir = getEnv("KEYRING_ASSETS_DIR", c.AssetsDir)
	c.AssetPattern = getEnv("KEYRING_ASSET_PATTERN", c.AssetPattern)
	c.TablePath = getEnv("KEYRING_TABLE", c.TablePath)
	c.StoreBackend = getEnv("KEYRING_STORE", c.StoreBackend)
	c.StoreDir = getEnv("KEYRING_STORE_DIR", c.StoreDir)
	c.RedisAddr = getEnv("KEYRING_REDIS_ADDR", c.RedisAddr)
	c.RedisPrefix = getEnv("KEYRING_REDIS_PREFIX", c.RedisPrefix)
	c.RedisChannel = getEnv("KEYRING_REDIS_CHANNEL", c.RedisChannel)
	c.HTTPAddr = getEnv("KEYRING_HTTP_ADDR", c.HTTPAddr)
	c.PublicURL = getEnv("KEYRING_PUBLIC_URL", c.PublicURL)
	c.MaxUploadSize = int64(getEnvInt("KEYRING_MAX_UPLOAD", int(c.MaxUploadSize)))
	c.LogLevel = getEnv("KEYRING_LOG_LEVEL", c.LogLevel)
}

func (c *Config) Validate() error {
	if c.FrameSize <= 0 || c.PhotoWidth <= 0 || c.PhotoHeight <= 0 {
		return fmt.Errorf("config: frame %d and photo %dx%d must be positive", c.FrameSize, c.PhotoWidth, c.PhotoHeight)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("config: fps must be positive, got %d", c.FPS)
	}
	switch c.StoreBackend {
	case "dir", "redis":
	default:
		return fmt.Errorf("config: unknown store backend %q", c.StoreBackend)
	}
	switch c.CompressionLevel {
	case "", "default", "none", "speed", "best":
	default:
		return fmt.Errorf("config: unknown compression %q", c.CompressionLevel)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}
