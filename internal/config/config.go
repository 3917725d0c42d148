package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Extraction engines selectable with EXTRACTOR_ENGINE.
const (
	EngineStream = "stream"
	EngineYTDLP  = "ytdlp"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Extractor ExtractorConfig `yaml:"extractor"`
	YTDLP     YTDLPConfig     `yaml:"ytdlp"`
	Stream    StreamConfig    `yaml:"stream"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST" default:"0.0.0.0"`
	Port            int           `yaml:"port" envconfig:"PORT" default:"3000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"` // 0 = no limit, downloads stream for minutes
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level string `yaml:"level" envconfig:"LOG_LEVEL" default:"info"`
}

// ExtractorConfig selects the extraction engine.
type ExtractorConfig struct {
	Engine string `yaml:"engine" envconfig:"EXTRACTOR_ENGINE" default:"stream"`
}

// YTDLPConfig holds configuration for the external downloader engine.
type YTDLPConfig struct {
	Path         string        `yaml:"path" envconfig:"YTDLP_PATH" default:"yt-dlp"`
	TempDir      string        `yaml:"temp_dir" envconfig:"YTDLP_TEMP_DIR" default:"temp"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"YTDLP_TIMEOUT" default:"300s"`
	MinFreeBytes int64         `yaml:"min_free_bytes" envconfig:"YTDLP_MIN_FREE_BYTES"` // 0 disables the check
	NoUpdate     bool          `yaml:"no_update" envconfig:"YTDL_NO_UPDATE" default:"true"`
}

// StreamConfig holds configuration for the in-process streaming engine.
type StreamConfig struct {
	TranscodeAudio  bool          `yaml:"transcode_audio" envconfig:"STREAM_TRANSCODE_AUDIO" default:"true"`
	FFmpegPath      string        `yaml:"ffmpeg_path" envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	MetadataTimeout time.Duration `yaml:"metadata_timeout" envconfig:"STREAM_METADATA_TIMEOUT" default:"30s"`
}

// Load reads configuration from a .env file, an optional YAML file and
// environment variables. Environment variables override file values.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Extractor.Engine {
	case EngineStream:
		if c.Stream.TranscodeAudio && c.Stream.FFmpegPath == "" {
			return fmt.Errorf("FFMPEG_PATH is required when STREAM_TRANSCODE_AUDIO is set")
		}
	case EngineYTDLP:
		if c.YTDLP.Path == "" {
			return fmt.Errorf("YTDLP_PATH is required")
		}
		if c.YTDLP.TempDir == "" {
			return fmt.Errorf("YTDLP_TEMP_DIR is required")
		}
		if c.YTDLP.Timeout <= 0 {
			return fmt.Errorf("YTDLP_TIMEOUT must be positive")
		}
	default:
		return fmt.Errorf("EXTRACTOR_ENGINE must be %q or %q, got %q", EngineStream, EngineYTDLP, c.Extractor.Engine)
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SlogLevel parses the configured level name.
func (c *LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
