package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// APIKeyEnv overrides transcription.api_key when set.
const APIKeyEnv = "NABRAH_TRANSCRIPTION_API_KEY"

// Config represents the complete service configuration
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Audio         AudioConfig         `yaml:"audio"`
	Analysis      AnalysisConfig      `yaml:"analysis"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Queue         QueueConfig         `yaml:"queue"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port           int      `yaml:"port"`
	Address        string   `yaml:"address"`
	ReadTimeout    int      `yaml:"read_timeout"`  // seconds
	WriteTimeout   int      `yaml:"write_timeout"` // seconds
	IdleTimeout    int      `yaml:"idle_timeout"`  // seconds
	MaxUploadMB    int      `yaml:"max_upload_mb"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// AudioConfig contains audio decoding parameters
type AudioConfig struct {
	// SampleRate resamples uploads before analysis; 0 keeps the native rate.
	SampleRate int `yaml:"sample_rate"`
}

// AnalysisConfig contains feature pipeline settings
type AnalysisConfig struct {
	Correction string `yaml:"correction"` // raw or corrected
	Timeout    int    `yaml:"timeout"`    // seconds
}

// TranscriptionConfig contains transcription backend configuration
type TranscriptionConfig struct {
	Backend       string `yaml:"backend"` // http, openai or disabled
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// QueueConfig contains review queue storage configuration
type QueueConfig struct {
	Backend     string `yaml:"backend"` // sqlite or badger
	Path        string `yaml:"path"`
	EventBuffer int    `yaml:"event_buffer"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:           8000,
			Address:        "0.0.0.0",
			ReadTimeout:    10,
			WriteTimeout:   60,
			IdleTimeout:    60,
			MaxUploadMB:    10,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Audio: AudioConfig{SampleRate: 0},
		Analysis: AnalysisConfig{
			Correction: "raw",
			Timeout:    30,
		},
		Transcription: TranscriptionConfig{
			Backend:       "disabled",
			Timeout:       60,
			MaxRetries:    2,
			MaxConcurrent: 2,
		},
		Queue: QueueConfig{
			Backend:     "sqlite",
			Path:        "nabrah_queue.db",
			EventBuffer: 16,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file. Keys missing from the file
// keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if key := os.Getenv(APIKeyEnv); key != "" {
		c.Transcription.APIKey = key
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("http address cannot be empty")
	}

	if h.ReadTimeout < 1 || h.WriteTimeout < 1 || h.IdleTimeout < 1 {
		return fmt.Errorf("timeouts must be at least 1 second, got read=%d write=%d idle=%d",
			h.ReadTimeout, h.WriteTimeout, h.IdleTimeout)
	}

	if h.MaxUploadMB < 1 || h.MaxUploadMB > 100 {
		return fmt.Errorf("max_upload_mb must be between 1 and 100, got %d", h.MaxUploadMB)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 0 && (a.SampleRate < 8000 || a.SampleRate > 48000) {
		return fmt.Errorf("sample_rate must be 0 or between 8000 and 48000 Hz, got %d", a.SampleRate)
	}

	return nil
}

// Validate validates analysis configuration
func (a *AnalysisConfig) Validate() error {
	if a.Correction != "raw" && a.Correction != "corrected" {
		return fmt.Errorf("correction must be 'raw' or 'corrected', got '%s'", a.Correction)
	}

	if a.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", a.Timeout)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	switch t.Backend {
	case "disabled":
		return nil
	case "http":
		if t.Endpoint == "" {
			return fmt.Errorf("endpoint cannot be empty for the http backend")
		}
	case "openai":
		if t.APIKey == "" && t.Endpoint == "" {
			return fmt.Errorf("api_key or endpoint is required for the openai backend")
		}
	default:
		return fmt.Errorf("backend must be 'http', 'openai' or 'disabled', got '%s'", t.Backend)
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	return nil
}

// Validate validates queue configuration
func (q *QueueConfig) Validate() error {
	if q.Backend != "sqlite" && q.Backend != "badger" {
		return fmt.Errorf("backend must be 'sqlite' or 'badger', got '%s'", q.Backend)
	}

	if q.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if q.EventBuffer < 1 {
		return fmt.Errorf("event_buffer must be at least 1, got %d", q.EventBuffer)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// Anything other than stdout or stderr is a file path.
	if l.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}

	return nil
}

// GetReadTimeoutDuration returns the read timeout as a time.Duration
func (h *HTTPConfig) GetReadTimeoutDuration() time.Duration {
	return time.Duration(h.ReadTimeout) * time.Second
}

// GetWriteTimeoutDuration returns the write timeout as a time.Duration
func (h *HTTPConfig) GetWriteTimeoutDuration() time.Duration {
	return time.Duration(h.WriteTimeout) * time.Second
}

// GetIdleTimeoutDuration returns the idle timeout as a time.Duration
func (h *HTTPConfig) GetIdleTimeoutDuration() time.Duration {
	return time.Duration(h.IdleTimeout) * time.Second
}

// GetMaxUploadBytes returns the upload limit in bytes
func (h *HTTPConfig) GetMaxUploadBytes() int64 {
	return int64(h.MaxUploadMB) << 20
}

// GetTimeoutDuration returns the analysis timeout as a time.Duration
func (a *AnalysisConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}
