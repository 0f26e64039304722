// Package buddy wires the assistant together: it dispatches backend
// commands to the avatar, overlay and speech layers, runs the voice
// capture workflows, and owns the application lifecycle.
package buddy

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultBackendURL    = "http://localhost:5000"
	DefaultDashboardPort = "8181"
	DefaultTTSAddr       = "ws://localhost:7700/tts"
)

// Config holds all configuration for the assistant. Flag parsing is
// done in cmd/buddy/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug"`

	// BackendURL is the base URL of the assistant backend.
	BackendURL string `yaml:"backend_url"`

	// TTSAddr is the websocket address of the local speech daemon.
	TTSAddr string `yaml:"tts_addr"`

	// DashboardEnabled serves the web dashboard when true.
	DashboardEnabled bool   `yaml:"dashboard_enabled"`
	DashboardPort    string `yaml:"dashboard_port"`

	// EnrollSeconds caps the voice enrollment recording.
	EnrollSeconds int `yaml:"enroll_seconds"`

	// QuerySeconds caps a voice query recording.
	QuerySeconds int `yaml:"query_seconds"`

	// FaceSamples is how many stored camera samples a face enrollment
	// aims for, and the cap on capture attempts.
	FaceSamples int `yaml:"face_samples"`

	// FaceSampleGap is the pause between enrollment samples.
	FaceSampleGap time.Duration `yaml:"face_sample_gap"`

	// FaceLoginPoll is the pause between recognition attempts while
	// waiting for a face login.
	FaceLoginPoll time.Duration `yaml:"face_login_poll"`

	// PerceptionInterval is the pause between perception cycles.
	PerceptionInterval time.Duration `yaml:"perception_interval"`

	// HeartbeatInterval is the proactive-message poll cadence.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// DefaultConfig returns sensible defaults for the assistant.
func DefaultConfig() Config {
	return Config{
		BackendURL:         DefaultBackendURL,
		TTSAddr:            DefaultTTSAddr,
		DashboardEnabled:   true,
		DashboardPort:      DefaultDashboardPort,
		EnrollSeconds:      8,
		QuerySeconds:       6,
		FaceSamples:        50,
		FaceSampleGap:      200 * time.Millisecond,
		FaceLoginPoll:      1500 * time.Millisecond,
		PerceptionInterval: 5 * time.Second,
		HeartbeatInterval:  5 * time.Second,
	}
}

// LoadFile overlays values from a YAML config file. A missing file is
// not an error; defaults stand.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

// LoadEnvConfig loads configuration values from environment variables.
// Call this after flag parsing to apply environment overrides.
func (c *Config) LoadEnvConfig() {
	if url := os.Getenv("BUDDY_BACKEND_URL"); url != "" {
		c.BackendURL = url
	}
	if addr := os.Getenv("BUDDY_TTS_ADDR"); addr != "" {
		c.TTSAddr = addr
	}
	if port := os.Getenv("BUDDY_DASHBOARD_PORT"); port != "" {
		c.DashboardPort = port
	}
	if v := os.Getenv("BUDDY_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Debug = debug
		}
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return &ConfigError{Field: "BackendURL", Message: "backend URL is required"}
	}
	if c.EnrollSeconds <= 0 {
		return &ConfigError{Field: "EnrollSeconds", Message: "enrollment cap must be positive"}
	}
	if c.QuerySeconds <= 0 {
		return &ConfigError{Field: "QuerySeconds", Message: "query cap must be positive"}
	}
	if c.FaceSamples <= 0 {
		return &ConfigError{Field: "FaceSamples", Message: "face sample target must be positive"}
	}
	if c.FaceSampleGap <= 0 {
		return &ConfigError{Field: "FaceSampleGap", Message: "face sample gap must be positive"}
	}
	if c.FaceLoginPoll <= 0 {
		return &ConfigError{Field: "FaceLoginPoll", Message: "face login poll must be positive"}
	}
	if c.PerceptionInterval <= 0 {
		return &ConfigError{Field: "PerceptionInterval", Message: "perception interval must be positive"}
	}
	if c.HeartbeatInterval <= 0 {
		return &ConfigError{Field: "HeartbeatInterval", Message: "heartbeat interval must be positive"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
