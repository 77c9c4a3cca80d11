// Package config loads engine settings from an optional motion.yaml, an
// environment overlay with the MOTION_ prefix, and defaults, in that order
// of increasing precedence: environment beats file beats default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up by LoadOptional and Resolve.
const FileName = "motion.yaml"

// Config represents motion.yaml.
type Config struct {
	Engine      EngineConfig      `yaml:"engine" envPrefix:"ENGINE_"`
	Frames      FramesConfig      `yaml:"frames" envPrefix:"FRAMES_"`
	Props       PropsConfig       `yaml:"props" envPrefix:"PROPS_"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics" envPrefix:"DIAGNOSTICS_"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" envPrefix:"OTEL_"`
}

// EngineConfig contains engine settings.
type EngineConfig struct {
	// Version is the minimum engine release the project needs, or "latest".
	Version                 string `yaml:"version,omitempty" env:"VERSION"`
	ShortCircuitEqualWrites bool   `yaml:"shortCircuitEqualWrites,omitempty" env:"SHORT_CIRCUIT_WRITES"`
	LockRenderThread        bool   `yaml:"lockRenderThread,omitempty" env:"LOCK_RENDER_THREAD"`
}

// FramesConfig contains display link settings.
type FramesConfig struct {
	// FPS is the display link rate. Zero means 60.
	FPS int `yaml:"fps,omitempty" env:"FPS"`
}

// PropsConfig lists the view properties the router treats specially.
type PropsConfig struct {
	UI     []string `yaml:"ui,omitempty" env:"UI"`
	Native []string `yaml:"native,omitempty" env:"NATIVE"`
}

// DiagnosticsConfig contains frame tracing and debug server settings.
type DiagnosticsConfig struct {
	TraceFrames           bool          `yaml:"traceFrames,omitempty" env:"TRACE_FRAMES"`
	TraceSamples          int           `yaml:"traceSamples,omitempty" env:"TRACE_SAMPLES"`
	TargetFrameTime       time.Duration `yaml:"targetFrameTime,omitempty" env:"TARGET_FRAME_TIME"`
	DebugPort             int           `yaml:"debugPort,omitempty" env:"DEBUG_PORT"`
	RuntimeSampleInterval time.Duration `yaml:"runtimeSampleInterval,omitempty" env:"RUNTIME_SAMPLE_INTERVAL"`
}

// TelemetryConfig contains OpenTelemetry export settings.
type TelemetryConfig struct {
	Endpoint    string  `yaml:"endpoint,omitempty" env:"ENDPOINT"`
	Disabled    bool    `yaml:"disabled,omitempty" env:"DISABLED"`
	ServiceName string  `yaml:"serviceName,omitempty" env:"SERVICE_NAME"`
	SampleRatio float64 `yaml:"sampleRatio,omitempty" env:"SAMPLE_RATIO"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{Version: "latest"},
		Frames: FramesConfig{FPS: 60},
	}
}

// LoadFile reads the config file at path over the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return cfg, nil
}

// LoadOptional reads motion.yaml from dir if present.
func LoadOptional(dir string) (*Config, error) {
	cfg, err := LoadFile(filepath.Join(dir, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Resolve loads motion.yaml from dir (if present), applies the
// environment and validates the result.
func Resolve(dir string) (*Config, error) {
	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
