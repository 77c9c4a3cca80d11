package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable, e.g. MOTION_FRAMES_FPS.
const EnvPrefix = "MOTION_"

// ApplyEnv overlays environment variables on c. Unset variables leave the
// current values alone.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(nil)
}

// applyEnv parses from environment when it is non-nil, from the process
// environment otherwise.
func (c *Config) applyEnv(environment map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
