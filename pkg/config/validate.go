package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/go-drift/motion/pkg/engine"
)

// ErrEngineTooOld is returned when the config asks for a newer engine than
// the running one.
var ErrEngineTooOld = errors.New("engine too old")

// Validate checks ranges, property lists and the engine version.
func (c *Config) Validate() error {
	var errs []error
	if c.Frames.FPS < 0 || c.Frames.FPS > 240 {
		errs = append(errs, fmt.Errorf("frames.fps %d out of range [0, 240]", c.Frames.FPS))
	}
	d := c.Diagnostics
	if d.TraceSamples < 0 {
		errs = append(errs, fmt.Errorf("diagnostics.traceSamples must not be negative"))
	}
	if d.TargetFrameTime < 0 || d.RuntimeSampleInterval < 0 {
		errs = append(errs, fmt.Errorf("diagnostics durations must not be negative"))
	}
	if d.DebugPort < 0 || d.DebugPort > 65535 {
		errs = append(errs, fmt.Errorf("diagnostics.debugPort %d is not a port", d.DebugPort))
	}
	if r := c.Telemetry.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sampleRatio %v out of range [0, 1]", r))
	}
	native := make(map[string]bool, len(c.Props.Native))
	for _, p := range c.Props.Native {
		native[p] = true
	}
	for _, p := range c.Props.UI {
		if native[p] {
			errs = append(errs, fmt.Errorf("prop %q is listed as both ui and native", p))
		}
	}
	if err := CheckEngineVersion(c.Engine.Version, engine.Version); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CheckEngineVersion reports whether running satisfies the minimum
// version want. An empty want or "latest" accepts any engine; versions may
// omit the leading "v".
func CheckEngineVersion(want, running string) error {
	want = strings.TrimSpace(want)
	if want == "" || want == "latest" {
		return nil
	}
	v := want
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return fmt.Errorf("engine.version %q is not a semantic version", want)
	}
	if semver.Compare(v, running) > 0 {
		return fmt.Errorf("%w: config wants %s, running %s", ErrEngineTooOld, semver.Canonical(v), running)
	}
	return nil
}
