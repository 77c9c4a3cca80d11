package animation

import (
	"math"
	"time"
)

// Animation produces a value per frame. Timestamps are frame timestamps in
// milliseconds. An Animation holds run state and is not reusable across
// concurrent runs; Start resets it.
type Animation interface {
	// Start is called on the first frame with the target's current value.
	Start(from, timestamp float64)
	// Step returns the value at timestamp and whether the animation has
	// reached its end.
	Step(timestamp float64) (value float64, done bool)
}

// Timing moves to To over Duration along Curve.
type Timing struct {
	To       float64
	Duration time.Duration
	// Curve defaults to EaseInOut.
	Curve Curve

	from  float64
	start float64
}

// Start implements Animation.
func (a *Timing) Start(from, timestamp float64) {
	a.from = from
	a.start = timestamp
}

// Step implements Animation.
func (a *Timing) Step(timestamp float64) (float64, bool) {
	d := float64(a.Duration) / float64(time.Millisecond)
	if d <= 0 {
		return a.To, true
	}
	progress := (timestamp - a.start) / d
	if progress >= 1 {
		return a.To, true
	}
	if progress < 0 {
		progress = 0
	}
	curve := a.Curve
	if curve == nil {
		curve = EaseInOut
	}
	return LerpFloat64(a.from, a.To, curve(progress)), false
}

const (
	// DefaultDeceleration is the per-millisecond velocity decay of Decay.
	DefaultDeceleration = 0.998
	// DefaultVelocityThreshold is the speed (units per second) below which
	// a decay stops.
	DefaultVelocityThreshold = 0.5
)

// Decay coasts from the current value with Velocity (units per second),
// slowing down exponentially, like a fling.
type Decay struct {
	Velocity float64
	// Deceleration in (0, 1). Zero means DefaultDeceleration.
	Deceleration float64
	// VelocityThreshold stops the decay. Zero means
	// DefaultVelocityThreshold.
	VelocityThreshold float64
	// Clamp, when Min < Max, bounds the value; reaching a bound ends the
	// decay.
	Clamp struct{ Min, Max float64 }

	from  float64
	start float64
}

// Start implements Animation.
func (a *Decay) Start(from, timestamp float64) {
	a.from = from
	a.start = timestamp
}

func (a *Decay) k() float64 {
	if a.Deceleration <= 0 || a.Deceleration >= 1 {
		return DefaultDeceleration
	}
	return a.Deceleration
}

// Step implements Animation.
func (a *Decay) Step(timestamp float64) (float64, bool) {
	k := a.k()
	t := math.Max(0, timestamp-a.start)
	kt := math.Pow(k, t)
	// Integral of v0*k^t over t milliseconds.
	x := a.from + a.Velocity/1000*(kt-1)/math.Log(k)
	v := a.Velocity * kt

	if a.Clamp.Min < a.Clamp.Max {
		if x <= a.Clamp.Min {
			return a.Clamp.Min, true
		}
		if x >= a.Clamp.Max {
			return a.Clamp.Max, true
		}
	}
	threshold := a.VelocityThreshold
	if threshold <= 0 {
		threshold = DefaultVelocityThreshold
	}
	return x, math.Abs(v) < threshold
}

// Rest returns where the decay would stop without clamping.
func (a *Decay) Rest(from float64) float64 {
	k := a.k()
	return from - a.Velocity/1000/math.Log(k)
}

// Spring moves to To as a damped harmonic oscillator.
type Spring struct {
	To float64
	// Stiffness, Damping and Mass default to 100, 10 and 1.
	Stiffness float64
	Damping   float64
	Mass      float64
	// Velocity is the initial speed in units per second.
	Velocity float64
	// RestDisplacement and RestSpeed end the spring when both hold.
	// Defaults 0.001 and 0.001.
	RestDisplacement float64
	RestSpeed        float64

	x, v float64
	last float64
}

// Start implements Animation.
func (a *Spring) Start(from, timestamp float64) {
	a.x = from
	a.v = a.Velocity
	a.last = timestamp
}

// Step implements Animation. The oscillator is integrated with
// semi-implicit Euler in steps of at most one millisecond.
func (a *Spring) Step(timestamp float64) (float64, bool) {
	stiffness := orDefault(a.Stiffness, 100)
	damping := orDefault(a.Damping, 10)
	mass := orDefault(a.Mass, 1)

	elapsed := math.Min(timestamp-a.last, 64)
	a.last = timestamp
	for elapsed > 0 {
		dt := math.Min(elapsed, 1)
		elapsed -= dt
		s := dt / 1000
		force := -stiffness*(a.x-a.To) - damping*a.v
		a.v += force / mass * s
		a.x += a.v * s
	}

	if math.Abs(a.x-a.To) < orDefault(a.RestDisplacement, 0.001) &&
		math.Abs(a.v) < orDefault(a.RestSpeed, 0.001) {
		a.x, a.v = a.To, 0
		return a.To, true
	}
	return a.x, false
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
