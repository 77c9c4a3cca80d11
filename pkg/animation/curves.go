package animation

import "math"

// Curve maps linear progress t in [0, 1] to eased progress.
//
// Standard curves: [Linear], [Ease], [EaseIn], [EaseOut], [EaseInOut].
// Use [CubicBezier] for custom curves matching CSS cubic-bezier().
type Curve func(t float64) float64

// Linear returns t unchanged.
func Linear(t float64) float64 {
	return t
}

// Ease is the general-purpose curve, CSS ease.
var Ease = CubicBezier(0.25, 0.1, 0.25, 1.0)

// EaseIn starts slowly and accelerates. CSS ease-in.
var EaseIn = CubicBezier(0.42, 0.0, 1.0, 1.0)

// EaseOut starts quickly and decelerates. CSS ease-out.
var EaseOut = CubicBezier(0.0, 0.0, 0.58, 1.0)

// EaseInOut starts and ends slowly. CSS ease-in-out.
var EaseInOut = CubicBezier(0.42, 0.0, 0.58, 1.0)

// CubicBezier returns the curve with control points (x1,y1) and (x2,y2),
// running from (0,0) to (1,1).
func CubicBezier(x1, y1, x2, y2 float64) Curve {
	return func(t float64) float64 {
		if t <= 0 {
			return 0
		}
		if t >= 1 {
			return 1
		}

		u := t
		// Newton-Raphson first, it converges in a few steps for sane curves.
		for range 8 {
			x := bezier(x1, x2, u) - t
			if math.Abs(x) < 1e-7 {
				return bezier(y1, y2, clampUnit(u))
			}
			dx := bezierSlope(x1, x2, u)
			if math.Abs(dx) < 1e-7 {
				break
			}
			u -= x / dx
		}

		// Bisection when the slope is flat.
		lo, hi := 0.0, 1.0
		u = clampUnit(u)
		for range 20 {
			x := bezier(x1, x2, u) - t
			if math.Abs(x) < 1e-7 {
				break
			}
			if x > 0 {
				hi = u
			} else {
				lo = u
			}
			u = (lo + hi) * 0.5
		}
		return bezier(y1, y2, u)
	}
}

// Steps returns a curve that jumps in n equal steps, like CSS steps(n, end).
func Steps(n int) Curve {
	if n < 1 {
		n = 1
	}
	return func(t float64) float64 {
		if t >= 1 {
			return 1
		}
		if t <= 0 {
			return 0
		}
		return math.Floor(t*float64(n)) / float64(n)
	}
}

// Reversed runs c backwards in time.
func Reversed(c Curve) Curve {
	return func(t float64) float64 { return 1 - c(1-t) }
}

func bezier(a, b, t float64) float64 {
	inv := 1 - t
	return 3*inv*inv*t*a + 3*inv*t*t*b + t*t*t
}

func bezierSlope(a, b, t float64) float64 {
	inv := 1 - t
	return 3*inv*inv*a + 6*inv*t*(b-a) + 3*t*t*(1-b)
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
