package animation

import (
	"golang.org/x/image/math/f64"
)

// Tween maps progress in [0, 1] onto a range of any type.
type Tween[T any] struct {
	Begin T
	End   T
	// Lerp interpolates between a and b. Nil means the tween always
	// yields End.
	Lerp func(a, b T, t float64) T
}

// Evaluate returns the value at progress t.
func (tw *Tween[T]) Evaluate(t float64) T {
	if tw.Lerp == nil {
		return tw.End
	}
	return tw.Lerp(tw.Begin, tw.End, t)
}

// LerpFloat64 interpolates two numbers.
func LerpFloat64(a, b, t float64) float64 {
	return a + (b-a)*t
}

// LerpVec2 interpolates two points.
func LerpVec2(a, b f64.Vec2, t float64) f64.Vec2 {
	return f64.Vec2{LerpFloat64(a[0], b[0], t), LerpFloat64(a[1], b[1], t)}
}

// LerpAff3 interpolates two affine transforms element-wise. It is exact
// for translations and scales; rotations shear in between.
func LerpAff3(a, b f64.Aff3, t float64) f64.Aff3 {
	var out f64.Aff3
	for i := range out {
		out[i] = LerpFloat64(a[i], b[i], t)
	}
	return out
}

// LerpColor interpolates two 0xAARRGGBB colors per channel.
func LerpColor(a, b uint32, t float64) uint32 {
	var out uint32
	for shift := 0; shift < 32; shift += 8 {
		ca := float64((a >> shift) & 0xFF)
		cb := float64((b >> shift) & 0xFF)
		c := LerpFloat64(ca, cb, t) + 0.5
		if c < 0 {
			c = 0
		} else if c > 255 {
			c = 255
		}
		out |= uint32(c) << shift
	}
	return out
}

// TweenFloat64 creates a number tween.
func TweenFloat64(begin, end float64) *Tween[float64] {
	return &Tween[float64]{Begin: begin, End: end, Lerp: LerpFloat64}
}

// TweenVec2 creates a point tween.
func TweenVec2(begin, end f64.Vec2) *Tween[f64.Vec2] {
	return &Tween[f64.Vec2]{Begin: begin, End: end, Lerp: LerpVec2}
}

// TweenAff3 creates a transform tween.
func TweenAff3(begin, end f64.Aff3) *Tween[f64.Aff3] {
	return &Tween[f64.Aff3]{Begin: begin, End: end, Lerp: LerpAff3}
}

// TweenColor creates a color tween.
func TweenColor(begin, end uint32) *Tween[uint32] {
	return &Tween[uint32]{Begin: begin, End: end, Lerp: LerpColor}
}
