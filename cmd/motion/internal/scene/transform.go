package scene

import (
	"golang.org/x/image/math/f64"
)

// Identity is the identity transform.
var Identity = f64.Aff3{1, 0, 0, 0, 1, 0}

// Translate returns a translation by (x, y).
func Translate(x, y float64) f64.Aff3 {
	return f64.Aff3{1, 0, x, 0, 1, y}
}

// Scale returns a uniform scale about the origin.
func Scale(s float64) f64.Aff3 {
	return f64.Aff3{s, 0, 0, 0, s, 0}
}

// Mul returns a∘b: b is applied first.
func Mul(a, b f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		a[0]*b[0] + a[1]*b[3],
		a[0]*b[1] + a[1]*b[4],
		a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3],
		a[3]*b[1] + a[4]*b[4],
		a[3]*b[2] + a[4]*b[5] + a[5],
	}
}

// Apply maps p through m.
func Apply(m f64.Aff3, p f64.Vec2) f64.Vec2 {
	return f64.Vec2{
		m[0]*p[0] + m[1]*p[1] + m[2],
		m[3]*p[0] + m[4]*p[1] + m[5],
	}
}
