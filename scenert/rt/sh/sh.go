// Package sh implements the third order spherical harmonic vectors used to
// accumulate lighting around dynamic objects.
package sh

import (
	"math"

	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/go-gl/mathgl/mgl32"
)

// NumCoefficients is the basis size of a third order SH.
const NumCoefficients = 9

// Delta is the threshold below which energies and directions are treated as zero.
const Delta = 0.00001

// Vector holds the coefficients in band order. V[1..3] are the linear band
// with the Condon-Shortley phase, so V[1] ~ -y, V[2] ~ z and V[3] ~ -x.
type Vector [NumCoefficients]float32

func (v Vector) Add(o Vector) Vector {
	for i := range v {
		v[i] += o[i]
	}
	return v
}

func (v Vector) Sub(o Vector) Vector {
	for i := range v {
		v[i] -= o[i]
	}
	return v
}

func (v Vector) Scale(s float32) Vector {
	for i := range v {
		v[i] *= s
	}
	return v
}

func (v Vector) Dot(o Vector) float32 {
	var r float32
	for i := range v {
		r += v[i] * o[i]
	}
	return r
}

// Colored multiplies the vector by a colour, producing an RGB vector.
func (v Vector) Colored(c geom.LinearColor) VectorRGB {
	return VectorRGB{R: v.Scale(c.R), G: v.Scale(c.G), B: v.Scale(c.B)}
}

// Basis evaluates the basis functions for a unit direction.
func Basis(dir mgl32.Vec3) Vector {
	x, y, z := dir.X(), dir.Y(), dir.Z()
	return Vector{
		0.282095,
		-0.488603 * y,
		0.488603 * z,
		-0.488603 * x,
		1.092548 * x * y,
		-1.092548 * y * z,
		0.315392 * (3*z*z - 1),
		-1.092548 * x * z,
		0.546274 * (x*x - y*y),
	}
}

// basisInvLength is 1/|Basis(d)|, which is the same for every unit direction.
var basisInvLength = func() float32 {
	b := Basis(mgl32.Vec3{0, 0, 1})
	return float32(1 / math.Sqrt(float64(b.Dot(b))))
}()

// PointLight returns the normalized SH of a light arriving from dir.
func PointLight(dir mgl32.Vec3) Vector {
	return Basis(safeNormal(dir)).Scale(basisInvLength)
}

func safeNormal(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l < 1e-8 {
		return mgl32.Vec3{}
	}
	return v.Mul(1 / l)
}

// MaximumDirection approximates the direction where v is highest from the
// first two bands. lower/upper restrict the result to those hemispheres.
func MaximumDirection(v Vector, lower, upper bool) mgl32.Vec3 {
	z := v[2]
	if !lower {
		z = max(z, 0)
	}
	if !upper {
		z = min(z, 0)
	}
	return mgl32.Vec3{-v[3], -v[1], z}
}

// MinimumDirection is the counterpart of MaximumDirection.
func MinimumDirection(v Vector, lower, upper bool) mgl32.Vec3 {
	z := -v[2]
	if !lower {
		z = max(z, 0)
	}
	if !upper {
		z = min(z, 0)
	}
	return mgl32.Vec3{v[3], v[1], z}
}

// VectorRGB is one SH vector per colour channel.
type VectorRGB struct {
	R, G, B Vector
}

func (v VectorRGB) Add(o VectorRGB) VectorRGB {
	return VectorRGB{R: v.R.Add(o.R), G: v.G.Add(o.G), B: v.B.Add(o.B)}
}

func (v VectorRGB) Sub(o VectorRGB) VectorRGB {
	return VectorRGB{R: v.R.Sub(o.R), G: v.G.Sub(o.G), B: v.B.Sub(o.B)}
}

func (v VectorRGB) Scale(s float32) VectorRGB {
	return VectorRGB{R: v.R.Scale(s), G: v.G.Scale(s), B: v.B.Scale(s)}
}

// Dot projects every channel on b.
func (v VectorRGB) Dot(b Vector) geom.LinearColor {
	return geom.LinearColor{R: v.R.Dot(b), G: v.G.Dot(b), B: v.B.Dot(b), A: 1}
}

// Luminance folds the channels with the 0.3/0.59/0.11 weights.
func (v VectorRGB) Luminance() Vector {
	return v.R.Scale(0.3).Add(v.G.Scale(0.59)).Add(v.B.Scale(0.11))
}

func (v VectorRGB) IsZero() bool {
	return v == VectorRGB{}
}

// Lerp returns a + (b-a)*alpha.
func Lerp(a, b VectorRGB, alpha float32) VectorRGB {
	return a.Add(b.Sub(a).Scale(alpha))
}
