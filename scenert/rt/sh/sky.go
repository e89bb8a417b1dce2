package sh

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

const numIntegrationSamples = 1024

var (
	skyOnce  sync.Once
	upperSky Vector
	lowerSky Vector
)

// initSky projects the hemisphere visibility functions into the basis by
// integrating over a Fibonacci sphere, then scales each so that its dot with
// the pole point light is one.
func initSky() {
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := 0; i < numIntegrationSamples; i++ {
		z := 1 - (float64(i)+0.5)*2/numIntegrationSamples
		r := math.Sqrt(1 - z*z)
		phi := golden * float64(i)
		dir := mgl32.Vec3{float32(r * math.Cos(phi)), float32(r * math.Sin(phi)), float32(z)}
		b := Basis(dir)
		if z > 0 {
			upperSky = upperSky.Add(b)
		} else {
			lowerSky = lowerSky.Add(b)
		}
	}
	upperSky = upperSky.Scale(1 / upperSky.Dot(PointLight(mgl32.Vec3{0, 0, 1})))
	lowerSky = lowerSky.Scale(1 / lowerSky.Dot(PointLight(mgl32.Vec3{0, 0, -1})))
}

// UpperSkyFunction is light arriving uniformly from the upper hemisphere.
func UpperSkyFunction() Vector {
	skyOnce.Do(initSky)
	return upperSky
}

// LowerSkyFunction is light arriving uniformly from the lower hemisphere.
func LowerSkyFunction() Vector {
	skyOnce.Do(initSky)
	return lowerSky
}

// AmbientFunction is constant over the whole sphere.
func AmbientFunction() Vector {
	return UpperSkyFunction().Add(LowerSkyFunction())
}
