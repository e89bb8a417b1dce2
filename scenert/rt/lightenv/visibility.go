package lightenv

import (
	"github.com/gekko3d/scenecore/scenert/rt/core"
	"github.com/gekko3d/scenecore/scenert/rt/spatial"
	"github.com/go-gl/mathgl/mgl32"
)

// lightVisibility samples the owner bounds against the oracle and returns the
// fraction of samples that can see the light.
func (a *Accumulator) lightVisibility(l *core.LightDesc) (float32, bool) {
	if l.Kind == core.LightSky || !l.CastsStaticShadow() || a.deps.Oracle == nil {
		return 1, true
	}
	visible := 0
	for _, sample := range a.samplePoints {
		start := a.predictedPosition.Add(mulElem(sample, a.ownerBounds.BoxExtent))
		end := l.Position
		if l.Kind != core.LightPoint {
			end = start.Sub(l.Direction.Normalize().Mul(spatial.HalfWorldMax))
		}
		if a.deps.Oracle.IsSegmentClear(start, end, l) {
			visible++
		}
	}
	fraction := float32(visible) / float32(len(a.samplePoints))
	return fraction, fraction > 0
}

func mulElem(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
