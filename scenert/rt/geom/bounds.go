package geom

import (
	"github.com/go-gl/mathgl/mgl32"
)

// BoxSphereBounds stores a box and a bounding sphere sharing one origin.
type BoxSphereBounds struct {
	Origin       mgl32.Vec3
	BoxExtent    mgl32.Vec3
	SphereRadius float32
}

func NewBoxSphereBounds(origin, extent mgl32.Vec3, radius float32) BoxSphereBounds {
	return BoxSphereBounds{Origin: origin, BoxExtent: extent, SphereRadius: radius}
}

// BoundsFromBox derives the sphere from the box half diagonal.
func BoundsFromBox(b Box) BoxSphereBounds {
	extent := b.Extent()
	return BoxSphereBounds{Origin: b.Center(), BoxExtent: extent, SphereRadius: extent.Len()}
}

func (b BoxSphereBounds) Box() Box {
	return BoxFromCenterExtent(b.Origin, b.BoxExtent)
}

// Union returns bounds enclosing both inputs. The sphere is the smaller of the
// sphere around the merged box and the sphere enclosing both spheres.
func (b BoxSphereBounds) Union(o BoxSphereBounds) BoxSphereBounds {
	box := b.Box().Union(o.Box())
	res := BoundsFromBox(box)
	res.SphereRadius = min(res.SphereRadius, max(
		b.Origin.Sub(res.Origin).Len()+b.SphereRadius,
		o.Origin.Sub(res.Origin).Len()+o.SphereRadius,
	))
	return res
}

func (b BoxSphereBounds) Equal(o BoxSphereBounds) bool {
	return b.Origin == o.Origin && b.BoxExtent == o.BoxExtent && b.SphereRadius == o.SphereRadius
}

// SphereIntersects tests the bounds against a sphere, first by sphere then by box.
func (b BoxSphereBounds) SphereIntersects(center mgl32.Vec3, radius float32) bool {
	d := center.Sub(b.Origin).Len()
	if d > radius+b.SphereRadius {
		return false
	}
	return b.Box().DistSquaredToPoint(center) <= radius*radius
}
