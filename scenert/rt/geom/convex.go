package geom

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ConvexVolume is an intersection of half spaces. Plane normals point inside,
// a point p is inside a plane when dot(n, p) + w >= 0.
type ConvexVolume struct {
	Planes []mgl32.Vec4
}

// IntersectBox reports whether any part of the box is inside every plane.
func (v ConvexVolume) IntersectBox(b Box) bool {
	for _, plane := range v.Planes {
		// most inside vertex
		var p mgl32.Vec3
		for i := 0; i < 3; i++ {
			if plane[i] > 0 {
				p[i] = b.Max[i]
			} else {
				p[i] = b.Min[i]
			}
		}
		if plane[0]*p[0]+plane[1]*p[1]+plane[2]*p[2]+plane[3] < 0 {
			return false
		}
	}
	return true
}

// ConvexVolumeFromBox builds the six planes enclosing b.
func ConvexVolumeFromBox(b Box) ConvexVolume {
	return ConvexVolume{Planes: []mgl32.Vec4{
		{1, 0, 0, -b.Min.X()},
		{-1, 0, 0, b.Max.X()},
		{0, 1, 0, -b.Min.Y()},
		{0, -1, 0, b.Max.Y()},
		{0, 0, 1, -b.Min.Z()},
		{0, 0, -1, b.Max.Z()},
	}}
}
