package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Box is an axis aligned box.
type Box struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EverythingBox contains every finite point.
var EverythingBox = Box{
	Min: mgl32.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	Max: mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
}

func BoxFromCenterExtent(center, extent mgl32.Vec3) Box {
	return Box{Min: center.Sub(extent), Max: center.Add(extent)}
}

func (b Box) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Box) Extent() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

func (b Box) Intersects(o Box) bool {
	if b.Min.X() > o.Max.X() || o.Min.X() > b.Max.X() {
		return false
	}
	if b.Min.Y() > o.Max.Y() || o.Min.Y() > b.Max.Y() {
		return false
	}
	if b.Min.Z() > o.Max.Z() || o.Min.Z() > b.Max.Z() {
		return false
	}
	return true
}

// Contains reports whether o lies completely inside b.
func (b Box) Contains(o Box) bool {
	for i := 0; i < 3; i++ {
		if o.Min[i] < b.Min[i] || o.Max[i] > b.Max[i] {
			return false
		}
	}
	return true
}

func (b Box) ContainsPoint(p mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

func (b Box) Union(o Box) Box {
	return Box{
		Min: mgl32.Vec3{min(b.Min.X(), o.Min.X()), min(b.Min.Y(), o.Min.Y()), min(b.Min.Z(), o.Min.Z())},
		Max: mgl32.Vec3{max(b.Max.X(), o.Max.X()), max(b.Max.Y(), o.Max.Y()), max(b.Max.Z(), o.Max.Z())},
	}
}

// ExpandBy grows the box by w on every side.
func (b Box) ExpandBy(w float32) Box {
	e := mgl32.Vec3{w, w, w}
	return Box{Min: b.Min.Sub(e), Max: b.Max.Add(e)}
}

// DistSquaredToPoint is zero for points inside the box.
func (b Box) DistSquaredToPoint(p mgl32.Vec3) float32 {
	var d float32
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			s := b.Min[i] - p[i]
			d += s * s
		} else if p[i] > b.Max[i] {
			s := p[i] - b.Max[i]
			d += s * s
		}
	}
	return d
}

// SegmentIntersects runs a slab test of the segment start->end against the box.
func (b Box) SegmentIntersects(start, end mgl32.Vec3) bool {
	dir := end.Sub(start)
	tMin, tMax := float32(0), float32(1)
	for i := 0; i < 3; i++ {
		if abs(dir[i]) < 1e-8 {
			if start[i] < b.Min[i] || start[i] > b.Max[i] {
				return false
			}
			continue
		}
		inv := 1 / dir[i]
		t1 := (b.Min[i] - start[i]) * inv
		t2 := (b.Max[i] - start[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = max(tMin, t1)
		tMax = min(tMax, t2)
		if tMin > tMax {
			return false
		}
	}
	return true
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
