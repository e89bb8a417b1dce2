package core

import (
	"math"

	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type LightKind uint8

const (
	LightPoint LightKind = iota
	LightDirectional
	LightSky
)

func (k LightKind) String() string {
	switch k {
	case LightPoint:
		return "point"
	case LightDirectional:
		return "directional"
	case LightSky:
		return "sky"
	}
	return "unknown"
}

type ShadowMode uint8

const (
	ShadowNormal ShadowMode = iota
	ShadowModulate
)

// LightDesc is the value snapshot of a light component. It is shared by the
// render scene and by light environments testing lights on the game side.
type LightDesc struct {
	GUID uuid.UUID
	Kind LightKind

	Position        mgl32.Vec3 // point
	Direction       mgl32.Vec3 // directional
	Radius          float32
	FalloffExponent float32

	Color      geom.LinearColor
	Brightness float32
	// sky lights only
	LowerColor      geom.LinearColor
	LowerBrightness float32

	Channels LightingChannels
	Enabled  bool

	StaticOwner  bool
	ForceDynamic bool

	CastShadows                bool
	CastStaticShadows          bool
	CastDynamicShadows         bool
	StaticShadowingCapable     bool
	ProjectedShadowsForDynamic bool
	// CastCompositeShadow folds the light into light environment shadows.
	CastCompositeShadow bool

	AffectsDefaultEnvironment bool

	UseVolumes       bool
	InclusionVolumes []geom.ConvexVolume
	ExclusionVolumes []geom.ConvexVolume

	Level                            string
	OnlyAffectSameAndSpecifiedLevels bool
	OtherLevelsToAffect              []string

	ShadowMode               ShadowMode
	ModShadowColor           geom.LinearColor
	ModShadowFadeoutTime     float32
	ModShadowFadeoutExponent float32

	// Environment binds the light to a single light environment. Nil for
	// lights placed in the world.
	Environment uuid.UUID
}

// HasStaticShadowing decides between the static and the dynamic light list.
func (d *LightDesc) HasStaticShadowing() bool {
	return d.StaticOwner && !d.ForceDynamic
}

func (d *LightDesc) CastsStaticShadow() bool {
	return d.CastShadows && d.CastStaticShadows
}

func (d *LightDesc) CastsDynamicShadow() bool {
	return d.CastShadows && d.CastDynamicShadows
}

// AffectsBounds is the per kind range test.
func (d *LightDesc) AffectsBounds(b geom.BoxSphereBounds) bool {
	switch d.Kind {
	case LightPoint:
		return b.SphereIntersects(d.Position, d.Radius)
	default:
		return true
	}
}

// Bounds is the region the light can reach.
func (d *LightDesc) Bounds() geom.Box {
	switch d.Kind {
	case LightPoint:
		return geom.BoxFromCenterExtent(d.Position, mgl32.Vec3{d.Radius, d.Radius, d.Radius})
	default:
		return geom.EverythingBox
	}
}

// LightVector points from p toward the light.
func (d *LightDesc) LightVector(p mgl32.Vec3) mgl32.Vec3 {
	switch d.Kind {
	case LightPoint:
		return d.Position.Sub(p)
	default:
		return d.Direction.Mul(-1)
	}
}

// RadialAttenuation is the point light falloff at distance dist.
func (d *LightDesc) RadialAttenuation(dist float32) float32 {
	if d.Radius <= 0 {
		return 0
	}
	r := dist / d.Radius
	return float32(math.Pow(float64(max(1-r*r, 0)), float64(d.FalloffExponent)))
}

// DirectIntensity is the light arriving at p, ignoring occlusion.
func (d *LightDesc) DirectIntensity(p mgl32.Vec3) geom.LinearColor {
	c := d.Color.Scale(d.Brightness)
	if d.Kind == LightPoint {
		c = c.Scale(d.RadialAttenuation(d.Position.Sub(p).Len()))
	}
	return c
}

// LightRecord is the render side state of an attached light.
type LightRecord struct {
	Desc LightDesc

	handle       Handle
	octreeID     elementID
	interactions []Handle
	attached     bool

	static    bool
	listIndex int

	numVolumeInteractions int
	drawList              DrawList
}

func (l *LightRecord) Handle() Handle { return l.handle }

func (l *LightRecord) IsAttached() bool { return l.attached }

// IsStatic reports whether the light sits in the static light list.
func (l *LightRecord) IsStatic() bool { return l.static }

func (l *LightRecord) NumInteractions() int { return len(l.interactions) }

// NumVolumeInteractions counts interactions classified as shadow volumes.
func (l *LightRecord) NumVolumeInteractions() int { return l.numVolumeInteractions }

// DrawList holds the static meshes lit by this light.
func (l *LightRecord) DrawList() *DrawList { return &l.drawList }
