package scenecore

import (
	"github.com/gekko3d/scenecore/scenert/rt/core"
	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type LightType uint32

const (
	LightTypePoint       LightType = 0
	LightTypeDirectional LightType = 1
	LightTypeSky         LightType = 2
)

func (t LightType) kind() core.LightKind {
	switch t {
	case LightTypeDirectional:
		return core.LightDirectional
	case LightTypeSky:
		return core.LightSky
	}
	return core.LightPoint
}

// LightComponent places a light in the world. Changes take effect through
// Commands.UpdateLight.
type LightComponent struct {
	GUID      uuid.UUID
	Type      LightType
	Position  mgl32.Vec3 // point
	Direction mgl32.Vec3 // directional
	Color     [3]float32
	Intensity float32
	Range     float32 // point
	Falloff   float32 // point, defaults to 2
	// sky only
	LowerColor     [3]float32
	LowerIntensity float32

	Channels core.LightingChannels
	Disabled bool

	// Static lights have precomputed shadowing unless ForceDynamic is set.
	Static       bool
	ForceDynamic bool

	CastShadows         bool
	CastStaticShadows   bool
	CastDynamicShadows  bool
	CastCompositeShadow bool

	AffectsDefaultEnvironment bool

	InclusionVolumes []geom.Box
	ExclusionVolumes []geom.Box

	Level                            string
	OnlyAffectSameAndSpecifiedLevels bool
	OtherLevelsToAffect              []string

	snapshot *core.LightDesc
}

func rgb(c [3]float32) geom.LinearColor {
	return geom.LinearColor{R: c[0], G: c[1], B: c[2], A: 1}
}

func (l *LightComponent) desc() core.LightDesc {
	falloff := l.Falloff
	if falloff == 0 {
		falloff = 2
	}
	d := core.LightDesc{
		GUID:                             l.GUID,
		Kind:                             l.Type.kind(),
		Position:                         l.Position,
		Direction:                        l.Direction,
		Radius:                           l.Range,
		FalloffExponent:                  falloff,
		Color:                            rgb(l.Color),
		Brightness:                       l.Intensity,
		LowerColor:                       rgb(l.LowerColor),
		LowerBrightness:                  l.LowerIntensity,
		Channels:                         l.Channels,
		Enabled:                          !l.Disabled,
		StaticOwner:                      l.Static,
		ForceDynamic:                     l.ForceDynamic,
		CastShadows:                      l.CastShadows,
		CastStaticShadows:                l.CastStaticShadows,
		CastDynamicShadows:               l.CastDynamicShadows,
		StaticShadowingCapable:           l.Static,
		CastCompositeShadow:              l.CastCompositeShadow,
		AffectsDefaultEnvironment:        l.AffectsDefaultEnvironment,
		UseVolumes:                       len(l.InclusionVolumes) > 0 || len(l.ExclusionVolumes) > 0,
		Level:                            l.Level,
		OnlyAffectSameAndSpecifiedLevels: l.OnlyAffectSameAndSpecifiedLevels,
		OtherLevelsToAffect:              l.OtherLevelsToAffect,
	}
	for _, b := range l.InclusionVolumes {
		d.InclusionVolumes = append(d.InclusionVolumes, geom.ConvexVolumeFromBox(b))
	}
	for _, b := range l.ExclusionVolumes {
		d.ExclusionVolumes = append(d.ExclusionVolumes, geom.ConvexVolumeFromBox(b))
	}
	return d
}

// Desc is the snapshot light environments see. Nil until attached.
func (l *LightComponent) Desc() *core.LightDesc { return l.snapshot }
