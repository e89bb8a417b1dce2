package lightenv

import (
	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/go-gl/mathgl/mgl32"
)

// Settings are the per component tunables of a light environment.
type Settings struct {
	Enabled     bool
	Dynamic     bool
	CastShadows bool

	// InvisibleUpdateTime is the update interval while the owner is not rendered.
	InvisibleUpdateTime        float32
	MinTimeBetweenFullUpdates  float32
	NumVolumeVisibilitySamples int

	// LightDistance and ShadowDistance are multiples of the owner bounding radius.
	LightDistance  float32
	ShadowDistance float32

	LightDesaturation float32
	AmbientGlow       geom.LinearColor

	// AmbientShadowColor is folded into the shadow environment from
	// AmbientShadowSourceDirection on every static update.
	AmbientShadowColor           geom.LinearColor
	AmbientShadowSourceDirection mgl32.Vec3

	ModShadowFadeoutTime     float32
	ModShadowFadeoutExponent float32
}

func DefaultSettings() Settings {
	return Settings{
		Enabled:                      true,
		Dynamic:                      true,
		CastShadows:                  true,
		InvisibleUpdateTime:          4,
		MinTimeBetweenFullUpdates:    1,
		NumVolumeVisibilitySamples:   1,
		LightDistance:                10,
		ShadowDistance:               5,
		AmbientShadowSourceDirection: mgl32.Vec3{0, 0, 1},
		ModShadowFadeoutExponent:     3,
	}
}

// SystemSettings are shared by every light environment.
type SystemSettings struct {
	// CompositeDynamicLights folds dynamic lights into the SH. When off they
	// are tracked individually.
	CompositeDynamicLights  bool
	LightEnvironmentShadows bool
}

func DefaultSystemSettings() SystemSettings {
	return SystemSettings{CompositeDynamicLights: true, LightEnvironmentShadows: true}
}
