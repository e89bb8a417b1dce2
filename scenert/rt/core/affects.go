package core

import (
	"slices"

	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/google/uuid"
)

// LightSet is the light scope of a light environment.
type LightSet interface {
	IsEnabled() bool
	Contains(guid uuid.UUID) bool
}

// AffectTarget is what a light is tested against: a primitive, or the owner
// of a light environment.
type AffectTarget struct {
	Bounds      geom.BoxSphereBounds
	Channels    LightingChannels
	Environment LightSet

	// LightEnvironmentOwner converts the light channels with ForLightEnvironment.
	LightEnvironmentOwner bool

	AcceptsLights         bool
	AcceptsDynamicLights  bool
	Level                 string
	SelfContainedLighting bool
}

// LightAffects decides whether light interacts with target. Scene discovery
// and light environments both go through it.
func LightAffects(light *LightDesc, target *AffectTarget) bool {
	if !light.Enabled {
		return false
	}

	if target.Environment != nil && target.Environment.IsEnabled() {
		if !target.Environment.Contains(light.GUID) {
			return false
		}
	} else if !light.AffectsDefaultEnvironment {
		return false
	}

	channels := light.Channels
	if target.LightEnvironmentOwner {
		channels = channels.ForLightEnvironment()
	}
	if !channels.OverlapsWith(target.Channels) {
		return false
	}

	if !target.AcceptsLights {
		return false
	}
	if !light.HasStaticShadowing() && !target.AcceptsDynamicLights {
		return false
	}

	if !light.AffectsBounds(target.Bounds) {
		return false
	}
	if light.UseVolumes && !volumesAllow(light, target.Bounds.Box()) {
		return false
	}

	if target.SelfContainedLighting && light.HasStaticShadowing() && light.Level != target.Level {
		return false
	}
	if light.OnlyAffectSameAndSpecifiedLevels && light.Level != target.Level &&
		!slices.Contains(light.OtherLevelsToAffect, target.Level) {
		return false
	}
	return true
}

func volumesAllow(light *LightDesc, box geom.Box) bool {
	for _, v := range light.ExclusionVolumes {
		if v.IntersectBox(box) {
			return false
		}
	}
	if len(light.InclusionVolumes) == 0 {
		return true
	}
	for _, v := range light.InclusionVolumes {
		if v.IntersectBox(box) {
			return true
		}
	}
	return false
}
