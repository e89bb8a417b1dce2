package core

import (
	"testing"

	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type stubLightSet struct {
	enabled bool
	lights  map[uuid.UUID]bool
}

func (s stubLightSet) IsEnabled() bool              { return s.enabled }
func (s stubLightSet) Contains(guid uuid.UUID) bool { return s.lights[guid] }

func baseLight() LightDesc {
	return LightDesc{
		GUID:                      uuid.New(),
		Kind:                      LightPoint,
		Radius:                    1000,
		Enabled:                   true,
		StaticOwner:               true,
		Channels:                  ChannelBSP | ChannelStatic,
		AffectsDefaultEnvironment: true,
		Level:                     "persistent",
	}
}

func baseTarget() AffectTarget {
	return AffectTarget{
		Bounds:               geom.NewBoxSphereBounds(mgl32.Vec3{}, mgl32.Vec3{50, 50, 50}, 50),
		Channels:             ChannelBSP,
		AcceptsLights:        true,
		AcceptsDynamicLights: true,
		Level:                "persistent",
	}
}

func TestLightAffects(t *testing.T) {
	farVolume := geom.ConvexVolumeFromBox(geom.Box{Min: mgl32.Vec3{5000, 5000, 5000}, Max: mgl32.Vec3{6000, 6000, 6000}})
	nearVolume := geom.ConvexVolumeFromBox(geom.Box{Min: mgl32.Vec3{-10, -10, -10}, Max: mgl32.Vec3{10, 10, 10}})

	tests := []struct {
		name   string
		light  func(l *LightDesc)
		target func(t *AffectTarget, l *LightDesc)
		want   bool
	}{
		{"default", nil, nil, true},
		{"disabled light", func(l *LightDesc) { l.Enabled = false }, nil, false},
		{"not affecting default environment", func(l *LightDesc) { l.AffectsDefaultEnvironment = false }, nil, false},
		{"environment lists light", func(l *LightDesc) { l.AffectsDefaultEnvironment = false },
			func(tg *AffectTarget, l *LightDesc) {
				tg.Environment = stubLightSet{enabled: true, lights: map[uuid.UUID]bool{l.GUID: true}}
			}, true},
		{"environment does not list light", nil,
			func(tg *AffectTarget, l *LightDesc) {
				tg.Environment = stubLightSet{enabled: true, lights: map[uuid.UUID]bool{}}
			}, false},
		{"disabled environment falls back to default", nil,
			func(tg *AffectTarget, l *LightDesc) { tg.Environment = stubLightSet{enabled: false} }, true},
		{"channels disjoint", func(l *LightDesc) { l.Channels = ChannelDynamic }, nil, false},
		{"does not accept lights", nil, func(tg *AffectTarget, _ *LightDesc) { tg.AcceptsLights = false }, false},
		{"dynamic light rejected", func(l *LightDesc) { l.StaticOwner = false },
			func(tg *AffectTarget, _ *LightDesc) { tg.AcceptsDynamicLights = false }, false},
		{"static light ignores dynamic acceptance", nil,
			func(tg *AffectTarget, _ *LightDesc) { tg.AcceptsDynamicLights = false }, true},
		{"out of radius", func(l *LightDesc) { l.Position = mgl32.Vec3{5000, 0, 0} }, nil, false},
		{"directional ignores range", func(l *LightDesc) { l.Kind = LightDirectional; l.Position = mgl32.Vec3{5000, 0, 0} }, nil, true},
		{"excluded", func(l *LightDesc) { l.UseVolumes = true; l.ExclusionVolumes = []geom.ConvexVolume{nearVolume} }, nil, false},
		{"not included", func(l *LightDesc) { l.UseVolumes = true; l.InclusionVolumes = []geom.ConvexVolume{farVolume} }, nil, false},
		{"included", func(l *LightDesc) {
			l.UseVolumes = true
			l.InclusionVolumes = []geom.ConvexVolume{farVolume, nearVolume}
		}, nil, true},
		{"volumes ignored unless enabled", func(l *LightDesc) { l.ExclusionVolumes = []geom.ConvexVolume{nearVolume} }, nil, true},
		{"self contained other level", func(l *LightDesc) { l.Level = "other" },
			func(tg *AffectTarget, _ *LightDesc) { tg.SelfContainedLighting = true }, false},
		{"self contained dynamic light", func(l *LightDesc) { l.Level = "other"; l.ForceDynamic = true },
			func(tg *AffectTarget, _ *LightDesc) { tg.SelfContainedLighting = true }, true},
		{"only same level", func(l *LightDesc) { l.Level = "other"; l.OnlyAffectSameAndSpecifiedLevels = true }, nil, false},
		{"specified level", func(l *LightDesc) {
			l.Level = "other"
			l.OnlyAffectSameAndSpecifiedLevels = true
			l.OtherLevelsToAffect = []string{"persistent"}
		}, nil, true},
	}
	for _, tt := range tests {
		l := baseLight()
		if tt.light != nil {
			tt.light(&l)
		}
		tg := baseTarget()
		if tt.target != nil {
			tt.target(&tg, &l)
		}
		if got := LightAffects(&l, &tg); got != tt.want {
			t.Errorf("%s: LightAffects = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestClassifyShadow(t *testing.T) {
	tests := []struct {
		name string
		in   ShadowInputs
		want ShadowClass
	}{
		{"no shadow", ShadowInputs{PrimitiveStaticShadowing: true}, ShadowClass{}},
		{"pre baked", ShadowInputs{
			PrimitiveStaticShadowing: true, LightCastStaticShadow: true, PrimitiveCastStaticShadow: true,
			PrimitiveCastDynamicShadow: true, PreBaked: true,
		}, ShadowClass{CastShadow: true}},
		{"static uncached", ShadowInputs{
			PrimitiveStaticShadowing: true, LightCastStaticShadow: true, PrimitiveCastStaticShadow: true,
			LightStaticShadowingCapable: true,
		}, ShadowClass{CastShadow: true, Type: ShadowVolume, Uncached: true}},
		{"static casting dynamic", ShadowInputs{
			PrimitiveStaticShadowing: true, LightCastStaticShadow: true, PrimitiveCastStaticShadow: true,
			PrimitiveCastDynamicShadow: true,
		}, ShadowClass{CastShadow: true, Type: ShadowVolume}},
		{"static without static cast", ShadowInputs{
			PrimitiveStaticShadowing: true, LightCastStaticShadow: true, LightStaticShadowingCapable: true,
			PrimitiveCastDynamicShadow: true,
		}, ShadowClass{}},
		{"static not casting dynamic", ShadowInputs{
			PrimitiveStaticShadowing: true, LightCastStaticShadow: true, PrimitiveCastStaticShadow: true,
		}, ShadowClass{CastShadow: true}},
		{"dynamic volume", ShadowInputs{LightCastDynamicShadow: true, PrimitiveCastDynamicShadow: true},
			ShadowClass{CastShadow: true, Type: ShadowVolume}},
		{"dynamic projected", ShadowInputs{
			LightCastDynamicShadow: true, PrimitiveCastDynamicShadow: true, LightProjectedForDynamic: true,
		}, ShadowClass{CastShadow: true, Type: ShadowProjected}},
	}
	for _, tt := range tests {
		if got := ClassifyShadow(tt.in); got != tt.want {
			t.Errorf("%s: ClassifyShadow = %+v, want %+v", tt.name, got, tt.want)
		}
		// pure function
		if ClassifyShadow(tt.in) != ClassifyShadow(tt.in) {
			t.Errorf("%s: classification is not deterministic", tt.name)
		}
	}
}

func TestLightingChannels_ForLightEnvironment(t *testing.T) {
	tests := []struct {
		in, want LightingChannels
	}{
		{ChannelBSP | ChannelCompositeDynamic, ChannelBSP | ChannelDynamic},
		{ChannelDynamic, 0},
		{ChannelStatic, ChannelStatic},
	}
	for _, tt := range tests {
		if got := tt.in.ForLightEnvironment(); got != tt.want {
			t.Errorf("ForLightEnvironment(%b) = %b, want %b", tt.in, got, tt.want)
		}
	}

	l := baseLight()
	l.Channels = ChannelCompositeDynamic
	tg := baseTarget()
	tg.Channels = ChannelDynamic
	if LightAffects(&l, &tg) {
		t.Errorf("composite channel must not match a primitive's dynamic channel")
	}
	tg.LightEnvironmentOwner = true
	if !LightAffects(&l, &tg) {
		t.Errorf("composite channel must match an owner's dynamic channel")
	}
}
