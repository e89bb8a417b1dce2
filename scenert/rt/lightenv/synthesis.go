package lightenv

import (
	"github.com/gekko3d/scenecore/scenert/rt/core"
	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/gekko3d/scenecore/scenert/rt/sh"
	"github.com/google/uuid"
)

// CreateEnvironmentLightList turns the accumulated SH into representative
// lights plus one sky light, and hands them to the sink.
func (a *Accumulator) CreateEnvironmentLightList() {
	remaining := a.staticLight.Add(a.dynamicLight)

	for _, l := range a.pool {
		if l.attached {
			a.deps.Sink.DetachLight(&l.desc)
			l.attached = false
		}
	}

	tracked := make([]uuid.UUID, 0, len(a.dynamicLights))
	for _, l := range a.dynamicLights {
		tracked = append(tracked, l.GUID)
	}
	if len(tracked) > 0 || len(a.tracked) > 0 {
		a.tracked = tracked
		a.deps.Sink.SetEnvironmentLights(a.ID, tracked)
	}

	var upperSky, lowerSky geom.LinearColor
	remaining, upperSky = extractSkyLight(remaining, upperSky, false, true)
	remaining, lowerSky = extractSkyLight(remaining, lowerSky, true, false)

	remaining = a.createRepresentativeLight(remaining, true, false)
	if a.Settings.CastShadows && a.deps.System.LightEnvironmentShadows {
		a.createRepresentativeLight(a.staticShadow.Add(a.dynamicShadow), false, true)
	}

	ambient := sh.AmbientFunction()
	remainingIntensity := remaining.Dot(ambient)
	upperSky = upperSky.Add(remainingIntensity)
	lowerSky = lowerSky.Add(remainingIntensity)
	remaining = remaining.Sub(ambient.Colored(remainingIntensity))

	sky := a.allocateLight(core.LightSky)
	sky.desc.Color, sky.desc.Brightness = ComputeLightBrightnessAndColor(
		upperSky.Desaturate(a.Settings.LightDesaturation).Add(a.Settings.AmbientGlow))
	sky.desc.LowerColor, sky.desc.LowerBrightness = ComputeLightBrightnessAndColor(
		lowerSky.Desaturate(a.Settings.LightDesaturation).Add(a.Settings.AmbientGlow))
	sky.desc.Channels = a.ownerChannels
	a.attach(sky)
}

// createRepresentativeLight moves the brightest direction of env into a point
// light placed around the owner, returning what is left of env.
func (a *Accumulator) createRepresentativeLight(env sh.VectorRGB, castLight, castShadows bool) sh.VectorRGB {
	dir := sh.MaximumDirection(env.Luminance(), true, true)
	if dir.LenSqr() < sh.Delta {
		return env
	}
	unit := sh.PointLight(dir)
	intensity := positive(env.Dot(unit))
	if intensity.R <= 0 && intensity.G <= 0 && intensity.B <= 0 {
		return env
	}
	env = env.Sub(unit.Colored(intensity))

	light := a.allocateLight(core.LightPoint)
	origin := a.ownerBounds.Origin
	r := a.ownerBounds.SphereRadius
	light.desc.Position = origin.Add(dir.Normalize().Mul(r * a.Settings.LightDistance))
	light.desc.Radius = r * (a.Settings.LightDistance + a.Settings.ShadowDistance + 2)
	light.desc.Channels = a.ownerChannels
	light.desc.CastShadows = castShadows
	light.desc.CastDynamicShadows = castShadows

	if castLight {
		atten := light.desc.RadialAttenuation(light.desc.Position.Sub(origin).Len())
		color := intensity
		if atten > 0 {
			color = intensity.Scale(1 / atten)
		}
		light.desc.Color, light.desc.Brightness = ComputeLightBrightnessAndColor(
			color.Desaturate(a.Settings.LightDesaturation))
	} else {
		light.desc.Brightness = 0
	}

	if castShadows {
		remainingAmbient := positive(env.Dot(sh.AmbientFunction()))
		light.desc.ShadowMode = core.ShadowModulate
		light.desc.ModShadowFadeoutTime = a.Settings.ModShadowFadeoutTime
		light.desc.ModShadowFadeoutExponent = a.Settings.ModShadowFadeoutExponent
		light.desc.ModShadowColor = geom.LinearColor{
			R: modShadow(remainingAmbient.R, intensity.R),
			G: modShadow(remainingAmbient.G, intensity.G),
			B: modShadow(remainingAmbient.B, intensity.B),
			A: 1,
		}
	}
	a.attach(light)
	return env
}

func modShadow(ambient, intensity float32) float32 {
	return min(1, ambient/max(ambient+intensity, sh.Delta))
}

// extractSkyLight removes the least lit hemisphere direction of env as sky light.
func extractSkyLight(env sh.VectorRGB, out geom.LinearColor, lower, upper bool) (sh.VectorRGB, geom.LinearColor) {
	dir := sh.MinimumDirection(env.Luminance(), lower, upper)
	intensity := positive(env.Dot(sh.PointLight(dir)))
	if intensity.R <= 0 && intensity.G <= 0 && intensity.B <= 0 {
		return env, out
	}
	out = out.Add(intensity)
	if lower {
		env = env.Sub(sh.LowerSkyFunction().Colored(intensity))
	}
	if upper {
		env = env.Sub(sh.UpperSkyFunction().Colored(intensity))
	}
	return env, out
}

// ComputeLightBrightnessAndColor splits c into a colour with a max component of
// one and a brightness. A black colour gets zero brightness.
func ComputeLightBrightnessAndColor(c geom.LinearColor) (geom.LinearColor, float32) {
	m := c.MaxComponent()
	if m <= 0 {
		return geom.LinearColor{A: 1}, 0
	}
	m = max(sh.Delta, m)
	color := c.Scale(1 / m)
	color.A = 1
	return color, m
}

func positive(c geom.LinearColor) geom.LinearColor {
	return geom.LinearColor{R: max(c.R, 0), G: max(c.G, 0), B: max(c.B, 0), A: c.A}
}

// allocateLight returns a detached pooled light of the given kind, creating one
// when none is free.
func (a *Accumulator) allocateLight(kind core.LightKind) *pooledLight {
	for _, l := range a.pool {
		if !l.attached && l.desc.Kind == kind {
			l.desc = newSyntheticLight(l.desc.GUID, kind, a.ID)
			return l
		}
	}
	l := &pooledLight{desc: newSyntheticLight(uuid.New(), kind, a.ID)}
	a.pool = append(a.pool, l)
	return l
}

func newSyntheticLight(guid uuid.UUID, kind core.LightKind, env uuid.UUID) core.LightDesc {
	return core.LightDesc{
		GUID:            guid,
		Kind:            kind,
		Enabled:         true,
		FalloffExponent: 2,
		Color:           geom.White,
		Environment:     env,
		// synthetic lights only reach the environment they were built for
		AffectsDefaultEnvironment: false,
	}
}

func (a *Accumulator) attach(l *pooledLight) {
	l.attached = true
	a.deps.Sink.AttachLight(&l.desc)
}
