package lightenv

import (
	"math/rand/v2"

	"github.com/gekko3d/scenecore/scenert/rt/core"
	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/gekko3d/scenecore/scenert/rt/sh"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// visibleWindow is how recently an owner must have been rendered to count as visible.
const visibleWindow = 1.0

// defaultOwnerRadius seeds the composite owner bounds around the owner location.
const defaultOwnerRadius = 50

// Accumulator gathers the lights around one owner into SH environments and
// turns them into a small set of representative lights.
type Accumulator struct {
	ID       uuid.UUID
	Settings Settings

	owner Owner
	deps  Deps
	rng   *rand.Rand

	samplePoints []mgl32.Vec3

	ownerBounds       geom.BoxSphereBounds
	ownerChannels     core.LightingChannels
	ownerLevel        string
	predictedPosition mgl32.Vec3

	lastUpdateTime            float64
	invisibleUpdateTime       float32
	minTimeBetweenFullUpdates float32
	firstFullUpdate           bool

	staticLight     sh.VectorRGB
	staticShadow    sh.VectorRGB
	newStaticLight  sh.VectorRGB
	newStaticShadow sh.VectorRGB
	dynamicLight    sh.VectorRGB
	dynamicShadow   sh.VectorRGB
	dynamicLights   []*core.LightDesc

	pool        []*pooledLight
	tracked     []uuid.UUID
	pendingFull bool
}

type pooledLight struct {
	desc     core.LightDesc
	attached bool
}

// NewAccumulator seeds the jitter and visibility samples from rng.
func NewAccumulator(id uuid.UUID, settings Settings, owner Owner, deps Deps, rng *rand.Rand) *Accumulator {
	if deps.System == nil {
		sys := DefaultSystemSettings()
		deps.System = &sys
	}
	a := &Accumulator{
		ID:                        id,
		Settings:                  settings,
		owner:                     owner,
		deps:                      deps,
		rng:                       rng,
		invisibleUpdateTime:       settings.InvisibleUpdateTime,
		minTimeBetweenFullUpdates: settings.MinTimeBetweenFullUpdates,
		firstFullUpdate:           true,
	}
	for i := 1; i < settings.NumVolumeVisibilitySamples; i++ {
		a.samplePoints = append(a.samplePoints, mgl32.Vec3{
			-1 + 2*rng.Float32(),
			-1 + 2*rng.Float32(),
			-1 + 2*rng.Float32(),
		})
	}
	// one sample always sits at the center of the owner bounds
	a.samplePoints = append(a.samplePoints, mgl32.Vec3{})
	return a
}

func (a *Accumulator) jitter() float32 {
	return 0.8 + 0.4*a.rng.Float32()
}

// Tick updates the environment if the owner needs it and rebuilds the lights.
func (a *Accumulator) Tick(dt float32, now float64) {
	run, full := a.beginTick(now)
	if !run {
		return
	}
	a.UpdateEnvironment(dt, now, full, false)
	a.finishTick()
}

// beginTick decides whether this tick updates and whether the update is full.
func (a *Accumulator) beginTick(now float64) (run, full bool) {
	if !a.Settings.Enabled {
		return false, false
	}
	sinceLast := float32(now - a.lastUpdateTime)
	visible := now-a.owner.LastRenderTime() < visibleWindow
	needed := a.Settings.Dynamic && (visible || sinceLast > a.invisibleUpdateTime)
	if !a.firstFullUpdate && !needed {
		return false, false
	}

	a.invisibleUpdateTime = a.Settings.InvisibleUpdateTime * a.jitter()
	if a.firstFullUpdate || sinceLast > a.minTimeBetweenFullUpdates {
		a.lastUpdateTime = now
		full = true
		a.minTimeBetweenFullUpdates = a.Settings.MinTimeBetweenFullUpdates * a.jitter()
	}
	return true, full
}

func (a *Accumulator) finishTick() {
	a.CreateEnvironmentLightList()
	a.firstFullUpdate = false
}

func (a *Accumulator) updateOwner() {
	a.ownerBounds = geom.NewBoxSphereBounds(a.owner.Location(), mgl32.Vec3{}, defaultOwnerRadius)
	a.ownerChannels = 0
	for _, p := range a.owner.Primitives() {
		a.ownerBounds = a.ownerBounds.Union(p.Bounds)
		a.ownerChannels |= p.Channels
	}
	a.ownerLevel = a.owner.Level()
}

// UpdateEnvironment recomputes the SH environments. A full update refreshes the
// static environment when the owner moved; dynamic lights are always refreshed.
func (a *Accumulator) UpdateEnvironment(dt float32, now float64, full, forceStatic bool) {
	previousBounds := a.ownerBounds
	previousPosition := a.predictedPosition
	a.updateOwner()
	a.predictedPosition = a.ownerBounds.Origin

	if full && (a.firstFullUpdate || forceStatic ||
		a.predictedPosition != previousPosition ||
		a.ownerBounds.SphereRadius != previousBounds.SphereRadius) {
		a.newStaticLight = sh.VectorRGB{}
		a.newStaticShadow = sh.VectorRGB{}
		for _, l := range a.deps.Lights.StaticLights() {
			a.addLight(l, &a.newStaticLight, &a.newStaticShadow, a.predictedPosition)
		}
		a.newStaticShadow = a.newStaticShadow.Add(
			sh.PointLight(a.Settings.AmbientShadowSourceDirection).Colored(a.Settings.AmbientShadowColor))
	}

	a.dynamicLight = sh.VectorRGB{}
	a.dynamicShadow = sh.VectorRGB{}
	a.dynamicLights = a.dynamicLights[:0]
	if a.Settings.Dynamic {
		for _, l := range a.deps.Lights.DynamicLights() {
			if a.deps.System.CompositeDynamicLights {
				a.addLight(l, &a.dynamicLight, &a.dynamicShadow, a.ownerBounds.Origin)
			} else if a.affectsOwner(l, a.ownerBounds.Origin) {
				a.dynamicLights = append(a.dynamicLights, l)
			}
		}
	}

	alpha := float32(1)
	if !a.firstFullUpdate {
		remaining := max(sh.Delta, float32(a.lastUpdateTime+float64(a.minTimeBetweenFullUpdates)-now))
		alpha = min(max(dt/remaining, 0), 1)
	}
	a.staticLight = sh.Lerp(a.staticLight, a.newStaticLight, alpha)
	a.staticShadow = sh.Lerp(a.staticShadow, a.newStaticShadow, alpha)
}

func (a *Accumulator) ownerTarget(pos mgl32.Vec3) *core.AffectTarget {
	return &core.AffectTarget{
		Bounds:                geom.NewBoxSphereBounds(pos, a.ownerBounds.BoxExtent, a.ownerBounds.SphereRadius),
		Channels:              a.ownerChannels,
		LightEnvironmentOwner: true,
		AcceptsLights:         true,
		AcceptsDynamicLights:  true,
		Level:                 a.ownerLevel,
	}
}

func (a *Accumulator) affectsOwner(l *core.LightDesc, pos mgl32.Vec3) bool {
	return core.LightAffects(l, a.ownerTarget(pos))
}

func (a *Accumulator) addLight(l *core.LightDesc, light, shadow *sh.VectorRGB, pos mgl32.Vec3) {
	if !a.affectsOwner(l, pos) {
		return
	}
	visibility, visible := a.lightVisibility(l)
	if !visible {
		return
	}
	c := contribution(l, pos, visibility)
	*light = light.Add(c)
	if l.CastCompositeShadow {
		*shadow = shadow.Add(c)
	}
}

// contribution is the SH of one light at pos.
func contribution(l *core.LightDesc, pos mgl32.Vec3, visibility float32) sh.VectorRGB {
	switch l.Kind {
	case core.LightSky:
		return sh.UpperSkyFunction().Colored(l.Color.Scale(l.Brightness)).
			Add(sh.LowerSkyFunction().Colored(l.LowerColor.Scale(l.LowerBrightness)))
	default:
		intensity := l.DirectIntensity(pos).Scale(visibility)
		return sh.PointLight(l.LightVector(pos)).Colored(intensity)
	}
}

// Destroy detaches every pooled light.
func (a *Accumulator) Destroy() {
	for _, l := range a.pool {
		if l.attached {
			a.deps.Sink.DetachLight(&l.desc)
			l.attached = false
		}
	}
	if len(a.tracked) > 0 {
		a.tracked = nil
		a.deps.Sink.SetEnvironmentLights(a.ID, nil)
	}
}

func (a *Accumulator) OwnerBounds() geom.BoxSphereBounds      { return a.ownerBounds }
func (a *Accumulator) OwnerChannels() core.LightingChannels   { return a.ownerChannels }
func (a *Accumulator) StaticLightEnvironment() sh.VectorRGB   { return a.staticLight }
func (a *Accumulator) StaticShadowEnvironment() sh.VectorRGB  { return a.staticShadow }
func (a *Accumulator) DynamicLightEnvironment() sh.VectorRGB  { return a.dynamicLight }
func (a *Accumulator) DynamicShadowEnvironment() sh.VectorRGB { return a.dynamicShadow }
func (a *Accumulator) DynamicLights() []*core.LightDesc       { return a.dynamicLights }
func (a *Accumulator) IsFirstUpdatePending() bool             { return a.firstFullUpdate }

// Lights returns the representative lights currently attached.
func (a *Accumulator) Lights() []*core.LightDesc {
	var out []*core.LightDesc
	for _, l := range a.pool {
		if l.attached {
			out = append(out, &l.desc)
		}
	}
	return out
}

// PoolSize is the number of lights ever allocated.
func (a *Accumulator) PoolSize() int { return len(a.pool) }
