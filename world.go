package scenecore

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/gekko3d/scenecore/scenert/rt/core"
	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/gekko3d/scenecore/scenert/rt/lightenv"
	"github.com/gekko3d/scenecore/scenert/rt/streaming"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// World is the game side registry of the primitives, lights, light
// environments and streamed textures. It records render commands through the
// App and keeps the state the light environments read between ticks.
type World struct {
	app    *App
	scene  *core.Scene
	render *core.RenderContext

	primitives    map[*PrimitiveComponent]struct{}
	lights        map[uuid.UUID]*LightComponent
	staticLights  []*core.LightDesc
	dynamicLights []*core.LightDesc
	casters       *ShadowCasters

	environments map[uuid.UUID]*LightEnvironmentComponent
	lightEnvs    *lightenv.Manager
	envSettings  lightenv.Settings
	envSystem    lightenv.SystemSettings
	envSeed      uint64
	envCount     uint64

	streaming *streaming.Scheduler

	// owned by the render context
	lightRecords map[uuid.UUID]*core.LightRecord
}

func newWorld(app *App, render *core.RenderContext) *World {
	return &World{
		app:          app,
		scene:        core.NewScene(render),
		render:       render,
		primitives:   make(map[*PrimitiveComponent]struct{}),
		lights:       make(map[uuid.UUID]*LightComponent),
		casters:      NewShadowCasters(),
		environments: make(map[uuid.UUID]*LightEnvironmentComponent),
		envSettings:  lightenv.DefaultSettings(),
		envSystem:    lightenv.DefaultSystemSettings(),
		lightRecords: make(map[uuid.UUID]*core.LightRecord),
	}
}

// Scene is the render side scene. Only touch it from a render command or
// after RenderContext().Flush().
func (w *World) Scene() *core.Scene { return w.scene }

func (w *World) RenderContext() *core.RenderContext { return w.render }

func (w *World) ShadowCasters() *ShadowCasters { return w.casters }

// LightEnvironments is nil without LightEnvironmentModule.
func (w *World) LightEnvironments() *lightenv.Manager { return w.lightEnvs }

// Streaming is nil without StreamingModule.
func (w *World) Streaming() *streaming.Scheduler { return w.streaming }

func (w *World) NumPrimitives() int { return len(w.primitives) }

func (w *World) NumLights() int { return len(w.lights) }

// StaticLights lists the attached world lights with static shadowing that
// affect the default light environment.
func (w *World) StaticLights() []*core.LightDesc { return w.staticLights }

func (w *World) DynamicLights() []*core.LightDesc { return w.dynamicLights }

func (w *World) Light(guid uuid.UUID) (*LightComponent, bool) {
	l, ok := w.lights[guid]
	return l, ok
}

func (w *World) LightEnvironment(id uuid.UUID) (*LightEnvironmentComponent, bool) {
	c, ok := w.environments[id]
	return c, ok
}

func (w *World) enqueue(op func()) {
	w.app.enqueueSceneOp(op)
}

func (w *World) attachPrimitive(p *PrimitiveComponent) {
	if p.attached {
		panic(fmt.Sprintf("primitive %s attached twice", p.ID))
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if env := p.LightEnvironment; env != nil {
		if w.environments[env.ID] != env {
			panic(fmt.Sprintf("primitive %s uses light environment %s which was not added", p.ID, env.ID))
		}
		env.primitives = append(env.primitives, p)
	}

	p.attached = true
	w.primitives[p] = struct{}{}
	w.casters.insert(p)

	desc := p.desc()
	w.enqueue(func() { p.record = w.scene.AttachPrimitive(desc) })
}

func (w *World) detachPrimitive(p *PrimitiveComponent) {
	if !p.attached {
		panic(fmt.Sprintf("primitive %s is not attached", p.ID))
	}
	if env := p.LightEnvironment; env != nil {
		env.primitives = slices.DeleteFunc(env.primitives, func(o *PrimitiveComponent) bool { return o == p })
	}

	p.attached = false
	delete(w.primitives, p)
	w.casters.remove(p)

	w.enqueue(func() {
		w.scene.DetachPrimitive(p.record)
		p.record = nil
	})
}

func (w *World) movePrimitive(p *PrimitiveComponent, bounds geom.BoxSphereBounds) {
	if !p.attached {
		panic(fmt.Sprintf("primitive %s is not attached", p.ID))
	}
	p.Bounds = bounds
	w.casters.move(p)

	w.enqueue(func() { w.scene.UpdatePrimitiveTransform(p.record, bounds) })
}

func (w *World) updateStaticMeshes(p *PrimitiveComponent) {
	if !p.attached {
		panic(fmt.Sprintf("primitive %s is not attached", p.ID))
	}
	w.enqueue(func() { w.scene.BeginDeferredUpdateStaticMeshes(p.record) })
}

func (w *World) lightList(d *core.LightDesc) *[]*core.LightDesc {
	if !d.AffectsDefaultEnvironment || d.Environment != uuid.Nil {
		return nil
	}
	if d.HasStaticShadowing() {
		return &w.staticLights
	}
	return &w.dynamicLights
}

func (w *World) listLight(d *core.LightDesc) {
	if list := w.lightList(d); list != nil {
		*list = append(*list, d)
	}
}

func (w *World) unlistLight(d *core.LightDesc) {
	if list := w.lightList(d); list != nil {
		*list = slices.DeleteFunc(*list, func(o *core.LightDesc) bool { return o == d })
	}
}

func (w *World) attachLight(l *LightComponent) {
	if l.snapshot != nil {
		panic(fmt.Sprintf("light %s attached twice", l.GUID))
	}
	if l.GUID == uuid.Nil {
		l.GUID = uuid.New()
	}
	if _, ok := w.lights[l.GUID]; ok {
		panic(fmt.Sprintf("light GUID %s is already in use", l.GUID))
	}

	desc := l.desc()
	snapshot := desc
	l.snapshot = &snapshot
	w.lights[l.GUID] = l
	w.listLight(l.snapshot)

	w.enqueue(func() { w.attachRecord(desc) })
}

func (w *World) detachLight(l *LightComponent) {
	if l.snapshot == nil {
		panic(fmt.Sprintf("light %s is not attached", l.GUID))
	}
	w.unlistLight(l.snapshot)
	l.snapshot = nil
	delete(w.lights, l.GUID)

	guid := l.GUID
	w.enqueue(func() { w.detachRecord(guid) })
}

func (w *World) updateLight(l *LightComponent) {
	if l.snapshot == nil {
		panic(fmt.Sprintf("light %s is not attached", l.GUID))
	}
	desc := l.desc()
	if desc.GUID != l.snapshot.GUID {
		panic(fmt.Sprintf("light %s cannot change its GUID to %s", l.snapshot.GUID, desc.GUID))
	}
	w.unlistLight(l.snapshot)
	*l.snapshot = desc
	w.listLight(l.snapshot)

	w.enqueue(func() { w.scene.UpdateLight(w.lightRecords[desc.GUID], desc) })
}

func (w *World) attachRecord(d core.LightDesc) {
	w.lightRecords[d.GUID] = w.scene.AttachLight(d)
}

func (w *World) detachRecord(guid uuid.UUID) {
	rec, ok := w.lightRecords[guid]
	if !ok {
		panic(fmt.Sprintf("no light record for %s", guid))
	}
	delete(w.lightRecords, guid)
	w.scene.DetachLight(rec)
}

// NewLightEnvironment returns a component with the configured default settings.
func (w *World) NewLightEnvironment(location mgl32.Vec3) *LightEnvironmentComponent {
	return &LightEnvironmentComponent{
		ID:       uuid.New(),
		Settings: w.envSettings,
		Location: location,
	}
}

func (w *World) addLightEnvironment(c *LightEnvironmentComponent) {
	if w.lightEnvs == nil {
		panic("light environments need LightEnvironmentModule")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if _, ok := w.environments[c.ID]; ok {
		panic(fmt.Sprintf("light environment %s added twice", c.ID))
	}

	rng := rand.New(rand.NewPCG(w.envSeed, w.envCount))
	w.envCount++
	c.accumulator = lightenv.NewAccumulator(c.ID, c.Settings, environmentOwner{c}, lightenv.Deps{
		Lights: w,
		Oracle: w.casters,
		Sink:   environmentSink{w},
		System: &w.envSystem,
	}, rng)
	w.environments[c.ID] = c

	id, enabled := c.ID, c.Settings.Enabled
	w.enqueue(func() { w.scene.AddLightEnvironment(id, enabled) })
	w.lightEnvs.Add(c.accumulator)
}

func (w *World) removeLightEnvironment(c *LightEnvironmentComponent) {
	if w.environments[c.ID] != c {
		panic(fmt.Sprintf("light environment %s was not added", c.ID))
	}
	if len(c.primitives) > 0 {
		panic(fmt.Sprintf("light environment %s removed with %d attached primitives", c.ID, len(c.primitives)))
	}

	// Destroy records the detach of every synthesized light first.
	w.lightEnvs.Remove(c.ID)
	delete(w.environments, c.ID)
	c.accumulator = nil

	id := c.ID
	w.enqueue(func() { w.scene.RemoveLightEnvironment(id) })
}

func (w *World) setLightEnvironmentEnabled(c *LightEnvironmentComponent, enabled bool) {
	if w.environments[c.ID] != c {
		panic(fmt.Sprintf("light environment %s was not added", c.ID))
	}
	c.Settings.Enabled = enabled
	c.accumulator.Settings.Enabled = enabled

	id := c.ID
	w.enqueue(func() { w.scene.SetLightEnvironmentEnabled(id, enabled) })
}

// environmentSink forwards the lights an accumulator produces to the scene.
type environmentSink struct {
	w *World
}

func (s environmentSink) AttachLight(light *core.LightDesc) {
	d := *light
	s.w.enqueue(func() { s.w.attachRecord(d) })
}

func (s environmentSink) DetachLight(light *core.LightDesc) {
	guid := light.GUID
	s.w.enqueue(func() { s.w.detachRecord(guid) })
}

func (s environmentSink) SetEnvironmentLights(env uuid.UUID, lights []uuid.UUID) {
	lights = slices.Clone(lights)
	s.w.enqueue(func() { s.w.scene.SetEnvironmentLights(env, lights) })
}

func (w *World) addTexture(t *streaming.Texture) {
	if w.streaming == nil {
		panic("texture streaming needs StreamingModule")
	}
	w.streaming.Add(t)
}

func (w *World) removeTexture(t *streaming.Texture) {
	if w.streaming == nil {
		panic("texture streaming needs StreamingModule")
	}
	w.streaming.Remove(t)
}
