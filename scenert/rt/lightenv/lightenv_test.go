package lightenv

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/gekko3d/scenecore/scenert/rt/core"
	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/gekko3d/scenecore/scenert/rt/sh"
	"github.com/gekko3d/scenecore/scenert/rt/spatial"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOwner struct {
	location   mgl32.Vec3
	prims      []OwnedPrimitive
	lastRender float64
}

func (o *stubOwner) Location() mgl32.Vec3         { return o.location }
func (o *stubOwner) Primitives() []OwnedPrimitive { return o.prims }
func (o *stubOwner) Level() string                { return "" }
func (o *stubOwner) LastRenderTime() float64      { return o.lastRender }

func newStubOwner() *stubOwner {
	return &stubOwner{prims: []OwnedPrimitive{{
		Bounds:   geom.NewBoxSphereBounds(mgl32.Vec3{}, mgl32.Vec3{10, 10, 10}, 17.32),
		Channels: core.ChannelDynamic,
	}}}
}

type stubLists struct {
	static, dynamic []*core.LightDesc
}

func (l *stubLists) StaticLights() []*core.LightDesc  { return l.static }
func (l *stubLists) DynamicLights() []*core.LightDesc { return l.dynamic }

type stubSink struct {
	mu       sync.Mutex
	attached map[uuid.UUID]*core.LightDesc
	attaches int
	detaches int
	envs     map[uuid.UUID][]uuid.UUID
}

func newStubSink() *stubSink {
	return &stubSink{attached: map[uuid.UUID]*core.LightDesc{}, envs: map[uuid.UUID][]uuid.UUID{}}
}

func (s *stubSink) AttachLight(l *core.LightDesc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attached[l.GUID]; ok {
		panic("light attached twice")
	}
	s.attached[l.GUID] = l
	s.attaches++
}

func (s *stubSink) DetachLight(l *core.LightDesc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attached[l.GUID]; !ok {
		panic("detaching a light that is not attached")
	}
	delete(s.attached, l.GUID)
	s.detaches++
}

func (s *stubSink) SetEnvironmentLights(env uuid.UUID, lights []uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envs[env] = lights
}

func (s *stubSink) byKind(kind core.LightKind) []*core.LightDesc {
	var out []*core.LightDesc
	for _, l := range s.attached {
		if l.Kind == kind {
			out = append(out, l)
		}
	}
	return out
}

type segment struct{ start, end mgl32.Vec3 }

type stubOracle struct {
	mu       sync.Mutex
	clear    bool
	segments []segment
}

func (o *stubOracle) IsSegmentClear(start, end mgl32.Vec3, _ *core.LightDesc) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.segments = append(o.segments, segment{start, end})
	return o.clear
}

func sunLight() *core.LightDesc {
	return &core.LightDesc{
		GUID:                      uuid.New(),
		Kind:                      core.LightDirectional,
		Direction:                 mgl32.Vec3{0, 0, -1},
		Color:                     geom.White,
		Brightness:                1,
		Channels:                  core.ChannelCompositeDynamic,
		Enabled:                   true,
		StaticOwner:               true,
		AffectsDefaultEnvironment: true,
	}
}

func pointLight(pos mgl32.Vec3, radius float32) *core.LightDesc {
	l := sunLight()
	l.Kind = core.LightPoint
	l.Position = pos
	l.Radius = radius
	l.FalloffExponent = 2
	return l
}

type fixture struct {
	owner  *stubOwner
	lists  *stubLists
	sink   *stubSink
	oracle *stubOracle
	system SystemSettings
}

func newFixture() *fixture {
	return &fixture{
		owner:  newStubOwner(),
		lists:  &stubLists{},
		sink:   newStubSink(),
		oracle: &stubOracle{clear: true},
		system: DefaultSystemSettings(),
	}
}

func (f *fixture) accumulator(settings Settings) *Accumulator {
	deps := Deps{Lights: f.lists, Oracle: f.oracle, Sink: f.sink, System: &f.system}
	return NewAccumulator(uuid.New(), settings, f.owner, deps, rand.New(rand.NewPCG(1, 2)))
}

func TestAccumulator_NoLights(t *testing.T) {
	f := newFixture()
	a := f.accumulator(DefaultSettings())

	a.Tick(0.016, 0)

	assert.True(t, a.StaticLightEnvironment().IsZero())
	assert.True(t, a.StaticShadowEnvironment().IsZero())
	assert.True(t, a.DynamicLightEnvironment().IsZero())
	assert.True(t, a.DynamicShadowEnvironment().IsZero())

	assert.Empty(t, f.sink.byKind(core.LightPoint), "no representative lights expected")
	skies := f.sink.byKind(core.LightSky)
	require.Len(t, skies, 1)
	assert.Zero(t, skies[0].Brightness)
	assert.Zero(t, skies[0].LowerBrightness)
	assert.Equal(t, a.ID, skies[0].Environment)
	assert.False(t, skies[0].AffectsDefaultEnvironment)
	assert.False(t, a.IsFirstUpdatePending())
}

func TestAccumulator_RepresentativeLight(t *testing.T) {
	f := newFixture()
	f.lists.static = []*core.LightDesc{sunLight()}
	a := f.accumulator(DefaultSettings())

	a.Tick(0.016, 0)

	require.False(t, a.StaticLightEnvironment().IsZero())
	points := f.sink.byKind(core.LightPoint)
	require.Len(t, points, 1)
	l := points[0]

	bounds := a.OwnerBounds()
	r := bounds.SphereRadius
	assert.InDelta(t, r*10, l.Position.Sub(bounds.Origin).Len(), 1e-2)
	assert.Greater(t, l.Position.Z(), bounds.Origin.Z()+r*9)
	assert.InDelta(t, r*17, l.Radius, 1e-3)
	// the representative light pulls 1.0667 out of the SH; the attenuation at
	// 10/17 of the radius is 0.4277
	assert.InDelta(t, 2.494, l.Brightness, 1e-2)
	assert.InDelta(t, 1, l.Color.MaxComponent(), 1e-5)
	assert.Equal(t, a.OwnerChannels(), l.Channels)
	assert.False(t, l.CastShadows)
}

func TestAccumulator_ShadowLight(t *testing.T) {
	f := newFixture()
	sun := sunLight()
	sun.CastCompositeShadow = true
	f.lists.static = []*core.LightDesc{sun}
	settings := DefaultSettings()
	settings.ModShadowFadeoutTime = 2
	a := f.accumulator(settings)

	a.Tick(0.016, 0)

	var shadow *core.LightDesc
	for _, l := range f.sink.byKind(core.LightPoint) {
		if l.CastShadows {
			shadow = l
		}
	}
	require.NotNil(t, shadow)
	assert.Zero(t, shadow.Brightness)
	assert.Equal(t, core.ShadowModulate, shadow.ShadowMode)
	assert.Equal(t, float32(2), shadow.ModShadowFadeoutTime)
	assert.Equal(t, float32(3), shadow.ModShadowFadeoutExponent)
	assert.InDelta(t, 0, shadow.ModShadowColor.R, 1e-4)

	f.system.LightEnvironmentShadows = false
	a.UpdateEnvironment(0.016, 0.1, false, false)
	a.CreateEnvironmentLightList()
	for _, l := range f.sink.byKind(core.LightPoint) {
		assert.False(t, l.CastShadows, "shadow light with shadows disabled")
	}
}

func TestAccumulator_BlendHasNoDrift(t *testing.T) {
	f := newFixture()
	f.lists.static = []*core.LightDesc{pointLight(mgl32.Vec3{0, 200, 0}, 1000)}
	f.owner.lastRender = 1e9
	a := f.accumulator(DefaultSettings())

	a.Tick(0.016, 0)
	first := a.StaticLightEnvironment()
	require.False(t, first.IsZero())

	for now := 2.0; now < 20; now += 2 {
		a.Tick(0.016, now)
		assert.Equal(t, first, a.StaticLightEnvironment())
	}
}

func TestAccumulator_BlendsTowardNewEnvironment(t *testing.T) {
	f := newFixture()
	f.lists.static = []*core.LightDesc{pointLight(mgl32.Vec3{0, 200, 0}, 1000)}
	f.owner.lastRender = 1e9
	a := f.accumulator(DefaultSettings())

	a.Tick(0.1, 0)
	before := a.StaticLightEnvironment()

	f.owner.location = mgl32.Vec3{0, 10000, 0}
	f.owner.prims[0].Bounds.Origin = f.owner.location
	a.Tick(0.1, 5)

	after := a.StaticLightEnvironment()
	assert.Greater(t, after.R[0], float32(0))
	assert.Less(t, after.R[0], before.R[0])
	assert.Greater(t, after.R[0], before.R[0]*0.8)
}

func TestAccumulator_InvisibleThrottle(t *testing.T) {
	f := newFixture()
	f.owner.lastRender = -100
	a := f.accumulator(DefaultSettings())

	a.Tick(0.016, 0)
	attaches := f.sink.attaches
	require.Positive(t, attaches)

	a.Tick(0.016, 0.5)
	assert.Equal(t, attaches, f.sink.attaches, "invisible owner updated too early")

	a.Tick(0.016, 10)
	assert.Greater(t, f.sink.attaches, attaches)
}

func TestAccumulator_StaticEnvironmentUpdatesOnce(t *testing.T) {
	f := newFixture()
	settings := DefaultSettings()
	settings.Dynamic = false
	a := f.accumulator(settings)

	a.Tick(0.016, 0)
	attaches := f.sink.attaches
	for now := 1.0; now < 30; now += 3 {
		a.Tick(0.016, now)
	}
	assert.Equal(t, attaches, f.sink.attaches)
}

func TestAccumulator_JitterStaysInRange(t *testing.T) {
	f := newFixture()
	f.owner.lastRender = 1e9
	settings := DefaultSettings()
	a := f.accumulator(settings)
	for now := 0.0; now < 50; now += 0.5 {
		a.Tick(0.016, now)
		assert.GreaterOrEqual(t, a.invisibleUpdateTime, settings.InvisibleUpdateTime*0.8)
		assert.LessOrEqual(t, a.invisibleUpdateTime, settings.InvisibleUpdateTime*1.2)
		assert.GreaterOrEqual(t, a.minTimeBetweenFullUpdates, settings.MinTimeBetweenFullUpdates*0.8)
		assert.LessOrEqual(t, a.minTimeBetweenFullUpdates, settings.MinTimeBetweenFullUpdates*1.2)
	}
}

func TestAccumulator_Visibility(t *testing.T) {
	tests := []struct {
		name        string
		light       *core.LightDesc
		clear       bool
		wantQueries bool
		wantLit     bool
	}{
		{name: "unshadowed light skips the oracle", light: pointLight(mgl32.Vec3{0, 0, 100}, 500), clear: false, wantLit: true},
		{name: "clear segment", light: shadowed(pointLight(mgl32.Vec3{0, 0, 100}, 500)), clear: true, wantQueries: true, wantLit: true},
		{name: "blocked segment", light: shadowed(pointLight(mgl32.Vec3{0, 0, 100}, 500)), clear: false, wantQueries: true},
		{name: "blocked sun", light: shadowed(sunLight()), clear: false, wantQueries: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.oracle.clear = tt.clear
			f.lists.static = []*core.LightDesc{tt.light}
			a := f.accumulator(DefaultSettings())
			a.Tick(0.016, 0)

			if got := len(f.oracle.segments) > 0; got != tt.wantQueries {
				t.Errorf("queried oracle = %v, want %v", got, tt.wantQueries)
			}
			if got := !a.StaticLightEnvironment().IsZero(); got != tt.wantLit {
				t.Errorf("lit = %v, want %v", got, tt.wantLit)
			}
		})
	}
}

func shadowed(l *core.LightDesc) *core.LightDesc {
	l.CastShadows = true
	l.CastStaticShadows = true
	return l
}

func TestAccumulator_VisibilitySegments(t *testing.T) {
	f := newFixture()
	point := shadowed(pointLight(mgl32.Vec3{0, 0, 100}, 500))
	sun := shadowed(sunLight())
	f.lists.static = []*core.LightDesc{point, sun}
	settings := DefaultSettings()
	settings.NumVolumeVisibilitySamples = 4
	a := f.accumulator(settings)

	require.Len(t, a.samplePoints, 4)
	assert.Equal(t, mgl32.Vec3{}, a.samplePoints[3])
	for _, p := range a.samplePoints {
		for i := range 3 {
			assert.True(t, p[i] >= -1 && p[i] <= 1)
		}
	}

	a.Tick(0.016, 0)
	require.Len(t, f.oracle.segments, 8)
	for _, s := range f.oracle.segments[:4] {
		assert.Equal(t, point.Position, s.end)
	}
	center := f.oracle.segments[7]
	assert.Equal(t, a.OwnerBounds().Origin, center.start)
	assert.Equal(t, center.start.Add(mgl32.Vec3{0, 0, spatial.HalfWorldMax}), center.end)
}

func TestAccumulator_PoolReuse(t *testing.T) {
	f := newFixture()
	f.lists.static = []*core.LightDesc{sunLight()}
	f.owner.lastRender = 1e9
	a := f.accumulator(DefaultSettings())

	a.Tick(0.016, 0)
	size := a.PoolSize()
	var guids []uuid.UUID
	for _, l := range a.Lights() {
		guids = append(guids, l.GUID)
	}

	for now := 0.1; now < 3; now += 0.1 {
		a.Tick(0.016, now)
	}
	assert.Equal(t, size, a.PoolSize())
	var again []uuid.UUID
	for _, l := range a.Lights() {
		again = append(again, l.GUID)
	}
	assert.ElementsMatch(t, guids, again)
	assert.Equal(t, f.sink.attaches-f.sink.detaches, len(f.sink.attached))

	a.Destroy()
	assert.Empty(t, f.sink.attached)
	assert.Empty(t, a.Lights())
}

func TestAccumulator_FlatDynamicLights(t *testing.T) {
	f := newFixture()
	f.system.CompositeDynamicLights = false
	dyn := pointLight(mgl32.Vec3{0, 0, 50}, 500)
	dyn.StaticOwner = false
	far := pointLight(mgl32.Vec3{0, 0, 5000}, 100)
	far.StaticOwner = false
	f.lists.dynamic = []*core.LightDesc{dyn, far}
	a := f.accumulator(DefaultSettings())

	a.Tick(0.016, 0)

	assert.True(t, a.DynamicLightEnvironment().IsZero())
	require.Len(t, a.DynamicLights(), 1)
	assert.Same(t, dyn, a.DynamicLights()[0])
	assert.Equal(t, []uuid.UUID{dyn.GUID}, f.sink.envs[a.ID])

	f.system.CompositeDynamicLights = true
	a.UpdateEnvironment(0.016, 0.5, false, false)
	a.CreateEnvironmentLightList()
	assert.Empty(t, a.DynamicLights())
	assert.False(t, a.DynamicLightEnvironment().IsZero())
	assert.Empty(t, f.sink.envs[a.ID])
}

func TestComputeLightBrightnessAndColor(t *testing.T) {
	tests := []struct {
		in         geom.LinearColor
		color      geom.LinearColor
		brightness float32
	}{
		{geom.LinearColor{R: 2, G: 1, B: 0.5, A: 1}, geom.LinearColor{R: 1, G: 0.5, B: 0.25, A: 1}, 2},
		{geom.LinearColor{R: 0.5, G: 0.5, B: 0.5, A: 1}, geom.LinearColor{R: 1, G: 1, B: 1, A: 1}, 0.5},
		{geom.LinearColor{A: 1}, geom.LinearColor{A: 1}, 0},
		{geom.LinearColor{R: -1, G: -2, B: -1, A: 1}, geom.LinearColor{A: 1}, 0},
	}
	for _, tt := range tests {
		color, brightness := ComputeLightBrightnessAndColor(tt.in)
		if color != tt.color || brightness != tt.brightness {
			t.Errorf("ComputeLightBrightnessAndColor(%v) = %v, %v; want %v, %v", tt.in, color, brightness, tt.color, tt.brightness)
		}
	}
}

func TestExtractSkyLight(t *testing.T) {
	env := sh.UpperSkyFunction().Colored(geom.LinearColor{R: 2, G: 2, B: 2, A: 1})
	rest, upper := extractSkyLight(env, geom.LinearColor{}, false, true)
	assert.Greater(t, upper.R, float32(0))
	assert.Less(t, rest.Luminance().Dot(sh.UpperSkyFunction()), env.Luminance().Dot(sh.UpperSkyFunction()))
}

func TestManager(t *testing.T) {
	f := newFixture()
	f.lists.static = []*core.LightDesc{sunLight()}
	m := NewManager(2)
	defer m.Stop()

	var accs []*Accumulator
	for range 4 {
		a := f.accumulator(DefaultSettings())
		accs = append(accs, a)
		m.Add(a)
	}
	assert.Panics(t, func() { m.Add(accs[0]) })
	assert.Equal(t, 4, m.Len())

	m.Tick(0.016, 0)
	for _, a := range accs {
		assert.False(t, a.IsFirstUpdatePending())
		assert.Len(t, a.Lights(), 2)
	}
	assert.Len(t, f.sink.attached, 8)

	m.Remove(accs[1].ID)
	assert.Nil(t, m.Get(accs[1].ID))
	assert.Len(t, f.sink.attached, 6)
}
