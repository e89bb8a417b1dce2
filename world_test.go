package scenecore

import (
	"image"
	"testing"
	"time"

	"github.com/gekko3d/scenecore/scenert/rt/core"
	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/gekko3d/scenecore/scenert/rt/streaming"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, modules ...Module) (*App, *World) {
	t.Helper()
	cfg := DefaultConfig().LightEnvironment
	cfg.Workers = 2
	builder := NewAppBuilder().
		UseModule(TimeModule{FixedStep: 100 * time.Millisecond}).
		UseModule(SceneModule{Inline: true}).
		UseModule(LightEnvironmentModule{Config: &cfg})
	for _, m := range modules {
		builder.UseModule(m)
	}
	app := builder.Build()
	t.Cleanup(app.Shutdown)

	w := resource[World](app)
	require.NotNil(t, w)
	return app, w
}

func boxBounds(center, extent mgl32.Vec3) geom.BoxSphereBounds {
	return geom.BoundsFromBox(geom.BoxFromCenterExtent(center, extent))
}

func testPrimitive(center mgl32.Vec3) *PrimitiveComponent {
	proxy := &StaticProxy{Dynamic: true, Meshes: []core.StaticMesh{{MaterialID: 1}}}
	return NewPrimitiveComponent(proxy, boxBounds(center, mgl32.Vec3{1, 1, 1}))
}

func testSun() *LightComponent {
	return &LightComponent{
		Type:                      LightTypeDirectional,
		Direction:                 mgl32.Vec3{0, 0, -1},
		Color:                     [3]float32{1, 1, 1},
		Intensity:                 2,
		Channels:                  core.ChannelDynamic | core.ChannelCompositeDynamic,
		CastShadows:               true,
		CastDynamicShadows:        true,
		CastCompositeShadow:       true,
		AffectsDefaultEnvironment: true,
	}
}

func TestWorld_PrimitiveLightInteractions(t *testing.T) {
	app, w := newTestApp(t)
	cmd := app.Commands()

	p := testPrimitive(mgl32.Vec3{})
	l := &LightComponent{
		Type:                      LightTypePoint,
		Position:                  mgl32.Vec3{0, 0, 5},
		Color:                     [3]float32{1, 1, 1},
		Intensity:                 1,
		Range:                     10,
		Channels:                  core.ChannelDynamic,
		AffectsDefaultEnvironment: true,
	}
	cmd.AttachPrimitive(p)
	cmd.AttachLight(l)
	app.FlushCommands()

	scene := w.Scene()
	require.NotNil(t, p.Record())
	assert.Equal(t, 1, scene.NumInteractions())
	assert.Equal(t, 1, p.Record().NumInteractions())
	assert.Equal(t, []*core.LightDesc{l.Desc()}, w.DynamicLights())
	assert.Empty(t, w.StaticLights())
	got, ok := w.Light(l.GUID)
	require.True(t, ok)
	assert.Same(t, l, got)

	cmd.MovePrimitive(p, boxBounds(mgl32.Vec3{100, 0, 0}, mgl32.Vec3{1, 1, 1}))
	app.FlushCommands()
	assert.Zero(t, scene.NumInteractions())

	l.Position = mgl32.Vec3{100, 0, 5}
	cmd.UpdateLight(l)
	app.FlushCommands()
	assert.Equal(t, 1, scene.NumInteractions())
	assert.Equal(t, mgl32.Vec3{100, 0, 5}, l.Desc().Position)

	cmd.DetachLight(l)
	app.FlushCommands()
	assert.Zero(t, scene.NumInteractions())
	assert.Zero(t, scene.NumLights())
	assert.Empty(t, w.DynamicLights())
	assert.Nil(t, l.Desc())

	cmd.DetachPrimitive(p)
	app.FlushCommands()
	assert.Zero(t, w.NumPrimitives())
	assert.Zero(t, scene.NumPrimitives())
	assert.Nil(t, p.Record())
	assert.False(t, p.IsAttached())
}

func TestWorld_AttachTwicePanics(t *testing.T) {
	app, _ := newTestApp(t)
	cmd := app.Commands()

	p := testPrimitive(mgl32.Vec3{})
	cmd.AttachPrimitive(p)
	assert.Panics(t, func() { cmd.AttachPrimitive(p) })

	l := testSun()
	cmd.AttachLight(l)
	assert.Panics(t, func() { cmd.AttachLight(l) })

	other := testSun()
	other.GUID = l.GUID
	assert.Panics(t, func() { cmd.AttachLight(other) })
	app.FlushCommands()
}

func TestWorld_StaticLightsList(t *testing.T) {
	app, w := newTestApp(t)
	cmd := app.Commands()

	static := testSun()
	static.Static = true
	static.CastStaticShadows = true
	skipped := testSun()
	skipped.AffectsDefaultEnvironment = false
	cmd.AttachLight(static, skipped)

	assert.Equal(t, []*core.LightDesc{static.Desc()}, w.StaticLights())
	assert.Empty(t, w.DynamicLights())
	assert.Equal(t, 2, w.NumLights())

	static.ForceDynamic = true
	cmd.UpdateLight(static)
	assert.Empty(t, w.StaticLights())
	assert.Equal(t, []*core.LightDesc{static.Desc()}, w.DynamicLights())
	app.FlushCommands()
}

func TestWorld_LightEnvironmentComposite(t *testing.T) {
	app, w := newTestApp(t)
	cmd := app.Commands()

	env := w.NewLightEnvironment(mgl32.Vec3{})
	cmd.AddLightEnvironment(env)
	p := testPrimitive(mgl32.Vec3{})
	p.LightEnvironment = env
	sun := testSun()
	cmd.AttachPrimitive(p)
	cmd.AttachLight(sun)
	assert.Equal(t, 1, env.NumPrimitives())

	app.Step()

	acc := env.Accumulator()
	require.NotNil(t, acc)
	assert.Empty(t, acc.DynamicLights(), "composited lights are not tracked")
	assert.False(t, acc.DynamicLightEnvironment().IsZero())

	lights := acc.Lights()
	require.NotEmpty(t, lights)
	var sky *core.LightDesc
	for _, l := range lights {
		if l.Kind == core.LightSky {
			sky = l
		}
		assert.Equal(t, env.ID, l.Environment)
	}
	require.NotNil(t, sky)

	scene := w.Scene()
	for _, l := range lights {
		_, ok := scene.LightByGUID(l.GUID)
		assert.True(t, ok, "synthesized light %s is attached", l.GUID)
	}
	skyRecord, _ := scene.LightByGUID(sky.GUID)
	_, ok := scene.FindInteraction(skyRecord, p.Record())
	assert.True(t, ok)

	sunRecord, ok := scene.LightByGUID(sun.GUID)
	require.True(t, ok)
	_, ok = scene.FindInteraction(sunRecord, p.Record())
	assert.False(t, ok, "the sun only reaches the primitive through its environment")
}

func TestWorld_LightEnvironmentTracksDynamicLights(t *testing.T) {
	cfg := DefaultConfig().LightEnvironment
	cfg.CompositeDynamicLights = false
	app := NewAppBuilder().
		UseModule(TimeModule{FixedStep: 100 * time.Millisecond}).
		UseModule(SceneModule{Inline: true}).
		UseModule(LightEnvironmentModule{Config: &cfg}).
		Build()
	t.Cleanup(app.Shutdown)
	w := resource[World](app)
	cmd := app.Commands()

	env := w.NewLightEnvironment(mgl32.Vec3{})
	cmd.AddLightEnvironment(env)
	p := testPrimitive(mgl32.Vec3{})
	p.LightEnvironment = env
	sun := testSun()
	cmd.AttachPrimitive(p)
	cmd.AttachLight(sun)

	app.Step()

	acc := env.Accumulator()
	assert.Equal(t, []*core.LightDesc{sun.Desc()}, acc.DynamicLights())
	assert.True(t, acc.DynamicLightEnvironment().IsZero())

	scene := w.Scene()
	info, ok := scene.LightEnvironment(env.ID)
	require.True(t, ok)
	assert.Contains(t, info.Lights(), sun.GUID)
	sunRecord, _ := scene.LightByGUID(sun.GUID)
	_, ok = scene.FindInteraction(sunRecord, p.Record())
	assert.True(t, ok)
}

func TestWorld_LightEnvironmentStaticShadowing(t *testing.T) {
	for _, tt := range []struct {
		name     string
		withRoof bool
	}{
		{name: "open sky"},
		{name: "under roof", withRoof: true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			app, w := newTestApp(t)
			cmd := app.Commands()

			if tt.withRoof {
				roof := testPrimitive(mgl32.Vec3{0, 0, 200})
				roof.Bounds = boxBounds(mgl32.Vec3{0, 0, 200}, mgl32.Vec3{1000, 1000, 1})
				roof.CastStaticShadow = true
				cmd.AttachPrimitive(roof)
				assert.Equal(t, 1, w.ShadowCasters().Len())
			}

			env := w.NewLightEnvironment(mgl32.Vec3{})
			cmd.AddLightEnvironment(env)
			p := testPrimitive(mgl32.Vec3{})
			p.LightEnvironment = env
			p.CastStaticShadow = true
			cmd.AttachPrimitive(p)

			sun := testSun()
			sun.Static = true
			sun.CastStaticShadows = true
			cmd.AttachLight(sun)

			app.Step()

			acc := env.Accumulator()
			assert.Equal(t, tt.withRoof, acc.StaticLightEnvironment().IsZero())
		})
	}
}

func TestWorld_RemoveLightEnvironment(t *testing.T) {
	app, w := newTestApp(t)
	cmd := app.Commands()

	env := w.NewLightEnvironment(mgl32.Vec3{})
	cmd.AddLightEnvironment(env)
	p := testPrimitive(mgl32.Vec3{})
	p.LightEnvironment = env
	cmd.AttachPrimitive(p)
	app.Step()
	require.Equal(t, 1, w.LightEnvironments().Len())

	assert.Panics(t, func() { cmd.RemoveLightEnvironment(env) })

	cmd.DetachPrimitive(p)
	cmd.RemoveLightEnvironment(env)
	app.FlushCommands()

	_, ok := w.LightEnvironment(env.ID)
	assert.False(t, ok)
	_, ok = w.Scene().LightEnvironment(env.ID)
	assert.False(t, ok)
	assert.Zero(t, w.LightEnvironments().Len())
	assert.Zero(t, w.Scene().NumLights(), "synthesized lights are detached")
}

func TestWorld_PrimitiveWithUnknownEnvironmentPanics(t *testing.T) {
	app, w := newTestApp(t)
	p := testPrimitive(mgl32.Vec3{})
	p.LightEnvironment = w.NewLightEnvironment(mgl32.Vec3{})

	assert.Panics(t, func() { app.Commands().AttachPrimitive(p) })
}

func TestWorld_ShadowCastersSkipEnvironmentPrimitives(t *testing.T) {
	app, w := newTestApp(t)
	cmd := app.Commands()

	env := w.NewLightEnvironment(mgl32.Vec3{})
	cmd.AddLightEnvironment(env)

	floor := testPrimitive(mgl32.Vec3{})
	floor.CastStaticShadow = true
	hero := testPrimitive(mgl32.Vec3{0, 0, 10})
	hero.CastStaticShadow = true
	hero.LightEnvironment = env
	cmd.AttachPrimitive(floor, hero)
	app.FlushCommands()

	casters := w.ShadowCasters()
	assert.Equal(t, 1, casters.Len())
	assert.False(t, casters.IsSegmentClear(mgl32.Vec3{0, 0, -5}, mgl32.Vec3{0, 0, 5}, nil))
	assert.True(t, casters.IsSegmentClear(mgl32.Vec3{0, 0, 8}, mgl32.Vec3{0, 0, 12}, nil))

	cmd.MovePrimitive(floor, boxBounds(mgl32.Vec3{50, 0, 0}, mgl32.Vec3{1, 1, 1}))
	assert.True(t, casters.IsSegmentClear(mgl32.Vec3{0, 0, -5}, mgl32.Vec3{0, 0, 5}, nil))

	cmd.DetachPrimitive(floor)
	assert.Zero(t, casters.Len())
	app.FlushCommands()
}

func TestWorld_TextureStreaming(t *testing.T) {
	cfg := DefaultConfig().Streaming
	app, w := newTestApp(t, StreamingModule{Config: &cfg})
	cmd := app.Commands()

	backend := resource[streaming.MemoryBackend](app)
	require.NotNil(t, backend)
	res := backend.NewTexture("bricks", image.NewRGBA(image.Rect(0, 0, 256, 256)), 7, 0)
	tex := &streaming.Texture{
		ID:                uuid.New(),
		Name:              "bricks",
		Group:             streaming.GroupWorld,
		Resource:          res,
		Streamable:        true,
		ForceMipsResident: true,
	}
	cmd.AddTexture(tex)
	require.Equal(t, 1, w.Streaming().Len())

	for range 6 {
		app.Step()
	}
	assert.Equal(t, 9, res.ResidentMips())
	assert.Equal(t, streaming.StatusIdle, res.Status())

	cmd.RemoveTexture(tex)
	assert.Zero(t, w.Streaming().Len())
}

func TestWorld_StreamingViewNeedsModule(t *testing.T) {
	app, _ := newTestApp(t)
	assert.PanicsWithValue(t, "texture streaming needs StreamingModule", func() {
		app.Commands().AddStreamingView(streaming.ViewInfo{})
	})
}
