package scenecore

import (
	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/gekko3d/scenecore/scenert/rt/streaming"
)

// Commands records changes to the world. Game side bookkeeping happens at
// once, the render side part is flushed to the render context at the end of
// the stage.
type Commands struct {
	app *App
}

func (cmd *Commands) ChangeState(newState State) *Commands {
	cmd.app.changeState(newState)
	return cmd
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

// Exit stops Run after the current frame.
func (cmd *Commands) Exit() {
	cmd.app.exitRequested = true
}

func (cmd *Commands) world() *World {
	w := resource[World](cmd.app)
	if w == nil {
		panic("scene commands need SceneModule")
	}
	return w
}

// World returns the World resource installed by SceneModule.
func (cmd *Commands) World() *World {
	return cmd.world()
}

func (cmd *Commands) AttachPrimitive(primitives ...*PrimitiveComponent) {
	w := cmd.world()
	for _, p := range primitives {
		w.attachPrimitive(p)
	}
}

func (cmd *Commands) DetachPrimitive(primitives ...*PrimitiveComponent) {
	w := cmd.world()
	for _, p := range primitives {
		w.detachPrimitive(p)
	}
}

// MovePrimitive changes the bounds of an attached primitive and recomputes
// its interactions.
func (cmd *Commands) MovePrimitive(p *PrimitiveComponent, bounds geom.BoxSphereBounds) {
	cmd.world().movePrimitive(p, bounds)
}

// UpdateStaticMeshes re-registers the static meshes of p at the start of the
// next render frame.
func (cmd *Commands) UpdateStaticMeshes(p *PrimitiveComponent) {
	cmd.world().updateStaticMeshes(p)
}

func (cmd *Commands) AttachLight(lights ...*LightComponent) {
	w := cmd.world()
	for _, l := range lights {
		w.attachLight(l)
	}
}

func (cmd *Commands) DetachLight(lights ...*LightComponent) {
	w := cmd.world()
	for _, l := range lights {
		w.detachLight(l)
	}
}

// UpdateLight applies the current fields of an attached light.
func (cmd *Commands) UpdateLight(l *LightComponent) {
	cmd.world().updateLight(l)
}

// AddLightEnvironment must come before the primitives that use it.
func (cmd *Commands) AddLightEnvironment(c *LightEnvironmentComponent) {
	cmd.world().addLightEnvironment(c)
}

// RemoveLightEnvironment panics while primitives still use the environment.
func (cmd *Commands) RemoveLightEnvironment(c *LightEnvironmentComponent) {
	cmd.world().removeLightEnvironment(c)
}

func (cmd *Commands) SetLightEnvironmentEnabled(c *LightEnvironmentComponent, enabled bool) {
	cmd.world().setLightEnvironmentEnabled(c, enabled)
}

func (cmd *Commands) AddTexture(textures ...*streaming.Texture) {
	w := cmd.world()
	for _, t := range textures {
		w.addTexture(t)
	}
}

func (cmd *Commands) RemoveTexture(textures ...*streaming.Texture) {
	w := cmd.world()
	for _, t := range textures {
		w.removeTexture(t)
	}
}

// AddStreamingView registers a view for the next streaming tick only.
func (cmd *Commands) AddStreamingView(view streaming.ViewInfo) {
	w := cmd.world()
	if w.streaming == nil {
		panic("texture streaming needs StreamingModule")
	}
	w.streaming.AddViewInformation(view)
}
