package scenecore

import (
	"context"

	"github.com/gekko3d/scenecore/scenert/rt/core"
)

// SceneModule owns the render context and installs the World resource.
// Every other scene module needs it installed first.
type SceneModule struct {
	RenderQueueSize int
	// Inline runs render commands on the game goroutine when they are flushed.
	Inline bool
}

func (m SceneModule) Install(app *App, cmd *Commands) {
	var render *core.RenderContext
	if m.Inline {
		render = core.NewInlineRenderContext()
	} else {
		size := m.RenderQueueSize
		if size <= 0 {
			size = 256
		}
		render = core.NewRenderContext(size)
		ctx, cancel := context.WithCancel(context.Background())
		render.Start(ctx)
		app.onShutdown(func() {
			render.Flush()
			cancel()
		})
	}

	app.render = render
	cmd.AddResources(newWorld(app, render))

	app.UseSystem(
		System(beginRenderFrameSystem).InStage(PreRender),
	).UseSystem(
		System(renderFenceSystem).InStage(Finale),
	)
	app.Logger().Debugf("scene installed, inline render context: %v", m.Inline)
}

// beginRenderFrameSystem re-registers the static meshes queued during the
// previous frame before anything else of this frame is drawn.
func beginRenderFrameSystem(world *World) {
	world.enqueue(world.scene.UpdateStaticMeshes)
}

// renderFenceSystem waits for the render context to catch up with every
// batch flushed so far this frame.
func renderFenceSystem(world *World) {
	world.render.Flush()
}

func mustWorld(app *App, module string) *World {
	w := resource[World](app)
	if w == nil {
		panic(module + " needs SceneModule installed before it")
	}
	return w
}
