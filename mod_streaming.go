package scenecore

import (
	"github.com/gekko3d/scenecore/scenert/rt/streaming"
)

// StreamingModule runs the texture streaming scheduler once per frame after
// rendering, using the views added during the frame.
type StreamingModule struct {
	// Config defaults to DefaultConfig().Streaming.
	Config *StreamingConfig
	// Memory reports the texture pool. When nil an in-memory backend sized by
	// the config is installed as a resource and used instead.
	Memory streaming.MemoryStats
}

func (m StreamingModule) Install(app *App, cmd *Commands) {
	w := mustWorld(app, "StreamingModule")

	cfg := DefaultConfig().Streaming
	if m.Config != nil {
		cfg = *m.Config
	}

	memory := m.Memory
	if memory == nil {
		backend := streaming.NewMemoryBackend(cfg.PoolBytes(), cfg.BackendLatency)
		cmd.AddResources(backend)
		memory = backend
	}

	levels := streaming.NewLevelForcedHandler()
	cmd.AddResources(levels)

	sched := streaming.NewScheduler(cfg.SchedulerConfig(), memory, app.Logger())
	sched.AddHandler(streaming.StaticHandler{})
	sched.AddHandler(levels)
	w.streaming = sched
	app.onShutdown(sched.BlockTillAllRequestsFinished)

	app.UseSystem(System(streamingSystem).InStage(PostRender))
}

func streamingSystem(t *Time, world *World) {
	world.streaming.Tick(t.Dt.Seconds())
}
