package scenecore

import (
	"github.com/gekko3d/scenecore/scenert/rt/lightenv"
)

// LightEnvironmentModule ticks every light environment once per frame in the
// Update stage. It reads the Time resource.
type LightEnvironmentModule struct {
	// Config defaults to DefaultConfig().LightEnvironment.
	Config *LightEnvironmentConfig
}

func (m LightEnvironmentModule) Install(app *App, cmd *Commands) {
	w := mustWorld(app, "LightEnvironmentModule")

	cfg := DefaultConfig().LightEnvironment
	if m.Config != nil {
		cfg = *m.Config
	}

	w.lightEnvs = lightenv.NewManager(cfg.Workers)
	w.envSettings = cfg.Settings()
	w.envSystem = cfg.SystemSettings()
	w.envSeed = cfg.Seed
	app.onShutdown(w.lightEnvs.Stop)

	app.UseSystem(System(lightEnvironmentSystem).InStage(Update))
}

func lightEnvironmentSystem(t *Time, world *World) {
	world.lightEnvs.Tick(t.DtSeconds(), t.Now())
}
