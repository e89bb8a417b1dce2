package scenecore

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/gekko3d/scenecore/scenert/rt/core"
)

type systemFn any

// Module installs resources and systems into an App.
type Module interface {
	Install(app *App, cmd *Commands)
}

type App struct {
	stateful           bool
	stateTransitioning bool
	initialState       State
	finalState         State
	nextState          State
	state              State
	started            bool
	finished           bool
	exitRequested      bool

	stages           []Stage
	systems          map[string]map[State]map[statePhase][]systemFn
	systemsStateless map[string][]systemFn
	resources        map[reflect.Type]any
	// insertion order, so interface lookups pick the same resource every run
	resourceOrder []reflect.Type

	// Scene commands recorded during the current stage. They reach the
	// render context as one batch when the stage ends.
	render     *core.RenderContext
	pendingOps []func()

	shutdown []func()
}

func (app *App) Commands() *Commands {
	return &Commands{
		app: app,
	}
}

// Run steps frames until the final state is reached or Commands.Exit is called,
// then shuts the app down.
func (app *App) Run() {
	if app.stateful {
		app.Logger().Infof("running in stateful mode, states %d..%d", app.initialState, app.finalState)
	} else {
		app.Logger().Infof("running in stateless mode")
	}

	for !app.Step() {
	}
	app.Shutdown()
}

// Step runs a single frame and reports whether the app has finished.
func (app *App) Step() bool {
	if app.finished {
		return true
	}
	if !app.started {
		app.started = true
		if app.stateful {
			app.state = app.initialState
			app.callSystems(app.state, enter)
		}
	}

	app.callSystems(app.state, execute)

	if app.stateful {
		if app.stateTransitioning {
			app.stateTransitioning = false
			app.executeChangeState(app.nextState)
		}

		if app.state == app.finalState {
			app.callSystems(app.state, exit)
			app.finished = true
		}
	}
	if app.exitRequested {
		app.finished = true
	}
	return app.finished
}

// Shutdown runs the teardown hooks registered by modules, last installed first.
func (app *App) Shutdown() {
	for i := len(app.shutdown) - 1; i >= 0; i-- {
		// hooks may record scene commands of their own
		app.FlushCommands()
		app.shutdown[i]()
	}
	app.FlushCommands()
	app.shutdown = nil
}

func (app *App) onShutdown(fn func()) {
	app.shutdown = append(app.shutdown, fn)
}

func (app *App) callSystems(state State, phase statePhase) {
	for _, stage := range app.stages {
		// stateless systems run first and only on execute
		if execute == phase {
			for _, system := range app.systemsStateless[stage.Name] {
				app.callSystem(system)
			}
		}

		if app.stateful {
			for _, system := range app.systems[stage.Name][state][phase] {
				app.callSystem(system)
			}
		}
		app.FlushCommands()
	}
}

func (app *App) changeState(newState State) {
	app.nextState = newState
	app.stateTransitioning = true
}

func (app *App) executeChangeState(newState State) {
	app.callSystems(app.state, exit)
	app.state = newState
	app.callSystems(app.state, enter)
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
		app.resourceOrder = append(app.resourceOrder, resourceType.Elem())
	}
	return app
}

// resource returns the resource of type T, or nil.
func resource[T any](app *App) *T {
	r, ok := app.resources[reflect.TypeFor[T]()]
	if !ok {
		return nil
	}
	return r.(*T)
}

func (app *App) callSystem(system systemFn) {
	app.callSystemInternal(system)
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystemInternal(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := range systemType.NumIn() {
		argType := systemType.In(i)

		if argType.Kind() == reflect.Interface {
			if r, ok := app.resourceImplementing(argType); ok {
				args[i] = reflect.ValueOf(r)
				continue
			}
		} else if argType.Kind() == reflect.Pointer {
			underlyingType := argType.Elem()
			if underlyingType == typeOfCommands {
				args[i] = reflect.ValueOf(&Commands{app: app})
				continue
			}
			if r, ok := app.resources[underlyingType]; ok {
				args[i] = reflect.ValueOf(r)
				continue
			}
		}

		panic(fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
			runtime.FuncForPC(systemValue.Pointer()).Name(),
			fmt.Sprint(systemType),
			fmt.Sprint(argType),
		))
	}
	systemValue.Call(args)
}

// resourceImplementing returns the earliest added resource implementing iface.
func (app *App) resourceImplementing(iface reflect.Type) (any, bool) {
	for _, t := range app.resourceOrder {
		if r := app.resources[t]; reflect.TypeOf(r).Implements(iface) {
			return r, true
		}
	}
	return nil, false
}

func (app *App) enqueueSceneOp(op func()) {
	app.pendingOps = append(app.pendingOps, op)
}

// FlushCommands submits the scene commands recorded so far to the render
// context as a single batch.
func (app *App) FlushCommands() {
	if len(app.pendingOps) == 0 {
		return
	}
	if app.render == nil {
		panic("scene commands recorded without a render context, install SceneModule")
	}

	ops := app.pendingOps
	app.pendingOps = nil
	app.render.Enqueue(func() {
		for _, op := range ops {
			op()
		}
	})
}
