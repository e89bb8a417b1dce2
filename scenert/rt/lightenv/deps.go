package lightenv

import (
	"github.com/gekko3d/scenecore/scenert/rt/core"
	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// OwnedPrimitive is a primitive of the owner that uses the light environment.
type OwnedPrimitive struct {
	Bounds   geom.BoxSphereBounds
	Channels core.LightingChannels
}

// Owner is the actor a light environment lights.
type Owner interface {
	Location() mgl32.Vec3
	Primitives() []OwnedPrimitive
	Level() string
	// LastRenderTime is the world time the owner was last drawn.
	LastRenderTime() float64
}

// LightLists exposes the world lights affecting the default light environment.
// The lists are read concurrently by the Manager and must not change during a tick.
type LightLists interface {
	StaticLights() []*core.LightDesc
	DynamicLights() []*core.LightDesc
}

// VisibilityOracle answers occlusion queries against shadow casting geometry.
// Implementations must be safe for concurrent use.
type VisibilityOracle interface {
	IsSegmentClear(start, end mgl32.Vec3, light *core.LightDesc) bool
}

// LightSink receives the lights a light environment produces.
type LightSink interface {
	AttachLight(light *core.LightDesc)
	DetachLight(light *core.LightDesc)
	// SetEnvironmentLights lists the world lights the environment tracks individually.
	SetEnvironmentLights(env uuid.UUID, lights []uuid.UUID)
}

// Deps are the collaborators of an Accumulator.
type Deps struct {
	Lights LightLists
	Oracle VisibilityOracle
	Sink   LightSink
	System *SystemSettings
}
