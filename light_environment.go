package scenecore

import (
	"github.com/gekko3d/scenecore/scenert/rt/lightenv"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// LightEnvironmentComponent lights the primitives of a moving owner with a
// small set of synthesized lights. Primitives join it through their
// LightEnvironment field.
type LightEnvironmentComponent struct {
	ID       uuid.UUID
	Settings lightenv.Settings

	Location mgl32.Vec3
	Level    string
	// LastRenderTime is the Time.Now value of the last frame the owner was drawn in.
	LastRenderTime float64

	primitives  []*PrimitiveComponent
	accumulator *lightenv.Accumulator
}

// Accumulator is nil until the component is added.
func (c *LightEnvironmentComponent) Accumulator() *lightenv.Accumulator { return c.accumulator }

func (c *LightEnvironmentComponent) NumPrimitives() int { return len(c.primitives) }

// environmentOwner adapts the component to lightenv.Owner.
type environmentOwner struct {
	c *LightEnvironmentComponent
}

func (o environmentOwner) Location() mgl32.Vec3 { return o.c.Location }

func (o environmentOwner) Level() string { return o.c.Level }

func (o environmentOwner) LastRenderTime() float64 { return o.c.LastRenderTime }

func (o environmentOwner) Primitives() []lightenv.OwnedPrimitive {
	owned := make([]lightenv.OwnedPrimitive, 0, len(o.c.primitives))
	for _, p := range o.c.primitives {
		owned = append(owned, lightenv.OwnedPrimitive{Bounds: p.Bounds, Channels: p.Channels})
	}
	return owned
}
