package scenecore

import (
	"github.com/gekko3d/scenecore/scenert/rt/core"
	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/gekko3d/scenecore/scenert/rt/spatial"
	"github.com/google/uuid"
)

// PrimitiveComponent is a drawable piece of geometry. Its render side record
// is created when Commands.AttachPrimitive is flushed.
type PrimitiveComponent struct {
	// ID is the key other primitives use in ReplacementPrimitive.
	ID                   uuid.UUID
	ReplacementPrimitive uuid.UUID
	LightEnvironment     *LightEnvironmentComponent

	Proxy    core.Proxy
	Bounds   geom.BoxSphereBounds
	Channels core.LightingChannels
	Level    string

	AcceptsLights         bool
	AcceptsDynamicLights  bool
	SelfContainedLighting bool

	StaticShadowing   bool
	CastStaticShadow  bool
	CastDynamicShadow bool

	attached bool
	caster   spatial.ElementID
	record   *core.PrimitiveRecord
}

// NewPrimitiveComponent returns a lit, shadow casting primitive on the
// dynamic channel.
func NewPrimitiveComponent(proxy core.Proxy, bounds geom.BoxSphereBounds) *PrimitiveComponent {
	return &PrimitiveComponent{
		ID:                   uuid.New(),
		Proxy:                proxy,
		Bounds:               bounds,
		Channels:             core.ChannelDynamic,
		AcceptsLights:        true,
		AcceptsDynamicLights: true,
		CastDynamicShadow:    true,
	}
}

func (p *PrimitiveComponent) desc() core.PrimitiveDesc {
	d := core.PrimitiveDesc{
		Key:                   p.ID,
		ReplacementPrimitive:  p.ReplacementPrimitive,
		Proxy:                 p.Proxy,
		Bounds:                p.Bounds,
		Channels:              p.Channels,
		Level:                 p.Level,
		AcceptsLights:         p.AcceptsLights,
		AcceptsDynamicLights:  p.AcceptsDynamicLights,
		SelfContainedLighting: p.SelfContainedLighting,
		StaticShadowing:       p.StaticShadowing,
		CastStaticShadow:      p.CastStaticShadow,
		CastDynamicShadow:     p.CastDynamicShadow,
	}
	if p.LightEnvironment != nil {
		d.Environment = p.LightEnvironment.ID
	}
	return d
}

func (p *PrimitiveComponent) IsAttached() bool { return p.attached }

// Record is the render side record. Only read it from a render command or
// after the render context has been flushed.
func (p *PrimitiveComponent) Record() *core.PrimitiveRecord { return p.record }

// StaticProxy is a proxy with a fixed set of static meshes and the same
// relevance for every light.
type StaticProxy struct {
	Meshes      []core.StaticMesh
	Dynamic     bool
	LightMapped bool
	Irrelevant  bool
}

func (s *StaticProxy) DrawStaticElements(c core.StaticElementCollector) {
	for _, m := range s.Meshes {
		c.DrawMesh(m)
	}
}

func (s *StaticProxy) LightRelevance(*core.LightDesc) core.LightRelevance {
	return core.LightRelevance{
		Dynamic:     s.Dynamic,
		Relevant:    !s.Irrelevant,
		LightMapped: s.LightMapped,
	}
}

func (s *StaticProxy) HasCustomOcclusionBounds() bool { return false }

func (s *StaticProxy) OcclusionBounds() geom.BoxSphereBounds { return geom.BoxSphereBounds{} }
