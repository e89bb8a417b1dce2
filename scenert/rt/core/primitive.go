package core

import (
	"slices"

	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/google/uuid"
)

// LightRelevance is what a proxy reports for one light.
type LightRelevance struct {
	Dynamic     bool
	Relevant    bool
	LightMapped bool
}

// StaticMesh is one static element a proxy submits at attach time.
type StaticMesh struct {
	MaterialID      uint32
	VertexFactoryID uint32
	LODIndex        int
	MinDrawDistance float32
	MaxDrawDistance float32
	CastShadow      bool
}

type StaticElementCollector interface {
	DrawMesh(mesh StaticMesh)
}

// Proxy provides geometry and material data for a primitive. It is owned by
// the primitive component.
type Proxy interface {
	DrawStaticElements(collector StaticElementCollector)
	LightRelevance(light *LightDesc) LightRelevance
	HasCustomOcclusionBounds() bool
	OcclusionBounds() geom.BoxSphereBounds
}

// PrimitiveDesc is captured by value when a primitive is attached.
type PrimitiveDesc struct {
	// Key identifies the owning component. Other primitives name it as their
	// replacement primitive.
	Key                  uuid.UUID
	ReplacementPrimitive uuid.UUID
	Environment          uuid.UUID

	Proxy    Proxy
	Bounds   geom.BoxSphereBounds
	Channels LightingChannels
	Level    string

	AcceptsLights         bool
	AcceptsDynamicLights  bool
	SelfContainedLighting bool

	StaticShadowing   bool
	CastStaticShadow  bool
	CastDynamicShadow bool
}

type Placement uint8

const (
	PlacementNone Placement = iota
	PlacementIndexed
	PlacementChild
	PlacementPendingChild
)

func (p Placement) String() string {
	switch p {
	case PlacementIndexed:
		return "indexed"
	case PlacementChild:
		return "child"
	case PlacementPendingChild:
		return "pending-child"
	}
	return "none"
}

// primitiveCompact is the value stored in the primitive octree. Children are
// LOD substitutes reached through their replacement primitive.
type primitiveCompact struct {
	prim     *PrimitiveRecord
	children []*PrimitiveRecord
}

func (c *primitiveCompact) adopt(child *PrimitiveRecord) {
	child.parent = c
	child.placement = PlacementChild
	c.children = append(c.children, child)
}

func (c *primitiveCompact) release(child *PrimitiveRecord) {
	i := slices.Index(c.children, child)
	if i < 0 {
		panic("primitive is not a child of its parent")
	}
	last := len(c.children) - 1
	c.children[i] = c.children[last]
	c.children[last] = nil
	c.children = c.children[:last]
	child.parent = nil
}

// StaticMeshEntry is a static mesh and its registrations in the scene draw lists.
type StaticMeshEntry struct {
	Mesh      StaticMesh
	Primitive *PrimitiveRecord

	depthLink *DrawListLink
	baseLink  *DrawListLink
}

// PrimitiveRecord is the render side state of an attached primitive.
type PrimitiveRecord struct {
	Desc PrimitiveDesc

	handle       Handle
	attached     bool
	interactions []Handle
	staticMeshes []*StaticMeshEntry

	placement Placement
	octreeID  elementID
	compact   *primitiveCompact
	parent    *primitiveCompact

	environment *LightEnvironmentInfo
	envIndex    int

	needsStaticMeshUpdate bool
}

func (p *PrimitiveRecord) Handle() Handle { return p.handle }

func (p *PrimitiveRecord) IsAttached() bool { return p.attached }

func (p *PrimitiveRecord) Placement() Placement { return p.placement }

func (p *PrimitiveRecord) NumInteractions() int { return len(p.interactions) }

func (p *PrimitiveRecord) StaticMeshes() []*StaticMeshEntry { return p.staticMeshes }

// Children lists the LOD substitutes adopted by this primitive.
func (p *PrimitiveRecord) Children() []*PrimitiveRecord {
	if p.compact == nil {
		return nil
	}
	return p.compact.children
}

// Parent is the primitive this one substitutes for, or nil.
func (p *PrimitiveRecord) Parent() *PrimitiveRecord {
	if p.parent == nil {
		return nil
	}
	return p.parent.prim
}

func (p *PrimitiveRecord) NeedsStaticMeshUpdate() bool { return p.needsStaticMeshUpdate }

func (p *PrimitiveRecord) OcclusionBounds() geom.BoxSphereBounds {
	if p.Desc.Proxy.HasCustomOcclusionBounds() {
		return p.Desc.Proxy.OcclusionBounds()
	}
	return p.Desc.Bounds
}

func (p *PrimitiveRecord) DrawMesh(mesh StaticMesh) {
	p.staticMeshes = append(p.staticMeshes, &StaticMeshEntry{Mesh: mesh, Primitive: p})
}

func (p *PrimitiveRecord) affectTarget() *AffectTarget {
	if p.Desc.Proxy == nil {
		panic("affects test on a primitive without proxy")
	}
	t := &AffectTarget{
		Bounds:                p.Desc.Bounds,
		Channels:              p.Desc.Channels,
		AcceptsLights:         p.Desc.AcceptsLights,
		AcceptsDynamicLights:  p.Desc.AcceptsDynamicLights,
		Level:                 p.Desc.Level,
		SelfContainedLighting: p.Desc.SelfContainedLighting,
	}
	if p.environment != nil {
		t.Environment = p.environment
	}
	return t
}
