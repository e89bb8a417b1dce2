package core

import (
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/gekko3d/scenecore/scenert/rt/spatial"
	"github.com/google/uuid"
)

type elementID = spatial.ElementID

// Scene owns the light/primitive interaction graph. Everything except the
// counters is owned by the render context.
type Scene struct {
	render *RenderContext

	primitives   Arena[*PrimitiveRecord]
	lights       Arena[*LightRecord]
	interactions Arena[*Interaction]
	pairs        map[pairKey]Handle

	primitiveOctree *spatial.Octree[*primitiveCompact]
	lightOctree     *spatial.Octree[*LightRecord]

	staticLights  []*LightRecord
	dynamicLights []*LightRecord
	lightsByGUID  map[uuid.UUID]*LightRecord
	environments  map[uuid.UUID]*LightEnvironmentInfo

	// LOD substitution side tables
	byKey           map[uuid.UUID]*primitiveCompact
	pendingChildren map[uuid.UUID][]*PrimitiveRecord

	depthDrawList    DrawList
	basePassDrawList DrawList
	staticMeshDirty  []*PrimitiveRecord

	uncachedStaticLighting atomic.Int64

	metrics *Metrics
}

func NewScene(render *RenderContext) *Scene {
	return &Scene{
		render:          render,
		pairs:           make(map[pairKey]Handle),
		primitiveOctree: spatial.NewWorldOctree[*primitiveCompact](),
		lightOctree:     spatial.NewWorldOctree[*LightRecord](),
		lightsByGUID:    make(map[uuid.UUID]*LightRecord),
		environments:    make(map[uuid.UUID]*LightEnvironmentInfo),
		byKey:           make(map[uuid.UUID]*primitiveCompact),
		pendingChildren: make(map[uuid.UUID][]*PrimitiveRecord),
	}
}

func (s *Scene) RenderContext() *RenderContext { return s.render }

// SetMetrics attaches gauges updated as the graph changes.
func (s *Scene) SetMetrics(m *Metrics) { s.metrics = m }

func (s *Scene) assertRenderContext(op string) {
	if !s.render.InRenderContext() {
		panic(fmt.Sprintf("%s called outside the render context", op))
	}
}

// UncachedStaticLightingInteractions may be read from any goroutine.
func (s *Scene) UncachedStaticLightingInteractions() int64 {
	return s.uncachedStaticLighting.Load()
}

func (s *Scene) NumPrimitives() int   { return s.primitives.Len() }
func (s *Scene) NumLights() int       { return s.lights.Len() }
func (s *Scene) NumInteractions() int { return s.interactions.Len() }

func (s *Scene) DepthDrawList() *DrawList    { return &s.depthDrawList }
func (s *Scene) BasePassDrawList() *DrawList { return &s.basePassDrawList }

// interactionSeq yields the interactions behind a set of handles.
func (s *Scene) interactionSeq(set []Handle) iter.Seq[*Interaction] {
	return func(yield func(*Interaction) bool) {
		for _, h := range set {
			if !yield(s.interactions.Get(h)) {
				return
			}
		}
	}
}

func (s *Scene) PrimitiveInteractions(p *PrimitiveRecord) iter.Seq[*Interaction] {
	return s.interactionSeq(p.interactions)
}

func (s *Scene) LightInteractions(l *LightRecord) iter.Seq[*Interaction] {
	return s.interactionSeq(l.interactions)
}

// FindInteraction returns the interaction between l and p, if any.
func (s *Scene) FindInteraction(l *LightRecord, p *PrimitiveRecord) (*Interaction, bool) {
	h, ok := s.pairs[pairKey{light: l.handle, primitive: p.handle}]
	if !ok {
		return nil, false
	}
	return s.interactions.Get(h), true
}

func (s *Scene) StaticLights() []*LightRecord  { return s.staticLights }
func (s *Scene) DynamicLights() []*LightRecord { return s.dynamicLights }

func (s *Scene) LightByGUID(guid uuid.UUID) (*LightRecord, bool) {
	l, ok := s.lightsByGUID[guid]
	return l, ok
}

// QueryPrimitives yields primitives whose bounds intersect box, including LOD
// substitutes reached through their parent.
func (s *Scene) QueryPrimitives(box geom.Box) iter.Seq[*PrimitiveRecord] {
	return func(yield func(*PrimitiveRecord) bool) {
		for _, c := range s.primitiveOctree.Query(box) {
			if !yieldCompact(*c, box, yield) {
				return
			}
		}
	}
}

func yieldCompact(c *primitiveCompact, box geom.Box, yield func(*PrimitiveRecord) bool) bool {
	if c.prim.Desc.Bounds.Box().Intersects(box) && !yield(c.prim) {
		return false
	}
	for _, child := range c.children {
		if !yieldCompact(child.compact, box, yield) {
			return false
		}
	}
	return true
}

func (s *Scene) IsIndexed(p *PrimitiveRecord) bool {
	if p.placement != PlacementIndexed {
		return false
	}
	return *s.primitiveOctree.Get(p.octreeID) == p.compact
}

// AddLightEnvironment registers a light environment scope. Primitives and
// lights naming it must be attached after it.
func (s *Scene) AddLightEnvironment(id uuid.UUID, enabled bool) *LightEnvironmentInfo {
	s.assertRenderContext("AddLightEnvironment")
	if _, ok := s.environments[id]; ok {
		panic(fmt.Sprintf("light environment %s added twice", id))
	}
	e := newLightEnvironmentInfo(id, enabled)
	s.environments[id] = e
	return e
}

func (s *Scene) RemoveLightEnvironment(id uuid.UUID) {
	s.assertRenderContext("RemoveLightEnvironment")
	e := s.environment(id)
	if len(e.primitives) > 0 || len(e.bound) > 0 {
		panic(fmt.Sprintf("light environment %s removed while in use", id))
	}
	delete(s.environments, id)
}

func (s *Scene) LightEnvironment(id uuid.UUID) (*LightEnvironmentInfo, bool) {
	e, ok := s.environments[id]
	return e, ok
}

func (s *Scene) environment(id uuid.UUID) *LightEnvironmentInfo {
	e, ok := s.environments[id]
	if !ok {
		panic(fmt.Sprintf("unknown light environment %s", id))
	}
	return e
}

// SetLightEnvironmentEnabled rebuilds the interactions of the environment's
// primitives under the new scope.
func (s *Scene) SetLightEnvironmentEnabled(id uuid.UUID, enabled bool) {
	s.assertRenderContext("SetLightEnvironmentEnabled")
	e := s.environment(id)
	if e.enabled == enabled {
		return
	}
	e.enabled = enabled
	for _, p := range e.primitives {
		s.destroyAllInteractions(&p.interactions)
		s.discoverLights(p)
	}
}

// SetEnvironmentLights replaces the world lights an environment tracks
// individually. Only pairs whose outcome changed are touched.
func (s *Scene) SetEnvironmentLights(id uuid.UUID, lights []uuid.UUID) {
	s.assertRenderContext("SetEnvironmentLights")
	e := s.environment(id)
	next := make(map[uuid.UUID]struct{}, len(lights))
	for _, g := range lights {
		next[g] = struct{}{}
	}
	var changed []uuid.UUID
	for g := range e.tracked {
		if _, ok := next[g]; !ok {
			changed = append(changed, g)
		}
	}
	for g := range next {
		if _, ok := e.tracked[g]; !ok {
			changed = append(changed, g)
		}
	}
	e.tracked = next

	for _, g := range changed {
		l, ok := s.lightsByGUID[g]
		if !ok {
			continue
		}
		for _, p := range e.primitives {
			s.refreshPair(l, p)
		}
	}
}

func (s *Scene) refreshPair(l *LightRecord, p *PrimitiveRecord) {
	want := p.Desc.AcceptsLights && LightAffects(&l.Desc, p.affectTarget())
	h, have := s.pairs[pairKey{light: l.handle, primitive: p.handle}]
	switch {
	case want && !have:
		s.createInteraction(l, p)
	case !want && have:
		s.destroyInteraction(h)
	}
}

// AttachPrimitive creates the render record of a primitive, places it and
// discovers the lights affecting it.
func (s *Scene) AttachPrimitive(desc PrimitiveDesc) *PrimitiveRecord {
	s.assertRenderContext("AttachPrimitive")
	if desc.Proxy == nil {
		panic("AttachPrimitive without proxy")
	}
	if desc.Key != uuid.Nil && desc.Key == desc.ReplacementPrimitive {
		panic(fmt.Sprintf("primitive %s replaces itself", desc.Key))
	}

	p := &PrimitiveRecord{Desc: desc, attached: true}
	p.handle = s.primitives.Alloc(p)

	desc.Proxy.DrawStaticElements(p)
	s.addToDrawLists(p)

	p.compact = &primitiveCompact{prim: p}
	if desc.Key != uuid.Nil {
		if _, ok := s.byKey[desc.Key]; ok {
			panic(fmt.Sprintf("primitive %s attached twice", desc.Key))
		}
		s.byKey[desc.Key] = p.compact
		for _, child := range s.pendingChildren[desc.Key] {
			p.compact.adopt(child)
		}
		delete(s.pendingChildren, desc.Key)
	}

	if desc.ReplacementPrimitive != uuid.Nil {
		if parent, ok := s.byKey[desc.ReplacementPrimitive]; ok {
			parent.adopt(p)
		} else {
			s.pendingChildren[desc.ReplacementPrimitive] = append(s.pendingChildren[desc.ReplacementPrimitive], p)
			p.placement = PlacementPendingChild
		}
	} else {
		p.octreeID = s.primitiveOctree.Insert(desc.Bounds.Box(), p.compact)
		p.placement = PlacementIndexed
	}

	if desc.Environment != uuid.Nil {
		s.environment(desc.Environment).addPrimitive(p)
	}

	s.discoverLights(p)
	s.metrics.primitivesChanged(s)
	return p
}

func (s *Scene) discoverLights(p *PrimitiveRecord) {
	if !p.Desc.AcceptsLights {
		return
	}
	target := p.affectTarget()
	if e := p.environment; e != nil && e.enabled {
		for _, g := range e.Lights() {
			if l, ok := s.lightsByGUID[g]; ok && LightAffects(&l.Desc, target) {
				s.createInteraction(l, p)
			}
		}
		return
	}
	for _, l := range s.lightOctree.Query(p.Desc.Bounds.Box()) {
		if LightAffects(&(*l).Desc, target) {
			s.createInteraction(*l, p)
		}
	}
}

// DetachPrimitive tears down the interactions of p and removes it from the
// scene. Detaching twice panics.
func (s *Scene) DetachPrimitive(p *PrimitiveRecord) {
	s.assertRenderContext("DetachPrimitive")
	if !p.attached {
		panic("DetachPrimitive on a detached primitive")
	}
	s.primitives.Get(p.handle)

	s.destroyAllInteractions(&p.interactions)

	if p.Desc.Key != uuid.Nil {
		// children wait for the parent to come back
		for _, child := range p.compact.children {
			child.parent = nil
			child.placement = PlacementPendingChild
			s.pendingChildren[p.Desc.Key] = append(s.pendingChildren[p.Desc.Key], child)
		}
		delete(s.byKey, p.Desc.Key)
	}
	p.compact = nil

	switch p.placement {
	case PlacementIndexed:
		s.primitiveOctree.Remove(p.octreeID)
	case PlacementChild:
		p.parent.release(p)
	case PlacementPendingChild:
		s.removePendingChild(p)
	}
	p.placement = PlacementNone

	if p.environment != nil {
		p.environment.removePrimitive(p)
	}

	s.removeFromDrawLists(p)
	p.staticMeshes = nil
	p.needsStaticMeshUpdate = false

	p.attached = false
	s.primitives.Free(p.handle)
	s.metrics.primitivesChanged(s)
}

func (s *Scene) removePendingChild(p *PrimitiveRecord) {
	key := p.Desc.ReplacementPrimitive
	pending := s.pendingChildren[key]
	for i, c := range pending {
		if c == p {
			pending[i] = pending[len(pending)-1]
			pending = pending[:len(pending)-1]
			break
		}
	}
	if len(pending) == 0 {
		delete(s.pendingChildren, key)
	} else {
		s.pendingChildren[key] = pending
	}
}

// UpdatePrimitiveTransform moves p and rebuilds its interactions.
func (s *Scene) UpdatePrimitiveTransform(p *PrimitiveRecord, bounds geom.BoxSphereBounds) {
	s.assertRenderContext("UpdatePrimitiveTransform")
	if !p.attached {
		panic("UpdatePrimitiveTransform on a detached primitive")
	}
	s.destroyAllInteractions(&p.interactions)
	p.Desc.Bounds = bounds
	if p.placement == PlacementIndexed {
		s.primitiveOctree.Move(p.octreeID, bounds.Box())
	}
	s.discoverLights(p)
}

// AttachLight creates the render record of a light and interacts it with the
// primitives it affects.
func (s *Scene) AttachLight(desc LightDesc) *LightRecord {
	s.assertRenderContext("AttachLight")
	if desc.GUID == uuid.Nil {
		desc.GUID = uuid.New()
	}
	if _, ok := s.lightsByGUID[desc.GUID]; ok {
		panic(fmt.Sprintf("light %s attached twice", desc.GUID))
	}
	l := &LightRecord{Desc: desc, attached: true}
	l.handle = s.lights.Alloc(l)
	s.lightsByGUID[desc.GUID] = l
	s.linkLight(l)
	s.metrics.lightsChanged(s)
	return l
}

func (s *Scene) linkLight(l *LightRecord) {
	l.static = l.Desc.HasStaticShadowing()
	list := &s.dynamicLights
	if l.static {
		list = &s.staticLights
	}
	l.listIndex = len(*list)
	*list = append(*list, l)

	l.octreeID = s.lightOctree.Insert(l.Desc.Bounds(), l)

	if l.Desc.Environment != uuid.Nil {
		e := s.environment(l.Desc.Environment)
		e.bound[l.Desc.GUID] = struct{}{}
		for _, p := range e.primitives {
			if p.Desc.AcceptsLights && LightAffects(&l.Desc, p.affectTarget()) {
				s.createInteraction(l, p)
			}
		}
		return
	}

	var hits []*PrimitiveRecord
	for p := range s.QueryPrimitives(l.Desc.Bounds()) {
		hits = append(hits, p)
	}
	for _, p := range hits {
		if p.Desc.AcceptsLights && LightAffects(&l.Desc, p.affectTarget()) {
			s.createInteraction(l, p)
		}
	}
}

func (s *Scene) unlinkLight(l *LightRecord) {
	s.destroyAllInteractions(&l.interactions)

	list := &s.dynamicLights
	if l.static {
		list = &s.staticLights
	}
	last := len(*list) - 1
	moved := (*list)[last]
	(*list)[l.listIndex] = moved
	moved.listIndex = l.listIndex
	(*list)[last] = nil
	*list = (*list)[:last]

	s.lightOctree.Remove(l.octreeID)

	if l.Desc.Environment != uuid.Nil {
		delete(s.environment(l.Desc.Environment).bound, l.Desc.GUID)
	}
}

// DetachLight tears down every interaction of l and removes it from its light list.
func (s *Scene) DetachLight(l *LightRecord) {
	s.assertRenderContext("DetachLight")
	if !l.attached {
		panic("DetachLight on a detached light")
	}
	s.lights.Get(l.handle)
	s.unlinkLight(l)
	delete(s.lightsByGUID, l.Desc.GUID)
	l.attached = false
	s.lights.Free(l.handle)
	s.metrics.lightsChanged(s)
}

// UpdateLight applies a new description, recreating every interaction.
func (s *Scene) UpdateLight(l *LightRecord, desc LightDesc) {
	s.assertRenderContext("UpdateLight")
	if !l.attached {
		panic("UpdateLight on a detached light")
	}
	if desc.GUID == uuid.Nil {
		desc.GUID = l.Desc.GUID
	}
	if desc.GUID != l.Desc.GUID {
		panic("UpdateLight cannot change the light GUID")
	}
	s.unlinkLight(l)
	l.Desc = desc
	s.linkLight(l)
	s.metrics.lightsChanged(s)
}

func (s *Scene) addToDrawLists(p *PrimitiveRecord) {
	for _, m := range p.staticMeshes {
		m.depthLink = s.depthDrawList.Add(m)
		m.baseLink = s.basePassDrawList.Add(m)
	}
}

func (s *Scene) removeFromDrawLists(p *PrimitiveRecord) {
	for _, m := range p.staticMeshes {
		m.depthLink.Remove()
		m.baseLink.Remove()
		m.depthLink, m.baseLink = nil, nil
	}
}

// BeginDeferredUpdateStaticMeshes schedules p's static meshes to be
// re-registered by the next UpdateStaticMeshes.
func (s *Scene) BeginDeferredUpdateStaticMeshes(p *PrimitiveRecord) {
	s.assertRenderContext("BeginDeferredUpdateStaticMeshes")
	if !p.attached || p.needsStaticMeshUpdate {
		return
	}
	p.needsStaticMeshUpdate = true
	s.staticMeshDirty = append(s.staticMeshDirty, p)
}

// UpdateStaticMeshes removes and re-adds the static meshes of every primitive
// scheduled since the last call, including their per light registrations.
func (s *Scene) UpdateStaticMeshes() {
	s.assertRenderContext("UpdateStaticMeshes")
	for _, p := range s.staticMeshDirty {
		if !p.attached || !p.needsStaticMeshUpdate {
			continue
		}
		p.needsStaticMeshUpdate = false

		s.removeFromDrawLists(p)
		for _, h := range p.interactions {
			in := s.interactions.Get(h)
			for _, link := range in.links {
				link.Remove()
			}
			in.links = in.links[:0]
		}

		s.addToDrawLists(p)
		for _, h := range p.interactions {
			in := s.interactions.Get(h)
			if in.lightMapped {
				continue
			}
			for _, m := range p.staticMeshes {
				in.links = append(in.links, in.light.drawList.Add(m))
			}
		}
	}
	clear(s.staticMeshDirty)
	s.staticMeshDirty = s.staticMeshDirty[:0]
}
