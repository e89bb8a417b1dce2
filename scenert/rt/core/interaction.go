package core

type DynamicShadowType uint8

const (
	ShadowNone DynamicShadowType = iota
	ShadowVolume
	ShadowProjected
)

func (t DynamicShadowType) String() string {
	switch t {
	case ShadowVolume:
		return "volume"
	case ShadowProjected:
		return "projected"
	}
	return "none"
}

// ShadowInputs are the endpoint flags the shadow classification reads.
type ShadowInputs struct {
	LightCastStaticShadow       bool
	LightCastDynamicShadow      bool
	LightStaticShadowingCapable bool
	LightProjectedForDynamic    bool

	PrimitiveStaticShadowing   bool
	PrimitiveCastStaticShadow  bool
	PrimitiveCastDynamicShadow bool

	// PreBaked is set when the pair is lit without dynamic shadowing.
	PreBaked bool
}

type ShadowClass struct {
	CastShadow bool
	Type       DynamicShadowType
	// Uncached marks a static pair whose shadowing was never built.
	Uncached bool
}

// ClassifyShadow is evaluated once per interaction.
func ClassifyShadow(in ShadowInputs) ShadowClass {
	var c ShadowClass
	if in.PrimitiveStaticShadowing {
		c.CastShadow = in.LightCastStaticShadow && in.PrimitiveCastStaticShadow
	} else {
		c.CastShadow = in.LightCastDynamicShadow && in.PrimitiveCastDynamicShadow
	}
	if !c.CastShadow || in.PreBaked {
		return c
	}

	if in.PrimitiveStaticShadowing {
		if in.LightStaticShadowingCapable {
			c.Type = ShadowVolume
			c.Uncached = true
		} else if in.PrimitiveCastDynamicShadow {
			c.Type = ShadowVolume
		}
		return c
	}

	if !in.LightProjectedForDynamic && in.PrimitiveCastDynamicShadow {
		c.Type = ShadowVolume
	} else {
		c.Type = ShadowProjected
	}
	return c
}

// Interaction links one light and one primitive. It is immutable; a change on
// either side destroys and recreates it.
type Interaction struct {
	handle    Handle
	light     *LightRecord
	primitive *PrimitiveRecord
	lightPos  int
	primPos   int

	class       ShadowClass
	lightMapped bool
	links       []*DrawListLink
}

func (i *Interaction) Light() *LightRecord { return i.light }

func (i *Interaction) Primitive() *PrimitiveRecord { return i.primitive }

func (i *Interaction) CastShadow() bool { return i.class.CastShadow }

func (i *Interaction) DynamicShadowType() DynamicShadowType { return i.class.Type }

func (i *Interaction) IsUncachedStaticLighting() bool { return i.class.Uncached }

func (i *Interaction) IsLightMapped() bool { return i.lightMapped }

type pairKey struct {
	light     Handle
	primitive Handle
}

func shadowInputs(l *LightRecord, p *PrimitiveRecord, preBaked bool) ShadowInputs {
	return ShadowInputs{
		LightCastStaticShadow:       l.Desc.CastsStaticShadow(),
		LightCastDynamicShadow:      l.Desc.CastsDynamicShadow(),
		LightStaticShadowingCapable: l.Desc.StaticShadowingCapable,
		LightProjectedForDynamic:    l.Desc.ProjectedShadowsForDynamic,
		PrimitiveStaticShadowing:    p.Desc.StaticShadowing,
		PrimitiveCastStaticShadow:   p.Desc.CastStaticShadow,
		PrimitiveCastDynamicShadow:  p.Desc.CastDynamicShadow,
		PreBaked:                    preBaked,
	}
}

// createInteraction links l and p unless they are already linked or the proxy
// reports the light irrelevant.
func (s *Scene) createInteraction(l *LightRecord, p *PrimitiveRecord) {
	key := pairKey{light: l.handle, primitive: p.handle}
	if _, ok := s.pairs[key]; ok {
		return
	}
	rel := p.Desc.Proxy.LightRelevance(&l.Desc)
	if !rel.Relevant {
		return
	}

	in := &Interaction{
		light:       l,
		primitive:   p,
		class:       ClassifyShadow(shadowInputs(l, p, !rel.Dynamic)),
		lightMapped: rel.LightMapped,
	}
	in.handle = s.interactions.Alloc(in)
	s.pairs[key] = in.handle

	in.lightPos = len(l.interactions)
	l.interactions = append(l.interactions, in.handle)
	in.primPos = len(p.interactions)
	p.interactions = append(p.interactions, in.handle)

	if in.class.Type == ShadowVolume {
		l.numVolumeInteractions++
	}
	if in.class.Uncached {
		s.uncachedStaticLighting.Add(1)
	}
	if !in.lightMapped {
		in.links = make([]*DrawListLink, 0, len(p.staticMeshes))
		for _, m := range p.staticMeshes {
			in.links = append(in.links, l.drawList.Add(m))
		}
	}
	s.metrics.interactionCreated(in)
}

// destroyInteraction unlinks the interaction from both endpoints.
func (s *Scene) destroyInteraction(h Handle) {
	in := s.interactions.Get(h)
	l, p := in.light, in.primitive

	s.swapErase(&l.interactions, in.lightPos, func(moved *Interaction, pos int) { moved.lightPos = pos })
	s.swapErase(&p.interactions, in.primPos, func(moved *Interaction, pos int) { moved.primPos = pos })
	delete(s.pairs, pairKey{light: l.handle, primitive: p.handle})

	if in.class.Type == ShadowVolume {
		l.numVolumeInteractions--
	}
	if in.class.Uncached {
		s.uncachedStaticLighting.Add(-1)
	}
	for _, link := range in.links {
		link.Remove()
	}
	in.links = nil
	s.interactions.Free(h)
	s.metrics.interactionDestroyed(in)
}

func (s *Scene) swapErase(set *[]Handle, pos int, fix func(moved *Interaction, pos int)) {
	list := *set
	last := len(list) - 1
	if pos != last {
		list[pos] = list[last]
		fix(s.interactions.Get(list[pos]), pos)
	}
	list[last] = Handle{}
	*set = list[:last]
}

func (s *Scene) destroyAllInteractions(set *[]Handle) {
	for len(*set) > 0 {
		s.destroyInteraction((*set)[len(*set)-1])
	}
}
