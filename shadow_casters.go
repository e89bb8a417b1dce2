package scenecore

import (
	"sync"

	"github.com/gekko3d/scenecore/scenert/rt/core"
	"github.com/gekko3d/scenecore/scenert/rt/spatial"
	"github.com/go-gl/mathgl/mgl32"
)

// ShadowCasters indexes the static shadow casting primitives of the world.
// Light environments trace their visibility samples against it from the
// Manager workers, so queries take a read lock.
type ShadowCasters struct {
	mu   sync.RWMutex
	tree *spatial.Octree[*PrimitiveComponent]
}

func NewShadowCasters() *ShadowCasters {
	return &ShadowCasters{tree: spatial.NewWorldOctree[*PrimitiveComponent]()}
}

// castsStaticShadow leaves out primitives lit by a light environment; they
// belong to moving owners.
func castsStaticShadow(p *PrimitiveComponent) bool {
	return p.CastStaticShadow && p.LightEnvironment == nil
}

func (s *ShadowCasters) insert(p *PrimitiveComponent) {
	if !castsStaticShadow(p) {
		return
	}
	s.mu.Lock()
	p.caster = s.tree.Insert(p.Bounds.Box(), p)
	s.mu.Unlock()
}

func (s *ShadowCasters) remove(p *PrimitiveComponent) {
	if p.caster == 0 {
		return
	}
	s.mu.Lock()
	s.tree.Remove(p.caster)
	s.mu.Unlock()
	p.caster = 0
}

func (s *ShadowCasters) move(p *PrimitiveComponent) {
	if p.caster == 0 {
		return
	}
	s.mu.Lock()
	s.tree.Move(p.caster, p.Bounds.Box())
	s.mu.Unlock()
}

func (s *ShadowCasters) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// IsSegmentClear reports whether no caster box is crossed by the segment.
func (s *ShadowCasters) IsSegmentClear(start, end mgl32.Vec3, _ *core.LightDesc) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for range s.tree.QuerySegment(start, end) {
		return false
	}
	return true
}
