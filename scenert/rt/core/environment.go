package core

import (
	"maps"
	"slices"

	"github.com/google/uuid"
)

// LightEnvironmentInfo is the render side scope of a light environment: the
// lights it lets through and the primitives using it.
type LightEnvironmentInfo struct {
	ID      uuid.UUID
	enabled bool

	// bound lights were attached for this environment only, tracked lights
	// are world lights the environment lists individually.
	bound   map[uuid.UUID]struct{}
	tracked map[uuid.UUID]struct{}

	primitives []*PrimitiveRecord
}

func newLightEnvironmentInfo(id uuid.UUID, enabled bool) *LightEnvironmentInfo {
	return &LightEnvironmentInfo{
		ID:      id,
		enabled: enabled,
		bound:   make(map[uuid.UUID]struct{}),
		tracked: make(map[uuid.UUID]struct{}),
	}
}

func (e *LightEnvironmentInfo) IsEnabled() bool { return e.enabled }

func (e *LightEnvironmentInfo) Contains(guid uuid.UUID) bool {
	if _, ok := e.bound[guid]; ok {
		return true
	}
	_, ok := e.tracked[guid]
	return ok
}

// Lights returns the GUIDs of every light in scope, sorted.
func (e *LightEnvironmentInfo) Lights() []uuid.UUID {
	all := slices.Collect(maps.Keys(e.bound))
	for g := range e.tracked {
		if _, ok := e.bound[g]; !ok {
			all = append(all, g)
		}
	}
	slices.SortFunc(all, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	return all
}

func (e *LightEnvironmentInfo) Primitives() []*PrimitiveRecord { return e.primitives }

func (e *LightEnvironmentInfo) addPrimitive(p *PrimitiveRecord) {
	p.environment = e
	p.envIndex = len(e.primitives)
	e.primitives = append(e.primitives, p)
}

func (e *LightEnvironmentInfo) removePrimitive(p *PrimitiveRecord) {
	last := len(e.primitives) - 1
	moved := e.primitives[last]
	e.primitives[p.envIndex] = moved
	moved.envIndex = p.envIndex
	e.primitives[last] = nil
	e.primitives = e.primitives[:last]
	p.environment = nil
}
