package core

import (
	"cmp"
	"slices"
)

// PolicyKey groups static meshes that can be drawn with the same state.
type PolicyKey struct {
	MaterialID      uint32
	VertexFactoryID uint32
}

func comparePolicyKeys(a, b PolicyKey) int {
	if c := cmp.Compare(a.MaterialID, b.MaterialID); c != 0 {
		return c
	}
	return cmp.Compare(a.VertexFactoryID, b.VertexFactoryID)
}

type drawingPolicy struct {
	key      PolicyKey
	elements []*DrawListLink
}

// DrawListLink is the registration of one mesh in one draw list.
type DrawListLink struct {
	list   *DrawList
	policy *drawingPolicy
	index  int
	Mesh   *StaticMeshEntry
}

// Remove deregisters the mesh. Removing twice panics.
func (link *DrawListLink) Remove() {
	if link.list == nil {
		panic("draw list link removed twice")
	}
	link.list.remove(link)
}

// DrawList keeps static meshes grouped by drawing policy, policies sorted by key.
type DrawList struct {
	policies []*drawingPolicy
	count    int
}

func (l *DrawList) Add(mesh *StaticMeshEntry) *DrawListLink {
	key := PolicyKey{MaterialID: mesh.Mesh.MaterialID, VertexFactoryID: mesh.Mesh.VertexFactoryID}
	i, found := slices.BinarySearchFunc(l.policies, key, func(p *drawingPolicy, k PolicyKey) int {
		return comparePolicyKeys(p.key, k)
	})
	if !found {
		l.policies = slices.Insert(l.policies, i, &drawingPolicy{key: key})
	}
	policy := l.policies[i]
	link := &DrawListLink{list: l, policy: policy, index: len(policy.elements), Mesh: mesh}
	policy.elements = append(policy.elements, link)
	l.count++
	return link
}

func (l *DrawList) remove(link *DrawListLink) {
	policy := link.policy
	last := len(policy.elements) - 1
	moved := policy.elements[last]
	policy.elements[link.index] = moved
	moved.index = link.index
	policy.elements[last] = nil
	policy.elements = policy.elements[:last]

	if len(policy.elements) == 0 {
		i := slices.Index(l.policies, policy)
		l.policies = slices.Delete(l.policies, i, i+1)
	}
	l.count--
	link.list = nil
	link.policy = nil
}

func (l *DrawList) NumMeshes() int { return l.count }

func (l *DrawList) NumPolicies() int { return len(l.policies) }

// Visit calls fn for every mesh in policy order until fn returns false.
func (l *DrawList) Visit(fn func(key PolicyKey, mesh *StaticMeshEntry) bool) {
	for _, p := range l.policies {
		for _, link := range p.elements {
			if !fn(p.key, link.Mesh) {
				return
			}
		}
	}
}
