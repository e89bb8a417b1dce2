package spatial

import (
	"fmt"
	"iter"

	"github.com/gekko3d/scenecore/scenert/rt/geom"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// MaxElementsPerNode is the leaf population that triggers a split.
	MaxElementsPerNode = 10
	// MinNodeSize is the smallest half extent a node may be split into.
	MinNodeSize = 100
	// HalfWorldMax is the half extent of the root node.
	HalfWorldMax = 262144
)

// ElementID identifies an element while it is stored. The low 32 bits index
// the slot, the high 32 bits hold the slot generation.
type ElementID uint64

func makeElementID(slot, gen uint32) ElementID {
	return ElementID(uint64(gen)<<32 | uint64(slot))
}

func (id ElementID) slot() uint32 { return uint32(id) }
func (id ElementID) gen() uint32  { return uint32(id >> 32) }

type element[T any] struct {
	box   geom.Box
	value T
	node  *node
	index int // position in node.elements
	gen   uint32
	live  bool
}

type node struct {
	center   mgl32.Vec3
	extent   float32
	children *[8]*node
	elements []uint32
}

func (n *node) box() geom.Box {
	return geom.BoxFromCenterExtent(n.center, mgl32.Vec3{n.extent, n.extent, n.extent})
}

// childIndex returns the child fully containing b, or -1 when b straddles a
// splitting plane.
func (n *node) childIndex(b geom.Box) int {
	idx := 0
	for axis := 0; axis < 3; axis++ {
		switch {
		case b.Min[axis] >= n.center[axis]:
			idx |= 1 << axis
		case b.Max[axis] < n.center[axis]:
		default:
			return -1
		}
	}
	return idx
}

func (n *node) split() {
	half := n.extent * 0.5
	var children [8]*node
	for i := 0; i < 8; i++ {
		offset := mgl32.Vec3{-half, -half, -half}
		for axis := 0; axis < 3; axis++ {
			if i&(1<<axis) != 0 {
				offset[axis] = half
			}
		}
		children[i] = &node{center: n.center.Add(offset), extent: half}
	}
	n.children = &children
}

// Octree is a non-loose octree with single node filtering: every element lives
// in the deepest node that fully contains its box. Elements outside the root
// bounds are kept in the root.
type Octree[T any] struct {
	root     *node
	elements []element[T]
	free     []uint32
	count    int
}

func NewOctree[T any](center mgl32.Vec3, extent float32) *Octree[T] {
	return &Octree[T]{root: &node{center: center, extent: extent}}
}

// NewWorldOctree covers the whole world around the origin.
func NewWorldOctree[T any]() *Octree[T] {
	return NewOctree[T](mgl32.Vec3{}, HalfWorldMax)
}

func (o *Octree[T]) Len() int {
	return o.count
}

func (o *Octree[T]) Insert(box geom.Box, value T) ElementID {
	var slot uint32
	if n := len(o.free); n > 0 {
		slot = o.free[n-1]
		o.free = o.free[:n-1]
	} else {
		o.elements = append(o.elements, element[T]{})
		slot = uint32(len(o.elements) - 1)
	}
	e := &o.elements[slot]
	e.gen++
	e.box = box
	e.value = value
	e.live = true
	o.count++

	o.place(slot)
	return makeElementID(slot, e.gen)
}

func (o *Octree[T]) place(slot uint32) {
	box := o.elements[slot].box
	n := o.root
	if !n.box().Contains(box) {
		o.link(n, slot)
		return
	}
	for {
		if n.children == nil {
			o.link(n, slot)
			if len(n.elements) > MaxElementsPerNode && n.extent*0.5 >= MinNodeSize {
				o.splitNode(n)
			}
			return
		}
		ci := n.childIndex(box)
		if ci < 0 {
			o.link(n, slot)
			return
		}
		n = n.children[ci]
	}
}

func (o *Octree[T]) splitNode(n *node) {
	n.split()
	old := n.elements
	n.elements = nil
	for _, slot := range old {
		e := &o.elements[slot]
		target := n
		if ci := n.childIndex(e.box); ci >= 0 {
			target = n.children[ci]
		}
		o.link(target, slot)
	}
}

func (o *Octree[T]) link(n *node, slot uint32) {
	e := &o.elements[slot]
	e.node = n
	e.index = len(n.elements)
	n.elements = append(n.elements, slot)
}

func (o *Octree[T]) unlink(slot uint32) {
	e := &o.elements[slot]
	n := e.node
	last := len(n.elements) - 1
	moved := n.elements[last]
	n.elements[e.index] = moved
	o.elements[moved].index = e.index
	n.elements = n.elements[:last]
	e.node = nil
}

func (o *Octree[T]) lookup(id ElementID) *element[T] {
	slot := id.slot()
	if int(slot) >= len(o.elements) {
		panic(fmt.Sprintf("octree: unknown element %d", id))
	}
	e := &o.elements[slot]
	if !e.live || e.gen != id.gen() {
		panic(fmt.Sprintf("octree: stale element %d", id))
	}
	return e
}

// Remove deletes the element. Removing an unknown id panics.
func (o *Octree[T]) Remove(id ElementID) {
	e := o.lookup(id)
	o.unlink(id.slot())
	var zero T
	e.value = zero
	e.live = false
	o.free = append(o.free, id.slot())
	o.count--
}

// Get returns the stored value. Getting an unknown id panics.
func (o *Octree[T]) Get(id ElementID) *T {
	return &o.lookup(id).value
}

func (o *Octree[T]) Bounds(id ElementID) geom.Box {
	return o.lookup(id).box
}

// Move updates the element box, keeping its id.
func (o *Octree[T]) Move(id ElementID, box geom.Box) {
	e := o.lookup(id)
	o.unlink(id.slot())
	e.box = box
	o.place(id.slot())
}

// Query yields every element whose box intersects box. The tree must not be
// modified while iterating.
func (o *Octree[T]) Query(box geom.Box) iter.Seq2[ElementID, *T] {
	return o.visit(func(nodeBox geom.Box) bool { return nodeBox.Intersects(box) },
		func(e *element[T]) bool { return e.box.Intersects(box) })
}

// QuerySegment yields every element whose box the segment passes through.
func (o *Octree[T]) QuerySegment(start, end mgl32.Vec3) iter.Seq2[ElementID, *T] {
	return o.visit(func(nodeBox geom.Box) bool { return nodeBox.SegmentIntersects(start, end) },
		func(e *element[T]) bool { return e.box.SegmentIntersects(start, end) })
}

// All yields every stored element.
func (o *Octree[T]) All() iter.Seq2[ElementID, *T] {
	return o.visit(func(geom.Box) bool { return true }, func(*element[T]) bool { return true })
}

func (o *Octree[T]) visit(nodeTest func(geom.Box) bool, elemTest func(*element[T]) bool) iter.Seq2[ElementID, *T] {
	return func(yield func(ElementID, *T) bool) {
		// the root is always visited since it holds out of bounds elements
		stack := []*node{o.root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, slot := range n.elements {
				e := &o.elements[slot]
				if elemTest(e) {
					if !yield(makeElementID(slot, e.gen), &e.value) {
						return
					}
				}
			}
			if n.children != nil {
				for _, c := range n.children {
					if nodeTest(c.box()) {
						stack = append(stack, c)
					}
				}
			}
		}
	}
}

// depth is the node depth an element was filtered into. Used by tests.
func (o *Octree[T]) depth(id ElementID) int {
	target := o.lookup(id).node
	d := 0
	n := o.root
	for n != target {
		if n.children == nil {
			return -1
		}
		ci := n.childIndex(o.lookup(id).box)
		if ci < 0 {
			return -1
		}
		n = n.children[ci]
		d++
	}
	return d
}
