package core

import "fmt"

// Handle addresses an Arena slot. The zero Handle is never valid.
type Handle struct {
	index uint32
	gen   uint32
}

func (h Handle) IsValid() bool {
	return h.gen != 0
}

type arenaSlot[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Arena is a slab with generation checked handles. Freed slots are reused
// with a bumped generation so stale handles are caught.
type Arena[T any] struct {
	slots []arenaSlot[T]
	free  []uint32
	live  int
}

func (a *Arena[T]) Alloc(v T) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, arenaSlot[T]{})
		idx = uint32(len(a.slots) - 1)
	}
	s := &a.slots[idx]
	s.gen++
	s.value = v
	s.live = true
	a.live++
	return Handle{index: idx, gen: s.gen}
}

func (a *Arena[T]) slot(h Handle) *arenaSlot[T] {
	if int(h.index) >= len(a.slots) {
		panic(fmt.Sprintf("arena: handle %d out of range", h.index))
	}
	s := &a.slots[h.index]
	if !s.live || s.gen != h.gen {
		panic(fmt.Sprintf("arena: stale handle %d/%d", h.index, h.gen))
	}
	return s
}

func (a *Arena[T]) Get(h Handle) T {
	return a.slot(h).value
}

func (a *Arena[T]) Valid(h Handle) bool {
	if !h.IsValid() || int(h.index) >= len(a.slots) {
		return false
	}
	s := &a.slots[h.index]
	return s.live && s.gen == h.gen
}

func (a *Arena[T]) Free(h Handle) {
	s := a.slot(h)
	var zero T
	s.value = zero
	s.live = false
	a.free = append(a.free, h.index)
	a.live--
}

func (a *Arena[T]) Len() int {
	return a.live
}
