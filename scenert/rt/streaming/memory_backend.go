package streaming

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"
)

// mipTailDimension is the largest mip edge packed into the mip tail.
const mipTailDimension = 4

var ErrRequestInFlight = errors.New("streaming: mip change already in flight")

// MemoryBackend serves mips from chains built in memory and completes
// requests after a fixed number of polls. It backs tools and tests.
type MemoryBackend struct {
	mu       sync.Mutex
	poolSize int64
	latency  int
	textures []*MemoryTexture

	// FailEnqueue, when set, can refuse a mip change request.
	FailEnqueue func(t *MemoryTexture, mips int) error
}

// NewMemoryBackend creates a backend with a texture pool of poolSize bytes.
// Requests complete after latency polls.
func NewMemoryBackend(poolSize int64, latency int) *MemoryBackend {
	return &MemoryBackend{poolSize: poolSize, latency: max(0, latency)}
}

func (b *MemoryBackend) SetPoolSize(n int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.poolSize = n
}

// TextureMemoryStats counts resident mips and the intermediate copies of
// requests in flight against the pool.
func (b *MemoryBackend) TextureMemoryStats() (allocated, available int64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.textures {
		allocated += t.sizeForMips(t.resident)
		if t.status == StatusRequestPending || t.status == StatusFinalizing || t.status == StatusCancelPending {
			allocated += t.sizeForMips(t.requested)
		}
	}
	return allocated, b.poolSize - allocated, true
}

// NewTexture builds the full mip chain of src. The texture becomes ready for
// streaming after initPolls polls with residentMips mips loaded.
func (b *MemoryBackend) NewTexture(name string, src image.Image, residentMips, initPolls int) *MemoryTexture {
	chain := buildMipChain(src)
	t := &MemoryTexture{
		backend:   b,
		name:      name,
		chain:     chain,
		tailBase:  len(chain),
		resident:  min(max(1, residentMips), len(chain)),
		status:    StatusIdle,
		pollsLeft: initPolls,
	}
	t.requested = t.resident
	if initPolls > 0 {
		t.status = StatusPendingInit
	}
	for i, m := range chain {
		if size := m.Bounds().Size(); max(size.X, size.Y) <= mipTailDimension {
			t.tailBase = i
			break
		}
	}

	b.mu.Lock()
	b.textures = append(b.textures, t)
	b.mu.Unlock()
	return t
}

func buildMipChain(src image.Image) []*image.RGBA {
	top := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	draw.Draw(top, top.Bounds(), src, src.Bounds().Min, draw.Src)
	chain := []*image.RGBA{top}
	for prev := top; prev.Bounds().Dx() > 1 || prev.Bounds().Dy() > 1; {
		w := max(1, prev.Bounds().Dx()/2)
		h := max(1, prev.Bounds().Dy()/2)
		next := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(next, next.Bounds(), prev, prev.Bounds(), draw.Src, nil)
		chain = append(chain, next)
		prev = next
	}
	return chain
}

// MemoryTexture is a Resource of a MemoryBackend.
type MemoryTexture struct {
	backend *MemoryBackend
	name    string
	chain   []*image.RGBA

	tailBase  int
	resident  int
	requested int
	status    Status
	pollsLeft int
}

func (t *MemoryTexture) Name() string { return t.name }

func (t *MemoryTexture) NumMips() int { return len(t.chain) }

func (t *MemoryTexture) MipTailBaseIndex() int { return t.tailBase }

func (t *MemoryTexture) ResidentMips() int {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	return t.resident
}

func (t *MemoryTexture) RequestedMips() int {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	return t.requested
}

func (t *MemoryTexture) SizeForMips(n int) int64 {
	return t.sizeForMips(n)
}

func (t *MemoryTexture) sizeForMips(n int) int64 {
	var size int64
	for _, m := range t.chain[len(t.chain)-min(max(n, 0), len(t.chain)):] {
		size += int64(len(m.Pix))
	}
	return size
}

// Mip returns a resident mip level, 0 being the largest.
func (t *MemoryTexture) Mip(level int) (image.Image, bool) {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	if level < len(t.chain)-t.resident || level >= len(t.chain) {
		return nil, false
	}
	return t.chain[level], true
}

func (t *MemoryTexture) IsReadyForStreaming() bool {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	return t.status != StatusPendingInit
}

func (t *MemoryTexture) Status() Status {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	return t.status
}

func (t *MemoryTexture) UpdateStreamingStatus() bool {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	switch t.status {
	case StatusPendingInit:
		t.pollsLeft--
		if t.pollsLeft <= 0 {
			t.status = StatusIdle
			return false
		}
		return true
	case StatusRequestPending:
		t.pollsLeft--
		if t.pollsLeft <= 0 {
			t.status = StatusFinalizing
		}
		return true
	case StatusFinalizing:
		t.resident = t.requested
		t.status = StatusIdle
	case StatusCancelPending:
		t.requested = t.resident
		t.status = StatusIdle
	}
	return false
}

// CancelPendingMipChange succeeds while the request has not reached finalization.
func (t *MemoryTexture) CancelPendingMipChange() bool {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	if t.status != StatusRequestPending {
		return false
	}
	t.status = StatusCancelPending
	return true
}

func (t *MemoryTexture) BeginUpdateMipCount(mips int) error {
	if fail := t.backend.FailEnqueue; fail != nil {
		if err := fail(t, mips); err != nil {
			return err
		}
	}
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	if t.status != StatusIdle {
		return ErrRequestInFlight
	}
	if mips < 1 || mips > len(t.chain) {
		return fmt.Errorf("streaming: %s: mip count %d out of range [1,%d]", t.name, mips, len(t.chain))
	}
	t.requested = mips
	t.status = StatusRequestPending
	t.pollsLeft = t.backend.latency
	return nil
}
