package streaming

import (
	"math"
	"math/bits"
	"sync"

	"github.com/google/uuid"
)

// Unhandled is returned by handlers that have no opinion about a texture.
const Unhandled = -1

const (
	lastRenderFullMipsTime    = 45
	lastRenderReducedMipsTime = 90
)

// Handler computes how many mips a texture wants.
type Handler interface {
	WantedMips(t *Texture, views []ViewInfo, fudge float32, lodAllowed int, now float64) int
}

// StaticHandler derives the wanted mips from the screen size of every
// texture instance as seen from each view.
type StaticHandler struct{}

func (StaticHandler) WantedMips(t *Texture, views []ViewInfo, fudge float32, lodAllowed int, _ float64) int {
	wanted := Unhandled
	if len(views) == 0 {
		return wanted
	}
	fudgeSq := fudge * fudge
	for _, view := range views {
		for _, inst := range t.Instances {
			distSq := view.Origin.Sub(inst.Center).LenSqr() * fudgeSq
			outside := distSq - inst.Radius*inst.Radius
			if outside > 1 {
				silhouette := inst.Radius / float32(math.Sqrt(float64(outside)))
				pixels := 2 * silhouette * view.ScreenSize
				texels := inst.TexelFactor / (2 * inst.Radius) * pixels
				wanted = max(wanted, 1+ceilLog2(uint32(min(max(texels, 0), 1<<31))))
			} else {
				wanted = t.Resource.NumMips()
			}
			if wanted >= lodAllowed {
				return wanted
			}
		}
	}
	return wanted
}

func ceilLog2(v uint32) int {
	if v <= 1 {
		return 0
	}
	return bits.Len32(v - 1)
}

// LastRenderHandler keeps recently drawn textures at full resolution and
// drops mips from textures that have not been drawn for a while. It always
// has an opinion and is the fallback when no other handler claims a texture.
type LastRenderHandler struct{}

func (LastRenderHandler) WantedMips(t *Texture, _ []ViewInfo, _ float32, lodAllowed int, now float64) int {
	since := now - t.LastRenderTime
	switch {
	case since < lastRenderFullMipsTime:
		return lodAllowed
	case since < lastRenderReducedMipsTime:
		return lodAllowed - 1
	default:
		return 0
	}
}

// LevelForcedHandler streams in every texture a loaded level forces resident.
type LevelForcedHandler struct {
	mu     sync.RWMutex
	levels map[string]map[uuid.UUID]struct{}
}

func NewLevelForcedHandler() *LevelForcedHandler {
	return &LevelForcedHandler{levels: make(map[string]map[uuid.UUID]struct{})}
}

// SetLevel replaces the textures forced by level. An empty list unloads it.
func (h *LevelForcedHandler) SetLevel(level string, textures []uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(textures) == 0 {
		delete(h.levels, level)
		return
	}
	set := make(map[uuid.UUID]struct{}, len(textures))
	for _, id := range textures {
		set[id] = struct{}{}
	}
	h.levels[level] = set
}

func (h *LevelForcedHandler) WantedMips(t *Texture, _ []ViewInfo, _ float32, lodAllowed int, _ float64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.levels {
		if _, ok := set[t.ID]; ok {
			return lodAllowed
		}
	}
	return Unhandled
}
