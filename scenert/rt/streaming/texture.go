// Package streaming decides how many mip levels of every streamable texture
// should be resident and drives an asynchronous backend toward that count
// under a memory budget.
package streaming

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Status is the state of the mip change request of one resource.
type Status uint8

const (
	// StatusPendingInit means the resource is still being created for the first time.
	StatusPendingInit Status = iota
	StatusIdle
	StatusRequestPending
	StatusFinalizing
	StatusCancelPending
)

func (s Status) String() string {
	switch s {
	case StatusPendingInit:
		return "pending_init"
	case StatusIdle:
		return "idle"
	case StatusRequestPending:
		return "request_pending"
	case StatusFinalizing:
		return "finalizing"
	case StatusCancelPending:
		return "cancel_pending"
	}
	return "unknown"
}

// Resource is the backend side of a streamable texture. Mip change requests
// are fire and forget; their progress is observed by polling UpdateStreamingStatus.
type Resource interface {
	NumMips() int
	// MipTailBaseIndex is the first mip packed into the tail block.
	MipTailBaseIndex() int
	ResidentMips() int
	RequestedMips() int
	// SizeForMips is the memory used with the n smallest mips resident.
	SizeForMips(n int) int64

	IsReadyForStreaming() bool
	// UpdateStreamingStatus advances the in-flight request and reports
	// whether the resource is still busy.
	UpdateStreamingStatus() bool
	Status() Status
	// CancelPendingMipChange reports whether a cancellation is now pending.
	CancelPendingMipChange() bool
	BeginUpdateMipCount(mips int) error
}

// LODGroup classifies textures for the LOD bias and for world texture suppression.
type LODGroup uint8

const (
	GroupWorld LODGroup = iota
	GroupWorldNormalMap
	GroupCharacter
	GroupEffects
	GroupUI
)

func (g LODGroup) isWorld() bool {
	return g == GroupWorld || g == GroupWorldNormalMap
}

// Instance is one placement of a texture in the world.
type Instance struct {
	Center mgl32.Vec3
	Radius float32
	// TexelFactor is the texel density across the bounding sphere diameter.
	TexelFactor float32
}

// Texture is the scheduler state of a streamable texture.
type Texture struct {
	ID       uuid.UUID
	Name     string
	Group    LODGroup
	LODBias  int
	Resource Resource

	Streamable        bool
	NeverStream       bool
	ForceMipsResident bool

	// LastRenderTime is in scheduler time, see Scheduler.Now.
	LastRenderTime float64
	Instances      []Instance
}

// ViewInfo describes one view the wanted mips are computed for.
type ViewInfo struct {
	Origin        mgl32.Vec3
	ScreenSize    float32
	FOVScreenSize float32
}
