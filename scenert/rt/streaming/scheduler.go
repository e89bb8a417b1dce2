package streaming

import (
	"fmt"
	"runtime"
	"slices"
)

const (
	// NumTicksForFullIteration is how many ticks one pass over all textures takes.
	NumTicksForFullIteration = 10
	// MaxPerFrameRequestLimit is the default per tick byte budget of new requests.
	MaxPerFrameRequestLimit = 3 * 1024 * 1024

	// Memory stats lag behind requests, so a stop limit hit suspends the two
	// following ticks. The counter is decremented before it is tested.
	suspendTicksOnStopLimit = 3

	minFudgeFactor = 1
	maxFudgeFactor = 10
	maxFudgeStep   = 0.1
)

// Config holds the scheduler tunables. Memory limits are in bytes.
type Config struct {
	HysteresisLimit     int64
	DropMipLevelsLimit  int64
	StopIncreasingLimit int64
	StopStreamingLimit  int64

	MinRequestedMipsToConsider    int
	MinTimeToGuaranteeMinMipCount float64
	MaxTimeToGuaranteeMinMipCount float64

	FudgeFactorIncreaseRateOfChange float32
	FudgeFactorDecreaseRateOfChange float32

	MinResidentMipCount int
	MaxTextureMipCount  int

	MaxPerFrameRequestBytes int64

	UseTextureStreaming  bool
	OnlyStreamInTextures bool
}

const mb = 1024 * 1024

func DefaultConfig() Config {
	return Config{
		HysteresisLimit:                 20 * mb,
		DropMipLevelsLimit:              16 * mb,
		StopIncreasingLimit:             12 * mb,
		StopStreamingLimit:              8 * mb,
		MinRequestedMipsToConsider:      11,
		MinTimeToGuaranteeMinMipCount:   2,
		MaxTimeToGuaranteeMinMipCount:   12,
		FudgeFactorIncreaseRateOfChange: 0.5,
		FudgeFactorDecreaseRateOfChange: -0.4,
		MinResidentMipCount:             7,
		MaxTextureMipCount:              13,
		MaxPerFrameRequestBytes:         MaxPerFrameRequestLimit,
		UseTextureStreaming:             true,
	}
}

// MemoryStats reports the texture pool. ok is false when the backend cannot
// tell, which disables every memory based gate.
type MemoryStats interface {
	TextureMemoryStats() (allocated, available int64, ok bool)
}

type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

// Scheduler walks a slice of the registered textures every tick and issues
// mip change requests toward the count the handlers want.
type Scheduler struct {
	cfg      Config
	handlers []Handler
	fallback LastRenderHandler
	memory   MemoryStats
	log      Logger
	metrics  *Metrics

	textures []*Texture
	cursor   int
	views    []ViewInfo
	now      float64

	numIterations       int
	disregardWorldTicks int
	suspendTicks        int
	fudge               float32
	fudgeRate           float32
	increaseBlocked     bool

	useMinRequestLimit bool
	lastLevelChange    float64

	running         Stats
	stats           Stats
	frameBytes      int64
	totalFrameBytes int64
}

// NewScheduler creates a scheduler. memory may be nil.
func NewScheduler(cfg Config, memory MemoryStats, log Logger) *Scheduler {
	return &Scheduler{
		cfg:           cfg,
		memory:        memory,
		log:           log,
		fudge:         minFudgeFactor,
		numIterations: 1,
	}
}

func (s *Scheduler) SetMetrics(m *Metrics) { s.metrics = m }

func (s *Scheduler) AddHandler(h Handler) {
	s.handlers = append(s.handlers, h)
}

func (s *Scheduler) RemoveHandler(h Handler) {
	s.handlers = slices.DeleteFunc(s.handlers, func(o Handler) bool { return o == h })
}

// Add registers a texture at the end of the round robin order.
func (s *Scheduler) Add(t *Texture) {
	if t.Resource == nil {
		panic(fmt.Sprintf("streaming: texture %q has no resource", t.Name))
	}
	if slices.Contains(s.textures, t) {
		panic(fmt.Sprintf("streaming: texture %q registered twice", t.Name))
	}
	s.textures = append(s.textures, t)
}

// Remove unregisters a texture, keeping the cursor on the next texture to visit.
func (s *Scheduler) Remove(t *Texture) {
	i := slices.Index(s.textures, t)
	if i < 0 {
		panic(fmt.Sprintf("streaming: texture %q is not registered", t.Name))
	}
	s.textures = slices.Delete(s.textures, i, i+1)
	if i < s.cursor {
		s.cursor--
	}
}

func (s *Scheduler) Len() int { return len(s.textures) }

// Now is the scheduler clock, the sum of all tick deltas.
func (s *Scheduler) Now() float64 { return s.now }

func (s *Scheduler) FudgeFactor() float32 { return s.fudge }

// Stats are the counters of the last complete pass over all textures.
func (s *Scheduler) Stats() Stats { return s.stats }

// FrameRequestBytes is the byte delta requested by the last tick.
func (s *Scheduler) FrameRequestBytes() int64 { return s.frameBytes }

func (s *Scheduler) TotalRequestBytes() int64 { return s.totalFrameBytes }

// AddViewInformation adds a view for the next tick. Views are dropped after every tick.
func (s *Scheduler) AddViewInformation(view ViewInfo) {
	s.views = append(s.views, view)
}

// SetNumIterationsForNextFrame runs n passes on the next tick only.
func (s *Scheduler) SetNumIterationsForNextFrame(n int) {
	s.numIterations = max(1, n)
}

// NotifyLevelChange prioritizes non world textures for one full iteration
// and holds back small increase requests until the level has settled.
func (s *Scheduler) NotifyLevelChange() {
	s.disregardWorldTicks = NumTicksForFullIteration
	s.lastLevelChange = s.now
	s.useMinRequestLimit = true
}

// SetDisregardWorldResourcesForFrames skips world textures for the next n ticks.
func (s *Scheduler) SetDisregardWorldResourcesForFrames(n int) {
	s.disregardWorldTicks = n
}

// Tick advances the clock by dt seconds and processes the next slice.
func (s *Scheduler) Tick(dt float64) {
	s.now += dt
	for range s.numIterations {
		s.iterate(dt)
	}
	s.numIterations = 1
	s.views = s.views[:0]
}

func (s *Scheduler) memoryStats() (int64, bool) {
	if s.memory == nil {
		return 0, false
	}
	_, available, ok := s.memory.TextureMemoryStats()
	return available, ok
}

func (s *Scheduler) iterate(dt float64) {
	if s.cursor >= len(s.textures) {
		s.cursor = 0
	}
	if s.cursor == 0 {
		s.running = Stats{}
	}

	if s.disregardWorldTicks > 0 {
		s.disregardWorldTicks--
	}
	available, memOK := s.memoryStats()
	if s.suspendTicks > 0 {
		s.suspendTicks--
	}
	s.fudge = min(max(s.fudge+s.fudgeRate*float32(min(maxFudgeStep, dt)), minFudgeFactor), maxFudgeFactor)

	f := frame{available: available, memOK: memOK}
	toProcess := max(1, len(s.textures)/NumTicksForFullIteration)
	for s.cursor < len(s.textures) && toProcess > 0 {
		toProcess--
		t := s.textures[s.cursor]
		s.cursor++
		s.process(t, &f)
		if f.budgetExhausted {
			break
		}
	}

	if memOK {
		switch {
		case f.available <= s.cfg.DropMipLevelsLimit:
			s.fudgeRate = s.cfg.FudgeFactorIncreaseRateOfChange
		case f.available > s.cfg.HysteresisLimit:
			s.fudgeRate = s.cfg.FudgeFactorDecreaseRateOfChange
		default:
			s.fudgeRate = 0
		}
	}

	s.running.add(f.stats)
	if s.cursor >= len(s.textures) {
		s.stats = s.running
		if s.useMinRequestLimit {
			since := s.now - s.lastLevelChange
			if (since > s.cfg.MinTimeToGuaranteeMinMipCount && f.stats.MipCountIncreaseRequestsInFlight == 0) ||
				since > s.cfg.MaxTimeToGuaranteeMinMipCount {
				s.useMinRequestLimit = false
			}
		}
	}
	s.frameBytes = f.requestBytes
	s.totalFrameBytes += f.requestBytes
	s.metrics.tickDone(s)
}

// frame is the state of one iteration.
type frame struct {
	available       int64
	memOK           bool
	requestBytes    int64
	budgetExhausted bool
	stats           Stats
}

func (s *Scheduler) updateIncreaseGate(available int64) {
	if available <= s.cfg.StopIncreasingLimit {
		s.increaseBlocked = true
	} else if available > s.cfg.HysteresisLimit {
		s.increaseBlocked = false
	}
}

func (s *Scheduler) process(t *Texture, f *frame) {
	if s.disregardWorldTicks > 0 && t.Group.isWorld() {
		return
	}
	res := t.Resource
	numMips := res.NumMips()
	if !t.Streamable || t.NeverStream || numMips <= s.cfg.MinResidentMipCount {
		return
	}
	maxResident := max(1, min(numMips-t.LODBias, s.cfg.MaxTextureMipCount))
	f.stats.StreamingTextures++
	f.stats.StreamingTexturesSize += res.SizeForMips(res.ResidentMips())
	f.stats.StreamingTexturesMaxSize += res.SizeForMips(maxResident)

	if !res.IsReadyForStreaming() {
		return
	}

	requested := s.wantedMips(t)

	// never below what the packed mip tail holds
	requested = max(requested, numMips-res.MipTailBaseIndex())

	if f.memOK && f.available < s.cfg.StopStreamingLimit {
		s.suspendTicks = suspendTicksOnStopLimit
	}
	allowRequests := s.suspendTicks == 0

	safeToRequest := !res.UpdateStreamingStatus()
	status := res.Status()
	resident := res.ResidentMips()
	cancelPending := status == StatusCancelPending

	if !safeToRequest && res.RequestedMips() != requested && !cancelPending {
		inFlight := res.RequestedMips()
		// a request may only be cancelled when the new count lies between
		// the resident count and the one in flight
		if (requested < inFlight && requested >= resident) ||
			(requested > inFlight && requested <= resident) {
			cancelPending = res.CancelPendingMipChange()
		}
	}

	switch {
	case cancelPending:
		f.stats.RequestsInCancelationPhase++
	case status == StatusRequestPending:
		f.stats.RequestsInUpdatePhase++
	case status == StatusFinalizing:
		f.stats.RequestsInFinalizePhase++
	}
	if status == StatusRequestPending || status == StatusFinalizing || status == StatusCancelPending {
		f.stats.IntermediateTexturesSize += res.SizeForMips(res.RequestedMips())
		f.stats.IntermediateTextures++
		if res.RequestedMips() > resident {
			f.stats.MipCountIncreaseRequestsInFlight++
		}
	}

	if !safeToRequest || !allowRequests || requested == resident {
		return
	}
	if f.memOK {
		s.updateIncreaseGate(f.available)
	}
	if requested > resident {
		if (f.memOK && s.increaseBlocked) ||
			(s.useMinRequestLimit && requested < s.cfg.MinRequestedMipsToConsider) {
			return
		}
	}

	mips, delta, shrunk := s.fitBudget(res, resident, requested, f.requestBytes)
	if mips == resident {
		f.budgetExhausted = true
		return
	}
	// a shrunk increase is held to the same minimum as the full one
	if mips > resident && s.useMinRequestLimit && mips < s.cfg.MinRequestedMipsToConsider {
		f.budgetExhausted = true
		return
	}
	if err := res.BeginUpdateMipCount(mips); err != nil {
		s.metrics.enqueueFailed()
		if s.log != nil {
			s.log.Warnf("streaming: %s: mip change %d -> %d: %v", t.Name, resident, mips, err)
		}
		return
	}
	if s.log != nil {
		s.log.Debugf("streaming: %s: mip change %d -> %d (%d bytes)", t.Name, resident, mips, delta)
	}
	f.requestBytes += delta
	f.available -= res.SizeForMips(mips) - res.SizeForMips(resident)
	if shrunk {
		f.budgetExhausted = true
	}
}

// wantedMips is the handler maximum clamped to what the LOD settings allow.
func (s *Scheduler) wantedMips(t *Texture) int {
	numMips := t.Resource.NumMips()
	lodAllowed := max(1, numMips-t.LODBias)

	requested := Unhandled
	if !t.ForceMipsResident && s.cfg.UseTextureStreaming && !s.cfg.OnlyStreamInTextures {
		for _, h := range s.handlers {
			requested = max(requested, h.WantedMips(t, s.views, s.fudge, lodAllowed, s.now))
		}
		if requested == Unhandled {
			requested = s.fallback.WantedMips(t, s.views, s.fudge, lodAllowed, s.now)
		}
	} else {
		requested = lodAllowed
	}

	minAllowed := min(lodAllowed, s.cfg.MinResidentMipCount)
	maxAllowed := min(lodAllowed, s.cfg.MaxTextureMipCount)
	return min(max(requested, minAllowed), maxAllowed)
}

// fitBudget moves requested toward resident until the byte delta fits into
// what is left of the frame budget. mips == resident means nothing fits.
func (s *Scheduler) fitBudget(res Resource, resident, requested int, used int64) (mips int, delta int64, shrunk bool) {
	step := 1
	if requested < resident {
		step = -1
	}
	residentSize := res.SizeForMips(resident)
	for mips = requested; mips != resident; mips -= step {
		delta = res.SizeForMips(mips) - residentSize
		if delta < 0 {
			delta = -delta
		}
		if used+delta <= s.cfg.MaxPerFrameRequestBytes {
			return mips, delta, mips != requested
		}
	}
	return resident, 0, false
}

// BlockTillAllRequestsFinished polls every texture until its request is done.
// Textures still being created are left pending.
func (s *Scheduler) BlockTillAllRequestsFinished() {
	for _, t := range s.textures {
		for t.Resource.UpdateStreamingStatus() {
			runtime.Gosched()
		}
		if st := t.Resource.Status(); st != StatusIdle && st != StatusPendingInit {
			panic(fmt.Sprintf("streaming: texture %q is %s after draining", t.Name, st))
		}
	}
}
