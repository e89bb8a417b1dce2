package streaming

// Stats are counted over one full pass of the round robin.
type Stats struct {
	StreamingTextures          int
	RequestsInCancelationPhase int
	RequestsInUpdatePhase      int
	RequestsInFinalizePhase    int
	IntermediateTextures       int
	IntermediateTexturesSize   int64
	StreamingTexturesSize      int64
	StreamingTexturesMaxSize   int64

	MipCountIncreaseRequestsInFlight int
}

func (s *Stats) add(o Stats) {
	s.StreamingTextures += o.StreamingTextures
	s.RequestsInCancelationPhase += o.RequestsInCancelationPhase
	s.RequestsInUpdatePhase += o.RequestsInUpdatePhase
	s.RequestsInFinalizePhase += o.RequestsInFinalizePhase
	s.IntermediateTextures += o.IntermediateTextures
	s.IntermediateTexturesSize += o.IntermediateTexturesSize
	s.StreamingTexturesSize += o.StreamingTexturesSize
	s.StreamingTexturesMaxSize += o.StreamingTexturesMaxSize
	s.MipCountIncreaseRequestsInFlight += o.MipCountIncreaseRequestsInFlight
}
