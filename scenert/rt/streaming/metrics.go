package streaming

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports the scheduler state. A nil *Metrics records nothing.
type Metrics struct {
	textures          prometheus.Gauge
	requests          *prometheus.GaugeVec
	intermediateBytes prometheus.Gauge
	residentBytes     prometheus.Gauge
	maxBytes          prometheus.Gauge
	frameBytes        prometheus.Gauge
	totalBytes        prometheus.Counter
	fudgeFactor       prometheus.Gauge
	enqueueFailures   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		textures: f.NewGauge(prometheus.GaugeOpts{
			Name: "streaming_textures",
			Help: "The number of textures eligible for streaming.",
		}),
		requests: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "streaming_requests",
			Help: "Mip change requests in flight per phase.",
		}, []string{"phase"}),
		intermediateBytes: f.NewGauge(prometheus.GaugeOpts{
			Name: "streaming_intermediate_bytes",
			Help: "Size of the textures being built by in flight requests.",
		}),
		residentBytes: f.NewGauge(prometheus.GaugeOpts{
			Name: "streaming_resident_bytes",
			Help: "Size of the resident mips of streaming textures.",
		}),
		maxBytes: f.NewGauge(prometheus.GaugeOpts{
			Name: "streaming_max_bytes",
			Help: "Size of streaming textures with every allowed mip resident.",
		}),
		frameBytes: f.NewGauge(prometheus.GaugeOpts{
			Name: "streaming_request_bytes_frame",
			Help: "Bytes requested during the last tick.",
		}),
		totalBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "streaming_request_bytes_total",
			Help: "Bytes requested since start.",
		}),
		fudgeFactor: f.NewGauge(prometheus.GaugeOpts{
			Name: "streaming_fudge_factor",
			Help: "Distance scale applied by the view based handler.",
		}),
		enqueueFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "streaming_enqueue_failures_total",
			Help: "Mip change requests the backend refused.",
		}),
	}
}

func (m *Metrics) tickDone(s *Scheduler) {
	if m == nil {
		return
	}
	st := s.stats
	m.textures.Set(float64(st.StreamingTextures))
	m.requests.WithLabelValues("cancelation").Set(float64(st.RequestsInCancelationPhase))
	m.requests.WithLabelValues("update").Set(float64(st.RequestsInUpdatePhase))
	m.requests.WithLabelValues("finalize").Set(float64(st.RequestsInFinalizePhase))
	m.intermediateBytes.Set(float64(st.IntermediateTexturesSize))
	m.residentBytes.Set(float64(st.StreamingTexturesSize))
	m.maxBytes.Set(float64(st.StreamingTexturesMaxSize))
	m.frameBytes.Set(float64(s.frameBytes))
	m.totalBytes.Add(float64(s.frameBytes))
	m.fudgeFactor.Set(float64(s.fudge))
}

func (m *Metrics) enqueueFailed() {
	if m == nil {
		return
	}
	m.enqueueFailures.Inc()
}
