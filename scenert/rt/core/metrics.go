package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const shadowTypeLabel = "shadow_type"

// Metrics exports the size of the interaction graph. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	primitives   prometheus.Gauge
	lights       *prometheus.GaugeVec
	interactions *prometheus.GaugeVec
	uncached     prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		primitives: f.NewGauge(prometheus.GaugeOpts{
			Name: "scene_primitives",
			Help: "The number of attached primitives.",
		}),
		lights: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scene_lights",
			Help: "The number of attached lights per light list.",
		}, []string{"list"}),
		interactions: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scene_light_interactions",
			Help: "The number of light/primitive interactions.",
		}, []string{shadowTypeLabel}),
		uncached: f.NewGauge(prometheus.GaugeOpts{
			Name: "scene_uncached_static_lighting_interactions",
			Help: "Static interactions waiting for a lighting rebuild.",
		}),
	}
}

func (m *Metrics) primitivesChanged(s *Scene) {
	if m == nil {
		return
	}
	m.primitives.Set(float64(s.NumPrimitives()))
}

func (m *Metrics) lightsChanged(s *Scene) {
	if m == nil {
		return
	}
	m.lights.WithLabelValues("static").Set(float64(len(s.staticLights)))
	m.lights.WithLabelValues("dynamic").Set(float64(len(s.dynamicLights)))
}

func (m *Metrics) interactionCreated(in *Interaction) {
	if m == nil {
		return
	}
	m.interactions.WithLabelValues(in.class.Type.String()).Inc()
	if in.class.Uncached {
		m.uncached.Inc()
	}
}

func (m *Metrics) interactionDestroyed(in *Interaction) {
	if m == nil {
		return
	}
	m.interactions.WithLabelValues(in.class.Type.String()).Dec()
	if in.class.Uncached {
		m.uncached.Dec()
	}
}
