package scenecore

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gekko3d/scenecore/scenert/rt/core"
	"github.com/gekko3d/scenecore/scenert/rt/streaming"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsModule registers the scene and streaming metrics. Install it after
// the modules it measures.
type MetricsModule struct {
	// Registry defaults to a new registry, installed as a resource.
	Registry *prometheus.Registry
	// Addr serves /metrics when set.
	Addr string
}

func (m MetricsModule) Install(app *App, cmd *Commands) {
	w := mustWorld(app, "MetricsModule")

	reg := m.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	cmd.AddResources(reg)

	w.scene.SetMetrics(core.NewMetrics(reg))
	if w.streaming != nil {
		w.streaming.SetMetrics(streaming.NewMetrics(reg))
	}

	if m.Addr != "" {
		serveMetrics(app, m.Addr, reg)
	}
}

func serveMetrics(app *App, addr string, reg *prometheus.Registry) {
	var mux http.ServeMux
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: &mux}

	log := app.Logger()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server on %s: %v", addr, err)
		}
	}()
	app.onShutdown(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warnf("metrics server shutdown: %v", err)
		}
	})
	log.Infof("serving metrics on %s/metrics", addr)
}
