// Package metrics exposes counters for the access-control core so an
// embedding host can scrape them.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics defines the counters the access module emits.
type Metrics interface {
	IncDecision(hook, verdict string)
	IncEventFiltered(outcome string)
	IncPortalRequest(device string)
	IncPortalResult(result string)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncDecision(string, string) {}
func (Noop) IncEventFiltered(string)    {}
func (Noop) IncPortalRequest(string)    {}
func (Noop) IncPortalResult(string)     {}

// Prom implements Metrics backed by Prometheus counters.
type Prom struct {
	decisions      *prometheus.CounterVec
	eventsFiltered *prometheus.CounterVec
	portalRequests *prometheus.CounterVec
	portalResults  *prometheus.CounterVec
	once           sync.Once
	registerer     prometheus.Registerer
}

// NewProm creates counters registered on the default registry.
func NewProm(namespace string) *Prom {
	return NewPromWith(namespace, prometheus.DefaultRegisterer)
}

// NewPromWith creates counters registered on reg.
func NewPromWith(namespace string, reg prometheus.Registerer) *Prom {
	p := &Prom{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Access-hook verdicts by hook and verdict",
		}, []string{"hook", "verdict"}),
		eventsFiltered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_filtered_total",
			Help:      "Subscription events admitted or blocked",
		}, []string{"outcome"}),
		portalRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "portal_requests_total",
			Help:      "Portal consent dialogs issued by device",
		}, []string{"device"}),
		portalResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "portal_results_total",
			Help:      "Portal consent outcomes",
		}, []string{"result"}),
		registerer: reg,
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		p.registerer.MustRegister(p.decisions, p.eventsFiltered, p.portalRequests, p.portalResults)
	})
}

func (p *Prom) IncDecision(hook, verdict string) {
	p.decisions.WithLabelValues(hook, verdict).Inc()
}

func (p *Prom) IncEventFiltered(outcome string) {
	p.eventsFiltered.WithLabelValues(outcome).Inc()
}

func (p *Prom) IncPortalRequest(device string) {
	p.portalRequests.WithLabelValues(device).Inc()
}

func (p *Prom) IncPortalResult(result string) {
	p.portalResults.WithLabelValues(result).Inc()
}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
