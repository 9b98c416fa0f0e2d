package metricssvc

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/passify/backend/core"
)

// Collector exposes the service counters via prometheus.
type Collector struct {
	registry        *prometheus.Registry
	requestsCreated prometheus.Counter
	scoringFallback prometheus.Counter
	dispositions    *prometheus.CounterVec
}

var _ core.MetricsCollector = (*Collector)(nil)

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requestsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "passify_requests_created_total",
			Help: "Total number of requests created.",
		}),
		scoringFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "passify_scoring_fallback_total",
			Help: "Total number of request creations that fell back to the default score.",
		}),
		dispositions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passify_request_dispositions_total",
			Help: "Total number of admin dispositions, by resulting status.",
		}, []string{"status"}),
	}
	c.registry.MustRegister(c.requestsCreated, c.scoringFallback, c.dispositions)
	return c
}

func (c *Collector) RequestCreated()  { c.requestsCreated.Inc() }
func (c *Collector) ScoringFallback() { c.scoringFallback.Inc() }

func (c *Collector) RequestDisposed(status string) {
	c.dispositions.WithLabelValues(status).Inc()
}

// Handler serves the scrape endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
