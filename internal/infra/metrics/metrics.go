package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服務自己的 registry，測試時可各自建立互不干擾
// nil *Metrics 的方法皆為 no-op
type Metrics struct {
	registry          *prometheus.Registry
	orderMutations    *prometheus.CounterVec
	assistantRequests *prometheus.CounterVec
	catalogSearches   *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		orderMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_mutations_total",
			Help:      "Order list mutations by operation.",
		}, []string{"operation"}),
		assistantRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assistant_requests_total",
			Help:      "Assistant round trips by outcome.",
		}, []string{"outcome"}),
		catalogSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_searches_total",
			Help:      "Catalog searches by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.orderMutations, m.assistantRequests, m.catalogSearches, m.httpRequests)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) OrderMutation(operation string) {
	if m == nil {
		return
	}
	m.orderMutations.WithLabelValues(operation).Inc()
}

func (m *Metrics) AssistantRequest(outcome string) {
	if m == nil {
		return
	}
	m.assistantRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CatalogSearch(outcome string) {
	if m == nil {
		return
	}
	m.catalogSearches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) HTTPRequest(method, route, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
}
