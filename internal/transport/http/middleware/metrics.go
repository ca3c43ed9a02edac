package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetricsOptions tunes the request instrumentation collectors.
type HTTPMetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
	Subsystem  string
	Buckets    []float64
}

// HTTPMetrics holds the per-request Prometheus collectors.
type HTTPMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewHTTPMetrics builds and registers the request collectors. Registration
// tolerates a collector that is already present so repeated construction in
// tests does not fail.
func NewHTTPMetrics(opts HTTPMetricsOptions) (*HTTPMetrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "confess"
	}
	subsystem := opts.Subsystem
	if subsystem == "" {
		subsystem = "http"
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	labels := []string{"method", "route", "status"}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "requests_total",
		Help:      "HTTP requests by method, route, and status code.",
	}, labels)
	registered, err := registerOrExisting(reg, requests)
	if err != nil {
		return nil, fmt.Errorf("register requests collector: %w", err)
	}
	requests, ok := registered.(*prometheus.CounterVec)
	if !ok {
		return nil, fmt.Errorf("existing requests collector has unexpected type %T", registered)
	}

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds by method, route, and status code.",
		Buckets:   buckets,
	}, labels)
	registered, err = registerOrExisting(reg, duration)
	if err != nil {
		return nil, fmt.Errorf("register duration collector: %w", err)
	}
	duration, ok = registered.(*prometheus.HistogramVec)
	if !ok {
		return nil, fmt.Errorf("existing duration collector has unexpected type %T", registered)
	}

	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "in_flight_requests",
		Help:      "Requests currently being served.",
	})
	registered, err = registerOrExisting(reg, inFlight)
	if err != nil {
		return nil, fmt.Errorf("register inflight collector: %w", err)
	}
	gauge, ok := registered.(prometheus.Gauge)
	if !ok {
		return nil, fmt.Errorf("existing inflight collector has unexpected type %T", registered)
	}

	return &HTTPMetrics{Requests: requests, Duration: duration, InFlight: gauge}, nil
}

// registerOrExisting registers the collector, returning the already
// registered instance when one with the same descriptor exists.
func registerOrExisting(reg prometheus.Registerer, collector prometheus.Collector) (prometheus.Collector, error) {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return already.ExistingCollector, nil
		}
		return nil, err
	}
	return collector, nil
}

// Handler records the collectors around each request. The route label uses
// the registered pattern so path parameters do not explode cardinality.
func (m *HTTPMetrics) Handler() gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		m.InFlight.Inc()
		defer m.InFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		labels := prometheus.Labels{
			"method": c.Request.Method,
			"route":  route,
			"status": strconv.Itoa(c.Writer.Status()),
		}
		m.Requests.With(labels).Inc()
		m.Duration.With(labels).Observe(time.Since(start).Seconds())
	}
}
