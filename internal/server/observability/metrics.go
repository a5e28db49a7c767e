// Package observability holds the Prometheus metrics of the auth server.
package observability

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth operation outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid_credentials"
	OutcomeConflict     = "conflict"
	OutcomeValidation   = "validation"
	OutcomePolicy       = "policy"
	OutcomeNotFound     = "not_found"
	OutcomeUnavailable  = "unavailable"
	OutcomeInvalidToken = "invalid_token"
	OutcomeError        = "error"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	AuthOperations *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all metrics on registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		AuthOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophauth_auth_operations_total",
				Help: "Auth operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophauth_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gophauth_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		registry: registry,
	}

	registry.MustRegister(m.AuthOperations, m.HTTPRequests, m.HTTPDuration)
	return m
}

// RegisterDB exports connection pool statistics of db.
func (m *Metrics) RegisterDB(db *sql.DB, name string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAuth counts one auth operation. A nil receiver is a no-op.
func (m *Metrics) ObserveAuth(operation string, err error) {
	if m == nil {
		return
	}
	m.AuthOperations.WithLabelValues(operation, Outcome(err)).Inc()
}

// Outcome classifies an operation error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, common.ErrorTransient):
		return OutcomeUnavailable
	case errors.Is(err, common.ErrInvalidToken):
		return OutcomeInvalidToken
	case errors.Is(err, common.ErrorUnauthorized):
		return OutcomeInvalid
	case errors.Is(err, common.ErrorConflict):
		return OutcomeConflict
	case errors.Is(err, common.ErrorValidation):
		return OutcomeValidation
	case errors.Is(err, common.ErrPolicyViolation):
		return OutcomePolicy
	case errors.Is(err, common.ErrorNotFound):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}
