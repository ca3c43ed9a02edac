package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arklim/confession-platform-api/internal/infra/config"
)

// Provider holds the service-level security counters. It satisfies
// usecase.SecurityMetrics.
type Provider struct {
	loginAttempts  *prometheus.CounterVec
	lockoutsTotal  prometheus.Counter
	resetRequested prometheus.Counter
}

// Attach configures telemetry collectors and returns a provider handle.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	loginAttempts := promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "confess",
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts partitioned by outcome",
	}, []string{"outcome"})

	lockouts := promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "confess",
		Name:      "account_lockouts_total",
		Help:      "Total number of account lockouts triggered by failed logins",
	})

	resets := promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "confess",
		Name:      "password_reset_requests_total",
		Help:      "Total number of password reset requests accepted",
	})

	return &Provider{
		loginAttempts:  loginAttempts,
		lockoutsTotal:  lockouts,
		resetRequested: resets,
	}, nil
}

// RecordLoginAttempt counts a login attempt by outcome label.
func (p *Provider) RecordLoginAttempt(outcome string) {
	if p == nil || p.loginAttempts == nil {
		return
	}
	p.loginAttempts.WithLabelValues(outcome).Inc()
}

// RecordLockout counts a triggered account lockout.
func (p *Provider) RecordLockout() {
	if p == nil || p.lockoutsTotal == nil {
		return
	}
	p.lockoutsTotal.Inc()
}

// RecordResetRequest counts an accepted password reset request.
func (p *Provider) RecordResetRequest() {
	if p == nil || p.resetRequested == nil {
		return
	}
	p.resetRequested.Inc()
}
