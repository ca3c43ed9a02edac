package usecase

// Login outcome labels recorded on security metrics.
const (
	LoginOutcomeSuccess = "success"
	LoginOutcomeFailure = "failure"
	LoginOutcomeLocked  = "locked"
	LoginOutcomeExpired = "expired"
)

// SecurityMetrics records counters for security-relevant outcomes. The
// telemetry provider implements it; services fall back to a no-op when none
// is injected.
type SecurityMetrics interface {
	RecordLoginAttempt(outcome string)
	RecordLockout()
	RecordResetRequest()
}

type nopMetrics struct{}

func (nopMetrics) RecordLoginAttempt(string) {}
func (nopMetrics) RecordLockout()            {}
func (nopMetrics) RecordResetRequest()       {}
