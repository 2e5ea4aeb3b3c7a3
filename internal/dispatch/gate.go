package dispatch

import "github.com/couchcryptid/storm-sos-dispatch/internal/domain"

// Gate short-circuits dispatch into simulated outcomes when no provider
// account is configured. The decision is made once at startup.
type Gate struct {
	configured bool
}

// NewGate returns a gate that is active (simulating) unless configured is true.
func NewGate(configured bool) Gate {
	return Gate{configured: configured}
}

// Active reports whether dispatch is simulated.
func (g Gate) Active() bool {
	return !g.configured
}

func simulatedOutcome() domain.Outcome {
	return domain.Outcome{Status: domain.OutcomeSimulated}
}
