package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-sos-dispatch/internal/domain"
	"github.com/couchcryptid/storm-sos-dispatch/internal/observability"
	"github.com/google/uuid"
)

// Options parameterise a Dispatcher.
type Options struct {
	MinRecipientLength int
	VoiceEnabled       bool
	VoiceLanguage      string
}

// Dispatcher sends one alert burst per recipient for a single trigger event.
// It holds no per-dispatch state and is safe for concurrent use.
type Dispatcher struct {
	pool    *Pool
	gate    Gate
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Dispatcher. The pool may be nil or empty only when the gate is active.
func New(pool *Pool, gate Gate, opts Options, logger *slog.Logger, metrics *observability.Metrics) (*Dispatcher, error) {
	if !gate.Active() && pool.Len() == 0 {
		return nil, errors.New("dispatch: gate reports configured channels but the pool is empty")
	}
	if opts.MinRecipientLength <= 0 {
		opts.MinRecipientLength = domain.DefaultMinRecipientLength
	}
	if opts.VoiceLanguage == "" {
		opts.VoiceLanguage = domain.DefaultVoiceLanguage
	}

	if gate.Active() {
		metrics.SimulationMode.Set(1)
	} else {
		metrics.SimulationMode.Set(0)
	}

	return &Dispatcher{
		pool:    pool,
		gate:    gate,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Simulated reports whether dispatches skip the provider entirely.
func (d *Dispatcher) Simulated() bool {
	return d.gate.Active()
}

// RecipientBudget is the longest one recipient can take: every channel's text
// call timing out, or all but the last failing before a text and a voice call
// succeed. It is zero in simulation mode.
func (d *Dispatcher) RecipientBudget() time.Duration {
	if d.gate.Active() {
		return 0
	}
	calls := d.pool.Len()
	if d.opts.VoiceEnabled {
		calls++
	}
	return time.Duration(calls) * d.pool.timeout
}

// Dispatch alerts every valid recipient about ac and returns a report with one
// outcome per valid recipient. Invalid recipients are dropped. When none
// remain, the report is empty and the error is domain.ErrNoValidRecipients.
//
// Cancellation is honoured only before the first send. Once sending starts
// every recipient is attempted; per-call timeouts bound the total latency.
func (d *Dispatcher) Dispatch(ctx context.Context, ac domain.AlertContext, recipients []string) (domain.Report, error) {
	start := time.Now()
	report := domain.Report{
		ID:        uuid.NewString(),
		Context:   ac,
		Outcomes:  make(map[domain.Recipient]domain.Outcome),
		Simulated: d.gate.Active(),
		StartedAt: domain.Now(),
	}

	valid, dropped := domain.FilterRecipients(recipients, d.opts.MinRecipientLength)
	report.Recipients = valid
	report.Dropped = dropped
	if dropped > 0 {
		d.logger.Debug("dropped invalid recipients", "dispatch_id", report.ID, "dropped", dropped)
	}

	if len(valid) == 0 {
		report.FinishedAt = domain.Now()
		d.metrics.Dispatches.WithLabelValues("no_recipients").Inc()
		d.logger.Warn("dispatch skipped: no valid recipients", "dispatch_id", report.ID, "supplied", len(recipients))
		return report, domain.ErrNoValidRecipients
	}

	if err := ctx.Err(); err != nil {
		report.FinishedAt = domain.Now()
		d.metrics.Dispatches.WithLabelValues("cancelled").Inc()
		return report, err
	}

	msg := Message{
		Text:          domain.ComposeText(ac),
		Speech:        domain.ComposeSpeech(ac),
		VoiceLanguage: d.opts.VoiceLanguage,
		Voice:         d.opts.VoiceEnabled,
	}

	d.logger.Info("dispatch started",
		"dispatch_id", report.ID,
		"level", ac.Level.String(),
		"location", ac.Location,
		"recipients", len(valid),
		"simulated", report.Simulated,
	)

	sendCtx := context.WithoutCancel(ctx)
	for _, r := range valid {
		var outcome domain.Outcome
		if d.gate.Active() {
			outcome = simulatedOutcome()
		} else {
			outcome = d.pool.Deliver(sendCtx, r, msg)
		}
		report.Outcomes[r] = outcome
		d.metrics.RecipientOutcomes.WithLabelValues(string(outcome.Status)).Inc()
		d.logger.Info("recipient dispatched",
			"dispatch_id", report.ID,
			"recipient", r.Masked(),
			"outcome", outcome.Status,
			"channel", outcome.Channel,
			"reason", outcome.Reason,
		)
	}

	report.FinishedAt = domain.Now()
	d.metrics.Dispatches.WithLabelValues("dispatched").Inc()
	d.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	d.logger.Info("dispatch complete",
		"dispatch_id", report.ID,
		"delivered", report.Count(domain.OutcomeDelivered),
		"simulated", report.Count(domain.OutcomeSimulated),
		"failed", report.Count(domain.OutcomeFailed),
	)
	return report, nil
}
