package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-sos-dispatch/internal/domain"
	"github.com/couchcryptid/storm-sos-dispatch/internal/observability"
)

// DefaultCallTimeout bounds each provider call when no timeout is configured.
const DefaultCallTimeout = 10 * time.Second

var errNoChannels = errors.New("no channels available")

// Pool tries its channels strictly in order until one delivers the text.
// Channels are never raced: a recipient must not get duplicate messages or calls.
type Pool struct {
	channels []Channel
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewPool creates a failover pool. A non-positive timeout uses DefaultCallTimeout.
func NewPool(channels []Channel, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Pool {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Pool{
		channels: channels,
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics,
	}
}

// Len returns the number of channels in the pool.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.channels)
}

// Deliver sends msg to one recipient. The first channel whose text succeeds
// wins; its voice call is then attempted best-effort. When every channel
// fails, the outcome carries the last failure as its reason.
func (p *Pool) Deliver(ctx context.Context, to domain.Recipient, msg Message) domain.Outcome {
	out := domain.Outcome{Status: domain.OutcomeFailed}
	lastErr := errNoChannels

	for _, ch := range p.channels {
		err := p.sendText(ctx, ch, to, msg.Text)
		if err != nil {
			kind := domain.FailureKind(err)
			out.Attempts = append(out.Attempts, domain.Attempt{Channel: ch.Name(), Kind: kind, Error: err.Error()})
			p.metrics.ChannelAttempts.WithLabelValues(ch.Name(), kind).Inc()
			p.logger.Warn("text send failed",
				"channel", ch.Name(),
				"recipient", to.Masked(),
				"kind", kind,
				"error", err,
			)
			lastErr = err
			continue
		}

		p.metrics.ChannelAttempts.WithLabelValues(ch.Name(), "success").Inc()
		out.Attempts = append(out.Attempts, domain.Attempt{Channel: ch.Name()})
		out.Status = domain.OutcomeDelivered
		out.Channel = ch.Name()

		if msg.Voice {
			if err := p.sendVoice(ctx, ch, to, msg.Speech, msg.VoiceLanguage); err != nil {
				out.VoiceError = err.Error()
				p.metrics.VoiceFailures.WithLabelValues(ch.Name()).Inc()
				p.logger.Warn("voice call failed after text delivered",
					"channel", ch.Name(),
					"recipient", to.Masked(),
					"error", err,
				)
			}
		}
		return out
	}

	out.Reason = lastErr.Error()
	return out
}

func (p *Pool) sendText(ctx context.Context, ch Channel, to domain.Recipient, body string) error {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return asChannelError(ch.Name(), ch.SendText(callCtx, to, body))
}

func (p *Pool) sendVoice(ctx context.Context, ch Channel, to domain.Recipient, speech, language string) error {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return asChannelError(ch.Name(), ch.SendVoice(callCtx, to, speech, language))
}

// asChannelError treats any error that is not already a *domain.ChannelError,
// such as a call timeout, as a transport failure.
func asChannelError(channel string, err error) error {
	if err == nil {
		return nil
	}
	var ce *domain.ChannelError
	if errors.As(err, &ce) {
		return err
	}
	return &domain.ChannelError{Channel: channel, Kind: domain.ErrChannelTransport, Err: err}
}
