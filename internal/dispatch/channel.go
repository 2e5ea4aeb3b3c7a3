package dispatch

import (
	"context"

	"github.com/couchcryptid/storm-sos-dispatch/internal/domain"
)

// Channel is a single messaging-provider account able to text and call one recipient.
//
// Implementations should return a *domain.ChannelError so the failure kind
// survives into the outcome; any other error is treated as a transport failure.
type Channel interface {
	// Name identifies the account in outcomes, logs and metrics, e.g. "primary".
	Name() string

	// SendText delivers a short alert message.
	SendText(ctx context.Context, to domain.Recipient, body string) error

	// SendVoice places a call that speaks text in the given language.
	SendVoice(ctx context.Context, to domain.Recipient, speech, language string) error
}

// Message is the rendered alert for one dispatch, identical for every recipient.
type Message struct {
	Text          string
	Speech        string
	VoiceLanguage string
	Voice         bool
}
