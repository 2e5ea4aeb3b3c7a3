//go:build twilio

package twilio

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/storm-sos-dispatch/internal/config"
	"github.com/couchcryptid/storm-sos-dispatch/internal/domain"
	"github.com/stretchr/testify/require"
)

// These tests hit the real Twilio API using test credentials and magic numbers,
// so nothing is delivered. Set TWILIO_TEST_SID and TWILIO_TEST_AUTH_TOKEN.
// Run with: go test -tags=twilio ./internal/adapter/twilio/ -v -count=1

const magicFrom = "+15005550006"

func smokeChannel(t *testing.T) *Channel {
	t.Helper()
	sid := os.Getenv("TWILIO_TEST_SID")
	token := os.Getenv("TWILIO_TEST_AUTH_TOKEN")
	if sid == "" || token == "" {
		t.Fatal("TWILIO_TEST_SID and TWILIO_TEST_AUTH_TOKEN must be set to run smoke tests")
	}
	cred := config.ChannelCredential{Name: "smoke", AccountSID: sid, AuthToken: token, From: magicFrom, Configured: true}
	return NewChannel(cred, DefaultBaseURL, 10*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_SendText(t *testing.T) {
	c := smokeChannel(t)
	err := c.SendText(context.Background(), "+14108675310", "SOS ALERT: smoke test")
	require.NoError(t, err)
}

func TestSmoke_SendText_InvalidRecipient(t *testing.T) {
	c := smokeChannel(t)
	// +15005550001 is Twilio's magic "invalid number" destination.
	err := c.SendText(context.Background(), "+15005550001", "SOS ALERT: smoke test")
	require.ErrorIs(t, err, domain.ErrChannelRecipientRejected)
}

func TestSmoke_BadCredentials(t *testing.T) {
	cred := config.ChannelCredential{Name: "smoke", AccountSID: "AC00000000000000000000000000000000", AuthToken: "bad", From: magicFrom}
	c := NewChannel(cred, DefaultBaseURL, 10*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := c.SendText(context.Background(), "+14108675310", "x")
	require.ErrorIs(t, err, domain.ErrChannelAuth)
}
