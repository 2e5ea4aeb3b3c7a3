package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSID         = "AC0123456789abcdef0123456789abcdef"
	testAuthToken   = "f00dfeedf00dfeedf00dfeedf00dfeed"
	testFrom        = "+15005550006"
	testMapboxToken = "pk.test-token"
)

func setPrimary(t *testing.T) {
	t.Helper()
	t.Setenv("TWILIO_PRIMARY_SID", testSID)
	t.Setenv("TWILIO_PRIMARY_AUTH_TOKEN", testAuthToken)
	t.Setenv("TWILIO_PRIMARY_FROM", testFrom)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "https://api.twilio.com/2010-04-01", cfg.TwilioBaseURL)
	assert.Equal(t, 10*time.Second, cfg.ChannelTimeout)
	assert.True(t, cfg.VoiceEnabled)
	assert.Equal(t, "hi-IN", cfg.VoiceLanguage)
	assert.Equal(t, 10, cfg.MinRecipientLength)
	assert.Equal(t, "models/risk_model.yaml", cfg.ClassifierModelPath)
	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
	assert.False(t, cfg.AuditEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "sos-dispatch-reports", cfg.KafkaAuditTopic)

	require.Len(t, cfg.Channels, 2)
	assert.Equal(t, "primary", cfg.Channels[0].Name)
	assert.Equal(t, "backup", cfg.Channels[1].Name)
	assert.Empty(t, cfg.ConfiguredChannels(), "no credentials means simulation mode")
}

func TestLoad_CustomEnv(t *testing.T) {
	setPrimary(t)
	t.Setenv("TWILIO_BACKUP_SID", "AC-backup")
	t.Setenv("TWILIO_BACKUP_AUTH_TOKEN", "backup-token")
	t.Setenv("TWILIO_BACKUP_FROM", "+15005550007")
	t.Setenv("TWILIO_BASE_URL", "http://localhost:4010/2010-04-01/")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("CHANNEL_TIMEOUT", "3s")
	t.Setenv("VOICE_ENABLED", "false")
	t.Setenv("VOICE_LANGUAGE", "en-IN")
	t.Setenv("DISPATCH_MIN_RECIPIENT_LENGTH", "5")
	t.Setenv("CLASSIFIER_MODEL_PATH", "/etc/sos/model.yaml")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")
	t.Setenv("AUDIT_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_AUDIT_TOPIC", "custom-audit")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "http://localhost:4010/2010-04-01", cfg.TwilioBaseURL)
	assert.Equal(t, 3*time.Second, cfg.ChannelTimeout)
	assert.False(t, cfg.VoiceEnabled)
	assert.Equal(t, "en-IN", cfg.VoiceLanguage)
	assert.Equal(t, 5, cfg.MinRecipientLength)
	assert.Equal(t, "/etc/sos/model.yaml", cfg.ClassifierModelPath)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
	assert.True(t, cfg.AuditEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-audit", cfg.KafkaAuditTopic)

	channels := cfg.ConfiguredChannels()
	require.Len(t, channels, 2)
	assert.Equal(t, ChannelCredential{Name: "primary", AccountSID: testSID, AuthToken: testAuthToken, From: testFrom, Configured: true}, channels[0])
	assert.Equal(t, "backup", channels[1].Name)
}

func TestLoad_BackupOnly(t *testing.T) {
	t.Setenv("TWILIO_BACKUP_SID", "AC-backup")
	t.Setenv("TWILIO_BACKUP_AUTH_TOKEN", "backup-token")
	t.Setenv("TWILIO_BACKUP_FROM", "+15005550007")

	cfg, err := Load()
	require.NoError(t, err)

	channels := cfg.ConfiguredChannels()
	require.Len(t, channels, 1)
	assert.Equal(t, "backup", channels[0].Name)
}

func TestLoad_PartialCredentialIsNotConfigured(t *testing.T) {
	t.Setenv("TWILIO_PRIMARY_SID", testSID)
	t.Setenv("TWILIO_PRIMARY_AUTH_TOKEN", testAuthToken)

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Channels[0].Configured)
	assert.Empty(t, cfg.ConfiguredChannels())
}

func TestLoad_PlaceholderCredentialIsNotConfigured(t *testing.T) {
	for _, placeholder := range []string{"YOUR_TWILIO_SID", "your-account-sid", "changeme", "XXXXXXXX", "todo"} {
		t.Run(placeholder, func(t *testing.T) {
			setPrimary(t)
			t.Setenv("TWILIO_PRIMARY_SID", placeholder)

			cfg, err := Load()
			require.NoError(t, err)
			assert.False(t, cfg.Channels[0].Configured)
		})
	}
}

func TestIsRealSecret(t *testing.T) {
	assert.True(t, isRealSecret(testSID))
	assert.True(t, isRealSecret("+15075195618"))
	assert.False(t, isRealSecret(""))
	assert.False(t, isRealSecret("xxx"))
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidChannelTimeout(t *testing.T) {
	t.Setenv("CHANNEL_TIMEOUT", "0s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHANNEL_TIMEOUT")
}

func TestLoad_InvalidMapboxTimeout(t *testing.T) {
	t.Setenv("MAPBOX_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TIMEOUT")
}

func TestLoad_InvalidVoiceEnabled(t *testing.T) {
	t.Setenv("VOICE_ENABLED", "sometimes")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VOICE_ENABLED")
}

func TestLoad_InvalidMinRecipientLength(t *testing.T) {
	for _, v := range []string{"0", "-3", "abc", "100"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("DISPATCH_MIN_RECIPIENT_LENGTH", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "DISPATCH_MIN_RECIPIENT_LENGTH")
		})
	}
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxTokenImpliesEnabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}

func TestLoad_AuditEnabledWithoutTopic(t *testing.T) {
	t.Setenv("AUDIT_ENABLED", "true")
	t.Setenv("KAFKA_AUDIT_TOPIC", " ")
	_, err := Load()
	require.Error(t, err)
}
