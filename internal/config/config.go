package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// ChannelCredential is one messaging-provider account.
type ChannelCredential struct {
	Name       string
	AccountSID string
	AuthToken  string
	From       string
	// Configured is true when all three secrets were supplied and none is a placeholder.
	Configured bool
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Messaging provider accounts in failover order.
	Channels       []ChannelCredential
	TwilioBaseURL  string
	ChannelTimeout time.Duration
	VoiceEnabled   bool
	VoiceLanguage  string

	MinRecipientLength  int
	ClassifierModelPath string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Dispatch audit stream.
	AuditEnabled    bool
	KafkaBrokers    []string
	KafkaAuditTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	channelTimeout, err := parsePositiveDuration("CHANNEL_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	minLen, err := parseMinRecipientLength()
	if err != nil {
		return nil, err
	}

	voiceEnabled, err := parseBool("VOICE_ENABLED", true)
	if err != nil {
		return nil, err
	}

	auditEnabled, err := parseBool("AUDIT_ENABLED", false)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		Channels: []ChannelCredential{
			loadChannel("primary", "TWILIO_PRIMARY"),
			loadChannel("backup", "TWILIO_BACKUP"),
		},
		TwilioBaseURL:  strings.TrimRight(sharedcfg.EnvOrDefault("TWILIO_BASE_URL", "https://api.twilio.com/2010-04-01"), "/"),
		ChannelTimeout: channelTimeout,
		VoiceEnabled:   voiceEnabled,
		VoiceLanguage:  sharedcfg.EnvOrDefault("VOICE_LANGUAGE", "hi-IN"),

		MinRecipientLength:  minLen,
		ClassifierModelPath: sharedcfg.EnvOrDefault("CLASSIFIER_MODEL_PATH", "models/risk_model.yaml"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		AuditEnabled:    auditEnabled,
		KafkaBrokers:    sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAuditTopic: strings.TrimSpace(sharedcfg.EnvOrDefault("KAFKA_AUDIT_TOPIC", "sos-dispatch-reports")),
	}

	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.AuditEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("AUDIT_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.AuditEnabled && cfg.KafkaAuditTopic == "" {
		return nil, errors.New("KAFKA_AUDIT_TOPIC is required when AUDIT_ENABLED is true")
	}

	return cfg, nil
}

// ConfiguredChannels returns the accounts with real credentials, in failover order.
// An empty result means dispatch runs in simulation mode.
func (c *Config) ConfiguredChannels() []ChannelCredential {
	out := make([]ChannelCredential, 0, len(c.Channels))
	for _, ch := range c.Channels {
		if ch.Configured {
			out = append(out, ch)
		}
	}
	return out
}

func loadChannel(name, prefix string) ChannelCredential {
	cred := ChannelCredential{
		Name:       name,
		AccountSID: strings.TrimSpace(os.Getenv(prefix + "_SID")),
		AuthToken:  strings.TrimSpace(os.Getenv(prefix + "_AUTH_TOKEN")),
		From:       strings.TrimSpace(os.Getenv(prefix + "_FROM")),
	}
	cred.Configured = isRealSecret(cred.AccountSID) && isRealSecret(cred.AuthToken) && isRealSecret(cred.From)
	return cred
}

// isRealSecret rejects empty values and the placeholders commonly left in sample env files.
func isRealSecret(v string) bool {
	if v == "" {
		return false
	}
	upper := strings.ToUpper(v)
	switch {
	case strings.HasPrefix(upper, "YOUR_"), strings.HasPrefix(upper, "YOUR-"):
		return false
	case upper == "CHANGEME", upper == "PLACEHOLDER", upper == "TODO":
		return false
	case strings.Trim(upper, "X") == "":
		return false
	}
	return true
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func parseMinRecipientLength() (int, error) {
	s := os.Getenv("DISPATCH_MIN_RECIPIENT_LENGTH")
	if s == "" {
		return 10, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 32 {
		return 0, errors.New("invalid DISPATCH_MIN_RECIPIENT_LENGTH: must be between 1 and 32")
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
