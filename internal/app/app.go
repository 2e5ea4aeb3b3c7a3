// Package app wires configuration into a ready-to-use SOS pipeline for the
// server and the operator CLI.
package app

import (
	"errors"
	"log/slog"
	"time"

	kafkaadapter "github.com/couchcryptid/storm-sos-dispatch/internal/adapter/kafka"
	"github.com/couchcryptid/storm-sos-dispatch/internal/adapter/mapbox"
	"github.com/couchcryptid/storm-sos-dispatch/internal/adapter/twilio"
	"github.com/couchcryptid/storm-sos-dispatch/internal/classifier"
	"github.com/couchcryptid/storm-sos-dispatch/internal/config"
	"github.com/couchcryptid/storm-sos-dispatch/internal/dispatch"
	"github.com/couchcryptid/storm-sos-dispatch/internal/domain"
	"github.com/couchcryptid/storm-sos-dispatch/internal/observability"
	"github.com/couchcryptid/storm-sos-dispatch/internal/pipeline"
)

// App is a wired pipeline plus the resources that must be closed with it.
type App struct {
	Pipeline *pipeline.Pipeline
	// RecipientBudget is the worst-case dispatch time for one recipient.
	RecipientBudget time.Duration
	closers         []func() error
}

// Close releases resources opened by Build.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Build creates every collaborator named by cfg. A missing risk model is not
// fatal: the pipeline starts with an unavailable classifier and reports not ready.
func Build(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	a := &App{}

	var clf domain.Classifier
	model, err := classifier.Load(cfg.ClassifierModelPath)
	if err != nil {
		logger.Error("risk model unavailable", "path", cfg.ClassifierModelPath, "error", err)
		clf = classifier.Unavailable{Cause: err}
	} else {
		logger.Info("risk model loaded", "path", cfg.ClassifierModelPath, "version", model.Version, "regions", len(model.Regions))
		clf = model
	}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	dispatcher, err := NewDispatcher(cfg, logger, metrics)
	if err != nil {
		return nil, err
	}

	var audit pipeline.AuditPublisher
	if cfg.AuditEnabled {
		pub := kafkaadapter.NewPublisher(cfg, logger)
		a.closers = append(a.closers, pub.Close)
		audit = pub
		logger.Info("dispatch audit enabled", "topic", cfg.KafkaAuditTopic, "brokers", cfg.KafkaBrokers)
	}

	a.RecipientBudget = dispatcher.RecipientBudget()
	a.Pipeline = pipeline.New(clf, geocoder, dispatcher, audit, logger, metrics)
	return a, nil
}

// NewDispatcher builds a Twilio channel per configured account, in failover
// order. With none configured the dispatcher simulates every send.
func NewDispatcher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*dispatch.Dispatcher, error) {
	creds := cfg.ConfiguredChannels()
	channels := make([]dispatch.Channel, 0, len(creds))
	for _, cred := range creds {
		channels = append(channels, twilio.NewChannel(cred, cfg.TwilioBaseURL, cfg.ChannelTimeout, logger))
	}

	if len(channels) == 0 {
		logger.Warn("no messaging credentials configured; SOS dispatch is simulated")
	} else {
		names := make([]string, len(creds))
		for i, c := range creds {
			names[i] = c.Name
		}
		logger.Info("messaging channels configured", "channels", names, "voice", cfg.VoiceEnabled)
	}

	pool := dispatch.NewPool(channels, cfg.ChannelTimeout, logger, metrics)
	return dispatch.New(pool, dispatch.NewGate(len(channels) > 0), dispatch.Options{
		MinRecipientLength: cfg.MinRecipientLength,
		VoiceEnabled:       cfg.VoiceEnabled,
		VoiceLanguage:      cfg.VoiceLanguage,
	}, logger, metrics)
}
