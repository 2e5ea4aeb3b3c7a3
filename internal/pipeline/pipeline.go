package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/couchcryptid/storm-sos-dispatch/internal/domain"
	"github.com/couchcryptid/storm-sos-dispatch/internal/observability"
)

// Dispatcher fans an alert out to recipients.
type Dispatcher interface {
	Dispatch(ctx context.Context, ac domain.AlertContext, recipients []string) (domain.Report, error)
	Simulated() bool
}

// AuditPublisher records a finished dispatch somewhere durable.
type AuditPublisher interface {
	Publish(ctx context.Context, report domain.Report) error
}

// readinessChecker is satisfied by classifiers that can report a missing model.
type readinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ClassifyRequest is a pressure reading at a city or device position.
type ClassifyRequest struct {
	Location    domain.LocationQuery
	PressureHPa float64
}

// Assessment is a classified reading with everything needed to word an alert.
type Assessment struct {
	Location       domain.ResolvedLocation
	Reading        domain.Reading
	Classification domain.Classification
}

// AlertContext builds the dispatch context for this assessment.
func (a Assessment) AlertContext() domain.AlertContext {
	ac := domain.AlertContext{
		Location:    a.Location.Label,
		PressureHPa: a.Reading.PressureHPa,
		Level:       a.Classification.Level,
	}
	if a.Location.FromDevice && a.Location.Coords != nil {
		gps := *a.Location.Coords
		ac.GPS = &gps
	}
	return ac
}

// SOSRequest is an explicit human trigger for an alert burst.
type SOSRequest struct {
	ClassifyRequest
	Recipients []string
}

// SOSResult is the classification that was alerted on and the dispatch report.
type SOSResult struct {
	Assessment Assessment
	Report     domain.Report
}

// Pipeline orchestrates classify, locate, dispatch and audit for one request.
// It holds no per-request state.
type Pipeline struct {
	classifier domain.Classifier
	geocoder   domain.Geocoder
	dispatcher Dispatcher
	audit      AuditPublisher
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a Pipeline. geocoder and audit may be nil to disable location
// resolution and the audit stream.
func New(c domain.Classifier, g domain.Geocoder, d Dispatcher, a AuditPublisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		classifier: c,
		geocoder:   g,
		dispatcher: d,
		audit:      a,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once a risk model is loaded.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	if p.classifier == nil {
		return domain.ErrClassificationUnavailable
	}
	if rc, ok := p.classifier.(readinessChecker); ok {
		return rc.CheckReadiness(ctx)
	}
	return nil
}

// Simulated reports whether SOS triggers reach the messaging provider.
func (p *Pipeline) Simulated() bool {
	return p.dispatcher.Simulated()
}

// Classify resolves the location and classifies the reading.
func (p *Pipeline) Classify(ctx context.Context, req ClassifyRequest) (Assessment, error) {
	if err := validateRequest(req); err != nil {
		return Assessment{}, err
	}

	loc := domain.ResolveLocation(ctx, req.Location, p.geocoder, p.logger)
	reading := domain.Reading{PressureHPa: req.PressureHPa}
	if loc.Coords != nil {
		reading.Lat = loc.Coords.Lat
		reading.Lon = loc.Coords.Lon
		reading.HasCoords = true
	}

	if p.classifier == nil {
		p.metrics.ClassifierUnavailable.Inc()
		return Assessment{}, domain.ErrClassificationUnavailable
	}
	c, err := p.classifier.Classify(ctx, reading)
	if err != nil {
		if errors.Is(err, domain.ErrClassificationUnavailable) {
			p.metrics.ClassifierUnavailable.Inc()
			p.logger.Error("risk classification unavailable", "error", err)
		}
		return Assessment{}, err
	}
	p.metrics.Classifications.WithLabelValues(c.Level.String()).Inc()

	p.logger.Debug("reading classified",
		"location", loc.Label,
		"location_source", loc.Source,
		"pressure_hpa", reading.PressureHPa,
		"level", c.Level.String(),
	)
	return Assessment{Location: loc, Reading: reading, Classification: c}, nil
}

// TriggerSOS classifies the reading and alerts every recipient about it.
// Per-recipient failures are in the report; the error is non-nil only when
// classification is unavailable, no recipient is valid, or ctx was already done.
func (p *Pipeline) TriggerSOS(ctx context.Context, req SOSRequest) (SOSResult, error) {
	assessment, err := p.Classify(ctx, req.ClassifyRequest)
	if err != nil {
		return SOSResult{}, err
	}

	report, err := p.dispatcher.Dispatch(ctx, assessment.AlertContext(), req.Recipients)
	res := SOSResult{Assessment: assessment, Report: report}
	if err != nil {
		return res, err
	}

	p.publish(ctx, report)
	return res, nil
}

// publish sends the report to the audit stream. Failures are logged only.
func (p *Pipeline) publish(ctx context.Context, report domain.Report) {
	if p.audit == nil {
		return
	}
	if err := p.audit.Publish(context.WithoutCancel(ctx), report); err != nil {
		p.metrics.AuditPublishFails.Inc()
		p.logger.Warn("audit publish failed", "dispatch_id", report.ID, "error", err)
	}
}

func validateRequest(req ClassifyRequest) error {
	if math.IsNaN(req.PressureHPa) || math.IsInf(req.PressureHPa, 0) || req.PressureHPa <= 0 {
		return &ValidationError{Field: "pressure_hpa", Msg: "must be a positive number"}
	}
	if req.Location.City == "" && req.Location.GPS == nil {
		return &ValidationError{Field: "location", Msg: "city or gps is required"}
	}
	if g := req.Location.GPS; g != nil && !validCoords(*g) {
		return &ValidationError{Field: "gps", Msg: fmt.Sprintf("coordinates out of range: %.4f, %.4f", g.Lat, g.Lon)}
	}
	if g := req.Location.Coords; g != nil && !validCoords(*g) {
		return &ValidationError{Field: "coords", Msg: fmt.Sprintf("coordinates out of range: %.4f, %.4f", g.Lat, g.Lon)}
	}
	return nil
}

func validCoords(g domain.GPS) bool {
	return g.Lat >= -90 && g.Lat <= 90 && g.Lon >= -180 && g.Lon <= 180
}

// ValidationError describes a malformed request field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Msg
}
