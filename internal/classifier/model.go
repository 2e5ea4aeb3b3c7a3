// Package classifier maps a (lat, lon, pressure) reading onto a risk level
// using pressure bands loaded from a YAML model artifact.
//
// A region whose bounding box contains the reading overrides the default
// bands. Readings at or above the depression threshold are SAFE; each lower
// threshold crossed raises the level by one.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/storm-sos-dispatch/internal/domain"
	"gopkg.in/yaml.v3"
)

// DefaultConfidenceSpread is the distance in hPa from the nearest band edge
// at which confidence saturates.
const DefaultConfidenceSpread = 5.0

// Bands are pressure thresholds in hPa. A reading strictly below a threshold
// is at least that level.
type Bands struct {
	DepressionBelow float64 `yaml:"depression_below"`
	StormBelow      float64 `yaml:"storm_below"`
	CycloneBelow    float64 `yaml:"cyclone_below"`
}

// Region overrides the default bands inside a lat/lon bounding box.
type Region struct {
	Name   string  `yaml:"name"`
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLon float64 `yaml:"min_lon"`
	MaxLon float64 `yaml:"max_lon"`
	Bands  Bands   `yaml:"bands"`
}

// Model is a loaded risk model. It is immutable after Load and safe for concurrent use.
type Model struct {
	Version          string   `yaml:"version"`
	ConfidenceSpread float64  `yaml:"confidence_spread"`
	Default          Bands    `yaml:"default"`
	Regions          []Region `yaml:"regions"`
}

// Load reads and validates a model artifact. Every failure wraps
// domain.ErrClassificationUnavailable.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read model: %w", domain.ErrClassificationUnavailable, err)
	}
	return Parse(data)
}

// Parse decodes and validates a model artifact held in memory.
func Parse(data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decode model: %w", domain.ErrClassificationUnavailable, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrClassificationUnavailable, err)
	}
	if m.ConfidenceSpread == 0 {
		m.ConfidenceSpread = DefaultConfidenceSpread
	}
	return &m, nil
}

func (m *Model) validate() error {
	if err := m.Default.validate(); err != nil {
		return fmt.Errorf("default bands: %w", err)
	}
	if m.ConfidenceSpread < 0 {
		return errors.New("confidence_spread must not be negative")
	}
	for i, r := range m.Regions {
		if r.Name == "" {
			return fmt.Errorf("region %d: name is required", i)
		}
		if r.MinLat > r.MaxLat || r.MinLon > r.MaxLon {
			return fmt.Errorf("region %q: empty bounding box", r.Name)
		}
		if err := r.Bands.validate(); err != nil {
			return fmt.Errorf("region %q: %w", r.Name, err)
		}
	}
	return nil
}

func (b Bands) validate() error {
	if b.DepressionBelow <= 0 || b.StormBelow <= 0 || b.CycloneBelow <= 0 {
		return errors.New("all thresholds must be positive")
	}
	if !(b.DepressionBelow > b.StormBelow && b.StormBelow > b.CycloneBelow) {
		return errors.New("thresholds must strictly decrease from depression to cyclone")
	}
	return nil
}

// Classify returns the risk level for r with a confidence percentage in [50, 100].
func (m *Model) Classify(ctx context.Context, r domain.Reading) (domain.Classification, error) {
	if err := ctx.Err(); err != nil {
		return domain.Classification{}, err
	}
	if math.IsNaN(r.PressureHPa) || math.IsInf(r.PressureHPa, 0) || r.PressureHPa <= 0 {
		return domain.Classification{}, fmt.Errorf("invalid pressure %v", r.PressureHPa)
	}

	bands := m.bandsFor(r)
	level := domain.RiskSafe
	switch {
	case r.PressureHPa < bands.CycloneBelow:
		level = domain.RiskCyclone
	case r.PressureHPa < bands.StormBelow:
		level = domain.RiskStorm
	case r.PressureHPa < bands.DepressionBelow:
		level = domain.RiskDepression
	}

	return domain.Classification{
		Level:         level,
		Confidence:    m.confidence(bands, r.PressureHPa),
		HasConfidence: true,
	}, nil
}

// CheckReadiness always succeeds; a Model only exists once an artifact loaded.
func (m *Model) CheckReadiness(_ context.Context) error {
	return nil
}

// bandsFor picks the first region containing the reading, else the default
// bands. Without a position it uses the most sensitive thresholds in the
// model, so an unknown location never rates lower than any region would.
func (m *Model) bandsFor(r domain.Reading) Bands {
	if !r.HasCoords {
		return m.strictest()
	}
	for _, region := range m.Regions {
		if r.Lat >= region.MinLat && r.Lat <= region.MaxLat && r.Lon >= region.MinLon && r.Lon <= region.MaxLon {
			return region.Bands
		}
	}
	return m.Default
}

func (m *Model) strictest() Bands {
	b := m.Default
	for _, region := range m.Regions {
		b.DepressionBelow = math.Max(b.DepressionBelow, region.Bands.DepressionBelow)
		b.StormBelow = math.Max(b.StormBelow, region.Bands.StormBelow)
		b.CycloneBelow = math.Max(b.CycloneBelow, region.Bands.CycloneBelow)
	}
	return b
}

// confidence grows linearly from 50% on a band edge to 100% at ConfidenceSpread hPa away.
func (m *Model) confidence(b Bands, pressure float64) float64 {
	nearest := math.Inf(1)
	for _, edge := range []float64{b.DepressionBelow, b.StormBelow, b.CycloneBelow} {
		nearest = math.Min(nearest, math.Abs(pressure-edge))
	}
	return 50 + 50*math.Min(nearest/m.ConfidenceSpread, 1)
}

// Unavailable is the classifier used when no model artifact could be loaded.
// Every call fails with domain.ErrClassificationUnavailable; it never guesses SAFE.
type Unavailable struct {
	Cause error
}

func (u Unavailable) Classify(_ context.Context, _ domain.Reading) (domain.Classification, error) {
	return domain.Classification{}, u.err()
}

// CheckReadiness reports the load failure so /readyz stays red.
func (u Unavailable) CheckReadiness(_ context.Context) error {
	return u.err()
}

func (u Unavailable) err() error {
	if u.Cause == nil {
		return domain.ErrClassificationUnavailable
	}
	if errors.Is(u.Cause, domain.ErrClassificationUnavailable) {
		return u.Cause
	}
	return fmt.Errorf("%w: %w", domain.ErrClassificationUnavailable, u.Cause)
}
