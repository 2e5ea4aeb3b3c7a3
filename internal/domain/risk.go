package domain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// RiskLevel is the ordinal storm severity produced by a classifier.
type RiskLevel int

const (
	RiskSafe RiskLevel = iota
	RiskDepression
	RiskStorm
	RiskCyclone
)

// HighRiskThreshold is the lowest level treated as high risk.
const HighRiskThreshold = RiskStorm

var riskLabels = [...]string{"SAFE", "DEPRESSION", "STORM", "CYCLONE"}

// riskColors are the warning-circle colours shown on the dashboard map.
var riskColors = [...]string{"#00FF00", "#FFFF00", "#FFA500", "#FF0000"}

func (l RiskLevel) String() string {
	if !l.Valid() {
		return "UNKNOWN"
	}
	return riskLabels[l]
}

// Valid reports whether l is one of the four defined levels.
func (l RiskLevel) Valid() bool {
	return l >= RiskSafe && l <= RiskCyclone
}

// IsHighRisk reports whether l is at or above the high-risk threshold.
func (l RiskLevel) IsHighRisk() bool {
	return l >= HighRiskThreshold
}

// Color returns the hex colour used to render the level, or "" when invalid.
func (l RiskLevel) Color() string {
	if !l.Valid() {
		return ""
	}
	return riskColors[l]
}

// MarshalText encodes the level as its label.
func (l RiskLevel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid risk level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText accepts either a label ("storm", case-insensitive) or the ordinal ("2").
func (l *RiskLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseRiskLevel parses a label or ordinal into a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		l := RiskLevel(n)
		if !l.Valid() {
			return 0, fmt.Errorf("risk level %d out of range 0-3", n)
		}
		return l, nil
	}
	for i, label := range riskLabels {
		if strings.EqualFold(s, label) {
			return RiskLevel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown risk level %q", s)
}

// Reading is the classifier input: a position and a sea-level pressure.
type Reading struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	PressureHPa float64 `json:"pressure_hpa"`
	// HasCoords is false when no position is known; Lat and Lon are then meaningless.
	HasCoords bool `json:"has_coords"`
}

// Classification is the classifier output.
type Classification struct {
	Level RiskLevel `json:"level"`
	// Confidence is a percentage in [0,100]; meaningful only when HasConfidence is set.
	Confidence    float64 `json:"confidence,omitempty"`
	HasConfidence bool    `json:"-"`
}

// Classifier maps a reading onto a risk level.
//
// Implementations return ErrClassificationUnavailable (possibly wrapped) when
// their backing model cannot be used.
type Classifier interface {
	Classify(ctx context.Context, r Reading) (Classification, error)
}
