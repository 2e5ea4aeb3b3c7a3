package domain

import "time"

// GPS is a WGS-84 latitude/longitude pair reported by a device.
type GPS struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// AlertContext is everything an alert says about the triggering event.
// It is built fresh for each dispatch and never stored.
type AlertContext struct {
	Location    string    `json:"location"`
	PressureHPa float64   `json:"pressure_hpa"`
	Level       RiskLevel `json:"level"`
	// GPS is set when the location came from device geolocation rather than a city lookup.
	GPS *GPS `json:"gps,omitempty"`
}

// OutcomeStatus is the per-recipient result of a dispatch.
type OutcomeStatus string

const (
	OutcomeDelivered OutcomeStatus = "delivered"
	OutcomeSimulated OutcomeStatus = "simulated"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Attempt records one channel's try at a recipient.
type Attempt struct {
	Channel string `json:"channel"`
	Kind    string `json:"kind,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Outcome is the result for one recipient.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	// Channel is the account that delivered the alert.
	Channel string `json:"channel,omitempty"`
	// Reason is the last failure seen; set only for failed outcomes.
	Reason string `json:"reason,omitempty"`
	// VoiceError is set when the text went out but the best-effort voice call did not.
	VoiceError string    `json:"voice_error,omitempty"`
	Attempts   []Attempt `json:"attempts,omitempty"`
}

// Report summarises a single dispatch.
type Report struct {
	ID         string                `json:"id"`
	Context    AlertContext          `json:"context"`
	Recipients []Recipient           `json:"recipients"`
	Outcomes   map[Recipient]Outcome `json:"outcomes"`
	Dropped    int                   `json:"dropped"`
	Simulated  bool                  `json:"simulated"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
}

// Count returns how many outcomes have the given status.
func (r Report) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
