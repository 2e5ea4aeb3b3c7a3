package http

import (
	"time"

	"github.com/couchcryptid/storm-sos-dispatch/internal/domain"
	"github.com/couchcryptid/storm-sos-dispatch/internal/pipeline"
)

const maxRecipients = 50

type classifyRequest struct {
	City        string      `json:"city,omitempty"`
	Region      string      `json:"region,omitempty"`
	Coords      *domain.GPS `json:"coords,omitempty"`
	GPS         *domain.GPS `json:"gps,omitempty"`
	PressureHPa float64     `json:"pressure_hpa"`
}

func (r classifyRequest) toPipeline() pipeline.ClassifyRequest {
	return pipeline.ClassifyRequest{
		Location: domain.LocationQuery{
			City:   r.City,
			Region: r.Region,
			Coords: r.Coords,
			GPS:    r.GPS,
		},
		PressureHPa: r.PressureHPa,
	}
}

type sosRequest struct {
	classifyRequest
	Recipients []string `json:"recipients"`
}

type locationResponse struct {
	Label  string      `json:"label"`
	Coords *domain.GPS `json:"coords,omitempty"`
	Source string      `json:"source"`
}

type classifyResponse struct {
	Level      domain.RiskLevel `json:"level"`
	Ordinal    int              `json:"ordinal"`
	Color      string           `json:"color"`
	HighRisk   bool             `json:"high_risk"`
	Confidence *float64         `json:"confidence,omitempty"`
	Location   locationResponse `json:"location"`
	Guidance   domain.Guidance  `json:"guidance"`
}

func newClassifyResponse(a pipeline.Assessment) classifyResponse {
	resp := classifyResponse{
		Level:    a.Classification.Level,
		Ordinal:  int(a.Classification.Level),
		Color:    a.Classification.Level.Color(),
		HighRisk: a.Classification.Level.IsHighRisk(),
		Location: locationResponse{
			Label:  a.Location.Label,
			Coords: a.Location.Coords,
			Source: a.Location.Source,
		},
		Guidance: domain.SurvivalGuide(),
	}
	if a.Classification.HasConfidence {
		c := a.Classification.Confidence
		resp.Confidence = &c
	}
	return resp
}

type recipientResult struct {
	Recipient  string               `json:"recipient"`
	Status     domain.OutcomeStatus `json:"status"`
	Channel    string               `json:"channel,omitempty"`
	Reason     string               `json:"reason,omitempty"`
	VoiceError string               `json:"voice_error,omitempty"`
}

type sosResponse struct {
	DispatchID string            `json:"dispatch_id"`
	Level      domain.RiskLevel  `json:"level"`
	Location   string            `json:"location"`
	Simulated  bool              `json:"simulated"`
	Dropped    int               `json:"dropped"`
	Delivered  int               `json:"delivered"`
	Failed     int               `json:"failed"`
	Results    []recipientResult `json:"results"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

func newSOSResponse(res pipeline.SOSResult) sosResponse {
	report := res.Report
	resp := sosResponse{
		DispatchID: report.ID,
		Level:      report.Context.Level,
		Location:   report.Context.Location,
		Simulated:  report.Simulated,
		Dropped:    report.Dropped,
		Delivered:  report.Count(domain.OutcomeDelivered),
		Failed:     report.Count(domain.OutcomeFailed),
		Results:    make([]recipientResult, 0, len(report.Recipients)),
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	}
	for _, r := range report.Recipients {
		o := report.Outcomes[r]
		resp.Results = append(resp.Results, recipientResult{
			Recipient:  string(r),
			Status:     o.Status,
			Channel:    o.Channel,
			Reason:     o.Reason,
			VoiceError: o.VoiceError,
		})
	}
	return resp
}

type errorResponse struct {
	Error string `json:"error"`
}
