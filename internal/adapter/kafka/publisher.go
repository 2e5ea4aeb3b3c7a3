package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-sos-dispatch/internal/config"
	"github.com/couchcryptid/storm-sos-dispatch/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces dispatch reports to the audit topic.
// It implements pipeline.AuditPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured audit topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAuditTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		WriteTimeout: 5 * time.Second,
		// One report per call; don't hold the SOS response for a batch to fill.
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes one report, keyed by dispatch ID.
func (p *Publisher) Publish(ctx context.Context, report domain.Report) error {
	msg, err := serializeReport(report)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish dispatch report %s: %w", report.ID, err)
	}
	p.logger.Debug("dispatch report published", "dispatch_id", report.ID, "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// auditRecord is the wire form of a report. Recipients are masked so the
// audit stream never carries full phone numbers.
type auditRecord struct {
	ID         string              `json:"id"`
	Context    domain.AlertContext `json:"context"`
	Outcomes   []auditOutcome      `json:"outcomes"`
	Dropped    int                 `json:"dropped"`
	Simulated  bool                `json:"simulated"`
	Delivered  int                 `json:"delivered"`
	Failed     int                 `json:"failed"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

type auditOutcome struct {
	Recipient string `json:"recipient"`
	domain.Outcome
}

// serializeReport marshals a Report into a Kafka message. Outcomes follow
// the order recipients were dispatched in.
func serializeReport(report domain.Report) (kafkago.Message, error) {
	rec := auditRecord{
		ID:         report.ID,
		Context:    report.Context,
		Outcomes:   make([]auditOutcome, 0, len(report.Recipients)),
		Dropped:    report.Dropped,
		Simulated:  report.Simulated,
		Delivered:  report.Count(domain.OutcomeDelivered),
		Failed:     report.Count(domain.OutcomeFailed),
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
	}
	for _, r := range report.Recipients {
		outcome, ok := report.Outcomes[r]
		if !ok {
			continue
		}
		rec.Outcomes = append(rec.Outcomes, auditOutcome{Recipient: r.Masked(), Outcome: outcome})
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize dispatch report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_level", Value: []byte(report.Context.Level.String())},
			{Key: "dispatched_at", Value: []byte(report.StartedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
