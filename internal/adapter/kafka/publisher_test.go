package kafka

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/storm-sos-dispatch/internal/config"
	"github.com/couchcryptid/storm-sos-dispatch/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport() domain.Report {
	started := time.Date(2026, time.May, 20, 14, 5, 0, 0, time.FixedZone("IST", 5*3600+1800))
	return domain.Report{
		ID: "0b6f3c1e-8d0c-4d7a-9f43-5d8e2b0c7a11",
		Context: domain.AlertContext{
			Location:    "Puri",
			PressureHPa: 978,
			Level:       domain.RiskCyclone,
		},
		Recipients: []domain.Recipient{"+919999999999", "+918888888888"},
		Outcomes: map[domain.Recipient]domain.Outcome{
			"+919999999999": {Status: domain.OutcomeDelivered, Channel: "primary"},
			"+918888888888": {Status: domain.OutcomeFailed, Reason: "backup: recipient rejected by provider"},
		},
		Dropped:    1,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
	}
}

func TestSerializeReport(t *testing.T) {
	report := testReport()

	msg, err := serializeReport(report)
	require.NoError(t, err)

	assert.Equal(t, []byte(report.ID), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, kafkago.Header{Key: "risk_level", Value: []byte("CYCLONE")}, msg.Headers[0])
	assert.Equal(t, kafkago.Header{Key: "dispatched_at", Value: []byte("2026-05-20T08:35:00Z")}, msg.Headers[1])

	var rec auditRecord
	require.NoError(t, json.Unmarshal(msg.Value, &rec))
	assert.Equal(t, report.ID, rec.ID)
	assert.Equal(t, domain.RiskCyclone, rec.Context.Level)
	assert.Equal(t, 1, rec.Delivered)
	assert.Equal(t, 1, rec.Failed)
	assert.Equal(t, 1, rec.Dropped)
	assert.False(t, rec.Simulated)

	require.Len(t, rec.Outcomes, 2)
	assert.Equal(t, "*********9999", rec.Outcomes[0].Recipient)
	assert.Equal(t, domain.OutcomeDelivered, rec.Outcomes[0].Status)
	assert.Equal(t, "primary", rec.Outcomes[0].Channel)
	assert.Equal(t, "*********8888", rec.Outcomes[1].Recipient)
	assert.Equal(t, domain.OutcomeFailed, rec.Outcomes[1].Status)
}

func TestSerializeReport_NeverCarriesFullNumbers(t *testing.T) {
	msg, err := serializeReport(testReport())
	require.NoError(t, err)

	assert.NotContains(t, string(msg.Value), "+919999999999")
	assert.NotContains(t, string(msg.Value), "+918888888888")
}

func TestSerializeReport_LevelSerializedAsLabel(t *testing.T) {
	msg, err := serializeReport(testReport())
	require.NoError(t, err)
	assert.Contains(t, string(msg.Value), `"level":"CYCLONE"`)
}

func TestSerializeReport_InvalidLevel(t *testing.T) {
	report := testReport()
	report.Context.Level = domain.RiskLevel(9)

	_, err := serializeReport(report)
	require.Error(t, err)
}

func TestNewPublisher(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaAuditTopic: "sos-dispatch-reports"}
	p := NewPublisher(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = p.Close() })

	assert.Equal(t, "sos-dispatch-reports", p.writer.Topic)
	assert.Equal(t, kafkago.RequireAll, p.writer.RequiredAcks)
	assert.LessOrEqual(t, p.writer.BatchTimeout, 10*time.Millisecond)
	assert.Positive(t, p.writer.BatchTimeout)
}
