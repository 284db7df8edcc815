package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jwalitptl/medipass-api/internal/model"
	"github.com/jwalitptl/medipass-api/pkg/metrics"
)

// Service writes one structured audit line per lifecycle event.
type Service struct {
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewService(log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{log: log, metrics: m}
}

// NewFileLogger builds a JSON zap logger appending to path ("stdout" is allowed).
func NewFileLogger(path string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.EncoderConfig.TimeKey = "logged_at"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func (s *Service) Record(ev model.ConsultationEvent) {
	fields := []zap.Field{
		zap.String("event_id", ev.ID.String()),
		zap.String("event_type", ev.Type),
		zap.Time("occurred_at", ev.OccurredAt),
	}
	if ev.ConsultationID != 0 {
		fields = append(fields,
			zap.Int("consultation_id", ev.ConsultationID),
			zap.String("status", string(ev.Status)),
			zap.Time("start", ev.Start),
		)
	}
	if ev.PractitionerID != 0 {
		fields = append(fields, zap.Int("practitioner_id", ev.PractitionerID))
	}
	if ev.PatientID != 0 {
		fields = append(fields, zap.Int("patient_id", ev.PatientID))
	}
	s.log.Info("audit", fields...)
}

// Handle decodes a broker payload and records it.
func (s *Service) Handle(_ context.Context, payload []byte) error {
	var ev model.ConsultationEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		s.count("unknown", "error")
		return fmt.Errorf("failed to decode event: %w", err)
	}
	if ev.Type == "" {
		s.count("unknown", "error")
		return fmt.Errorf("event %s has no type", ev.ID)
	}
	s.Record(ev)
	s.count(ev.Type, "success")
	return nil
}

func (s *Service) Sync() error {
	return s.log.Sync()
}

func (s *Service) count(eventType, status string) {
	if s.metrics != nil {
		s.metrics.EventsConsumed.WithLabelValues(eventType, status).Inc()
	}
}
