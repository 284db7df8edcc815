package event

import (
	"context"
	"time"

	"github.com/jwalitptl/medipass-api/internal/model"
	"github.com/jwalitptl/medipass-api/pkg/logger"
	"github.com/jwalitptl/medipass-api/pkg/messaging"
	"github.com/jwalitptl/medipass-api/pkg/metrics"
)

const publishTimeout = 2 * time.Second

// Service forwards lifecycle events to the broker. A failed publish is logged
// and counted; it never fails the operation that produced the event.
type Service struct {
	broker  messaging.Broker
	channel string
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewService accepts a nil broker, in which case events are only counted as skipped.
func NewService(broker messaging.Broker, channel string, log *logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		broker:  broker,
		channel: channel,
		logger:  log,
		metrics: m,
	}
}

func (s *Service) Publish(ctx context.Context, ev model.ConsultationEvent) {
	if s.broker == nil {
		s.count(ev.Type, "skipped")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.broker.Publish(ctx, s.channel, ev); err != nil {
		s.count(ev.Type, "error")
		s.logger.Error(err, "Failed to publish event",
			"event_id", ev.ID.String(),
			"event_type", ev.Type)
		return
	}
	s.count(ev.Type, "success")
}

func (s *Service) count(eventType, status string) {
	if s.metrics != nil {
		s.metrics.EventsPublished.WithLabelValues(eventType, status).Inc()
	}
}
