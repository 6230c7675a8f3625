package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/config"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/lifecycle"
	"github.com/spec-kit/maintenance-service/internal/mq"
)

// NotificationService fans lifecycle events out to interested parties. The
// in-process dispatcher feeds it; delivery beyond logging goes through the
// broker so channel-specific consumers stay out of this service.
type NotificationService struct {
	logger    *zap.Logger
	publisher mq.Publisher
	cfg       config.NotificationConfig
}

// NewNotificationService constructs the service. publisher may be nil when
// the broker is not configured; events are then only logged.
func NewNotificationService(logger *zap.Logger, publisher mq.Publisher, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{logger: logger, publisher: publisher, cfg: cfg}
}

var notifiedEvents = []lifecycle.EventType{
	lifecycle.EventRequestCreated,
	lifecycle.EventReviewStarted,
	lifecycle.EventRequestApproved,
	lifecycle.EventRequestRejected,
	lifecycle.EventRequestAssigned,
	lifecycle.EventWorkAccepted,
	lifecycle.EventAssignmentDeclined,
	lifecycle.EventWorkCompleted,
	lifecycle.EventCompletionReviewed,
	lifecycle.EventRequestClosed,
	lifecycle.EventRequestReopened,
	lifecycle.EventSLABreached,
}

// emailedEvents are the ones a tenant or landlord would expect a mail for.
var emailedEvents = map[lifecycle.EventType]bool{
	lifecycle.EventRequestCreated:  true,
	lifecycle.EventRequestAssigned: true,
	lifecycle.EventWorkCompleted:   true,
	lifecycle.EventRequestRejected: true,
	lifecycle.EventSLABreached:     true,
}

// Register subscribes the service to every lifecycle event type.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	for _, eventType := range notifiedEvents {
		dispatcher.Subscribe(eventType, s.Handle)
	}
}

// Handle processes one lifecycle event.
func (s *NotificationService) Handle(ctx context.Context, event lifecycle.Event) error {
	s.logger.Info("lifecycle event",
		zap.String("event_type", string(event.Type)),
		zap.String("request_id", event.RequestID),
		zap.String("actor_id", event.ActorID),
		zap.String("actor_role", string(event.ActorRole)),
	)
	if emailedEvents[event.Type] {
		s.sendEmailStub(event)
	}
	if s.publisher == nil {
		return nil
	}
	routingKey := "maintenance." + string(event.Type)
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("routing_key", routingKey),
			zap.String("request_id", event.RequestID),
			zap.Error(err),
		)
	}
	return nil
}

func (s *NotificationService) sendEmailStub(event lifecycle.Event) {
	if strings.TrimSpace(s.cfg.EmailFrom) == "" {
		return
	}
	s.logger.Debug("sendEmailStub",
		zap.String("from", s.cfg.EmailFrom),
		zap.String("request_id", event.RequestID),
		zap.String("event_type", string(event.Type)))
}
