package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/intern-service/internal/config"
	"github.com/spec-kit/intern-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTaskCreated, n.handleCatalogChange)
	n.dispatcher.Subscribe(events.EventTaskDeleted, n.handleCatalogChange)
	n.dispatcher.Subscribe(events.EventTasksAssigned, n.handleTasksAssigned)
	n.dispatcher.Subscribe(events.EventTaskSubmitted, n.handleTaskSubmitted)
	n.dispatcher.Subscribe(events.EventTaskGraded, n.handleTaskGraded)
}

func (n *NotificationService) handleCatalogChange(ctx context.Context, event events.Event) error {
	n.logger.Info("CatalogChanged",
		zap.String("event_type", string(event.Type)),
		zap.String("task_id", event.SubjectID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTasksAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("TasksAssigned", zap.String("user_id", event.SubjectID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event, event.Actor.Email)
	return nil
}

func (n *NotificationService) handleTaskSubmitted(ctx context.Context, event events.Event) error {
	n.logger.Info("TaskSubmitted", zap.String("assignment_id", event.SubjectID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTaskGraded(ctx context.Context, event events.Event) error {
	n.logger.Info("TaskGraded", zap.String("assignment_id", event.SubjectID), zap.Any("payload", event.Payload))
	recipient := ""
	if payload, ok := event.Payload.(events.TaskGradedPayload); ok {
		recipient = payload.UserEmail
	}
	n.sendEmailNotificationStub(ctx, event, recipient)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event, to string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || to == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject_id", event.SubjectID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("subject_id", event.SubjectID),
		zap.String("event_type", string(event.Type)))
}
