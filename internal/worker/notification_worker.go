package worker

import (
	"context"

	"github.com/spec-kit/intern-service/internal/events"
	"github.com/spec-kit/intern-service/internal/observability"
	"github.com/spec-kit/intern-service/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to ledger and catalog events.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartEventCounter counts every published event in metrics.
func StartEventCounter(dispatcher events.Dispatcher, metrics *observability.Metrics) {
	if dispatcher == nil || metrics == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTaskCreated,
		events.EventTaskDeleted,
		events.EventTasksAssigned,
		events.EventTaskSubmitted,
		events.EventTaskGraded,
	} {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			metrics.RecordEvent(string(e.Type))
			return nil
		})
	}
}
