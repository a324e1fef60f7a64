package worker

import (
	"github.com/spec-kit/ticket-desk/internal/events"
	"github.com/spec-kit/ticket-desk/internal/service"
)

// Sinks are the optional consumers of ticket events.
type Sinks struct {
	Notifications *service.NotificationService
	History       *service.HistoryService
	Redis         *events.RedisPublisher
}

// StartNotificationWorker registers every configured sink on dispatcher.
func StartNotificationWorker(dispatcher events.Dispatcher, sinks Sinks) {
	if dispatcher == nil {
		return
	}
	if sinks.Notifications != nil {
		sinks.Notifications.RegisterHandlers()
	}
	sinks.History.RegisterHandlers(dispatcher)
	sinks.Redis.Register(dispatcher)
}
