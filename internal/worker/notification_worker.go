package worker

import (
	"github.com/tickettally/ticket-engine/internal/service"
)

// StartNotificationWorker subscribes the notification fan-out to lifecycle events.
// Handlers run after the mutation that raised the event has committed.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
