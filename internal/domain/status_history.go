package domain

import "time"

// StatusHistoryEntry is an immutable audit trail entry for one status transition.
// OldStatus is nil only for the creation entry; ChangedByID is nil for scheduled transitions.
type StatusHistoryEntry struct {
	ID          string
	TicketID    string
	OldStatus   *TicketStatus
	NewStatus   TicketStatus
	ChangedByID *string
	ChangedAt   time.Time
}

// IsCreation reports whether the entry records ticket creation.
func (e StatusHistoryEntry) IsCreation() bool {
	return e.OldStatus == nil
}
