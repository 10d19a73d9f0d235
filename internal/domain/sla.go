package domain

import "time"

// SLAStatus is the evaluated resolution status of a ticket against its deadline.
type SLAStatus string

const (
	SLAStatusPending  SLAStatus = "PENDING"
	SLAStatusAchieved SLAStatus = "ACHIEVED"
	SLAStatusBreached SLAStatus = "BREACHED"
)

// SLAConfig holds the time budgets for one priority.
type SLAConfig struct {
	Priority            TicketPriority
	ResponseTimeHours   int
	ResolutionTimeHours int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ResolutionBudget returns the resolution budget as a duration.
func (c SLAConfig) ResolutionBudget() time.Duration {
	return time.Duration(c.ResolutionTimeHours) * time.Hour
}
