package domain

import "time"

// Team represents a group of IT staff tickets are routed to.
type Team struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}
