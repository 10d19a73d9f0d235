// Package export renders tickets as downloadable documents.
package export

import (
	"time"

	"github.com/tickettally/ticket-engine/internal/domain"
)

// TicketDocument is the read model rendered into a ticket summary.
type TicketDocument struct {
	Ticket       domain.Ticket
	CreatorName  string
	AssigneeName string
	TeamName     string
	History      []domain.StatusHistoryEntry
	SLAStatus    domain.SLAStatus
	SLADeadline  time.Time
	GeneratedAt  time.Time
}

// TicketRow is one line of a ticket export.
type TicketRow struct {
	Ticket       domain.Ticket
	CreatorName  string
	AssigneeName string
	TeamName     string
	SLAStatus    domain.SLAStatus
}

// SummaryFilename returns the attachment name used for a ticket summary.
func SummaryFilename(ticketID string) string {
	return "Ticket_" + ticketID + "_Summary.pdf"
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
