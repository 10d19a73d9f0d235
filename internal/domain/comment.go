package domain

import "time"

// Comment is a threaded remark on a ticket.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Text      string
	ParentID  *string
	IsSystem  bool
	CreatedAt time.Time
}
