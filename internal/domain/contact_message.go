package domain

import "time"

// ContactMessage is a submission of the public contact form, read by admins.
type ContactMessage struct {
	ID        string
	Name      string
	Email     string
	Subject   string
	Body      string
	IsRead    bool
	CreatedAt time.Time
}
