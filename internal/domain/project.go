package domain

import "time"

// ProjectStatus enumerates project phases.
type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "PLANNING"
	ProjectStatusActive    ProjectStatus = "ACTIVE"
	ProjectStatusOnHold    ProjectStatus = "ON_HOLD"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusOnHold, ProjectStatusCompleted:
		return true
	}
	return false
}

// MaxProjectProgress is the progress of a finished project, in percent.
const MaxProjectProgress = 100

// Project is an IT initiative tracked alongside tickets, staffed by a set of users.
type Project struct {
	ID          string
	Name        string
	Description string
	Status      ProjectStatus
	Priority    TicketPriority
	StartDate   *time.Time
	Deadline    *time.Time
	Progress    int
	CreatedByID string
	MemberIDs   []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Frozen reports whether the project no longer accepts edits.
func (p *Project) Frozen() bool {
	return p.Status == ProjectStatusCompleted
}

// HasMember reports whether userID staffs the project.
func (p *Project) HasMember(userID string) bool {
	for _, id := range p.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
