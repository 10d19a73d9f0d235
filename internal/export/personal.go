package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/tickettally/ticket-engine/internal/domain"
)

// PersonalData is the read model of an account's data export.
type PersonalData struct {
	User       domain.User
	TeamName   string
	Tickets    []domain.Ticket
	Comments   []domain.Comment
	ExportedAt time.Time
}

// PersonalDataCSVFilename returns the attachment name of a CSV data export.
func PersonalDataCSVFilename(userID string) string {
	return "ticket_tally_data_" + userID + ".csv"
}

// PersonalDataPDFFilename returns the attachment name of a PDF data report.
func PersonalDataPDFFilename(userID string) string {
	return "ticket_tally_report_" + userID + ".pdf"
}

// PersonalDataCSV writes the export as three blank-line separated sections: the profile, the
// tickets and the account's comments.
func PersonalDataCSV(data PersonalData) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{
		{"User Profile"},
		{"Name", data.User.FullName},
		{"Email", data.User.Email},
		{"Role", string(data.User.Role)},
		{"Department", data.User.Department},
		{"Team", data.TeamName},
		{"Joined", data.User.CreatedAt.UTC().Format(time.RFC3339)},
		{},
		{"Tickets"},
		{"ID", "Title", "Status", "Priority", "Category", "Created At"},
	}
	for _, t := range data.Tickets {
		records = append(records, []string{
			t.ID, t.Title, string(t.Status), string(t.Priority), t.Category, t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	records = append(records, []string{}, []string{"My Comments"}, []string{"Ticket ID", "Comment", "Date"})
	for _, c := range data.Comments {
		records = append(records, []string{c.TicketID, c.Text, c.CreatedAt.UTC().Format(time.RFC3339)})
	}

	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write personal data csv: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
