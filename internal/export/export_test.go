package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tickettally/ticket-engine/internal/domain"
)

var created = time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

func sampleTicket() domain.Ticket {
	return domain.Ticket{
		ID:          "3f2a",
		Title:       "Printer on floor 2 jams",
		Description: "Jams on every duplex job.",
		Category:    "Hardware Issue",
		Status:      domain.TicketStatusResolved,
		Priority:    domain.TicketPriorityHigh,
		CreatedByID: "u-1",
		CreatedAt:   created,
		UpdatedAt:   created.Add(3 * time.Hour),
	}
}

func TestRenderTicketSummary(t *testing.T) {
	open := domain.TicketStatusOpen
	doc := TicketDocument{
		Ticket:       sampleTicket(),
		CreatorName:  "Dana Doe",
		AssigneeName: "Sam Support",
		TeamName:     "Hardware Team",
		History: []domain.StatusHistoryEntry{
			{NewStatus: domain.TicketStatusOpen, ChangedAt: created},
			{OldStatus: &open, NewStatus: domain.TicketStatusInProgress, ChangedAt: created.Add(time.Hour)},
		},
		SLAStatus:   domain.SLAStatusAchieved,
		SLADeadline: created.Add(8 * time.Hour),
		GeneratedAt: created.Add(4 * time.Hour),
	}

	content, err := NewPDFRenderer().RenderTicketSummary(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))
}

func TestSummaryFilename(t *testing.T) {
	assert.Equal(t, "Ticket_3f2a_Summary.pdf", SummaryFilename("3f2a"))
}

func TestTicketsWorkbook(t *testing.T) {
	content, err := TicketsWorkbook([]TicketRow{{
		Ticket:      sampleTicket(),
		CreatorName: "Dana Doe",
		TeamName:    "Hardware Team",
		SLAStatus:   domain.SLAStatusPending,
	}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(TicketSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ticketHeaders, rows[0])
	assert.Equal(t, "3f2a", rows[1][0])
	assert.Equal(t, "HIGH", rows[1][3])
	assert.Equal(t, "Hardware Team", rows[1][5])
	assert.Equal(t, "2024-03-11 09:00", rows[1][8])
	assert.Equal(t, "PENDING", rows[1][10])
}

func TestTicketsWorkbookEmpty(t *testing.T) {
	content, err := TicketsWorkbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(TicketSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func samplePersonalData() PersonalData {
	return PersonalData{
		User: domain.User{
			ID:         "u-1",
			FullName:   "Dana Doe",
			Email:      "dana@example.com",
			Role:       domain.UserRoleEmployee,
			Department: "Finance",
			CreatedAt:  created,
		},
		TeamName: "Hardware Team",
		Tickets:  []domain.Ticket{sampleTicket()},
		Comments: []domain.Comment{
			{ID: "c-1", TicketID: "3f2a", AuthorID: "u-1", Text: "Still jamming, \"again\"", CreatedAt: created.Add(time.Hour)},
		},
		ExportedAt: created.Add(24 * time.Hour),
	}
}

func TestPersonalDataCSV(t *testing.T) {
	content, err := PersonalDataCSV(samplePersonalData())
	require.NoError(t, err)

	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"User Profile"}, records[0])
	assert.Contains(t, records, []string{"Department", "Finance"})
	assert.Contains(t, records, []string{"Team", "Hardware Team"})
	assert.Contains(t, records, []string{"Joined", "2024-03-11T09:00:00Z"})
	assert.Contains(t, records, []string{"ID", "Title", "Status", "Priority", "Category", "Created At"})
	assert.Contains(t, records, []string{
		"3f2a", "Printer on floor 2 jams", "RESOLVED", "HIGH", "Hardware Issue", "2024-03-11T09:00:00Z",
	})
	assert.Equal(t, []string{"3f2a", "Still jamming, \"again\"", "2024-03-11T10:00:00Z"}, records[len(records)-1])
}

func TestPersonalDataCSVWithoutActivity(t *testing.T) {
	data := samplePersonalData()
	data.Tickets = nil
	data.Comments = nil
	content, err := PersonalDataCSV(data)
	require.NoError(t, err)

	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"Ticket ID", "Comment", "Date"}, records[len(records)-1])
}

func TestRenderPersonalData(t *testing.T) {
	renderer := NewPDFRenderer()

	content, err := renderer.RenderPersonalData(samplePersonalData())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))

	empty := samplePersonalData()
	empty.Tickets = nil
	empty.Comments = nil
	content, err = renderer.RenderPersonalData(empty)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))
}

func TestPersonalDataFilenames(t *testing.T) {
	assert.Equal(t, "ticket_tally_data_u-1.csv", PersonalDataCSVFilename("u-1"))
	assert.Equal(t, "ticket_tally_report_u-1.pdf", PersonalDataPDFFilename("u-1"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "żół...", truncate("żółwik", 3))
}
