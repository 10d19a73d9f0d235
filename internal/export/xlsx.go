package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// TicketSheet is the worksheet name of ticket exports.
const TicketSheet = "Tickets"

var ticketHeaders = []string{
	"ID", "Title", "Status", "Priority", "Category", "Team", "Requested By", "Assigned To",
	"Created At", "Updated At", "SLA",
}

// TicketsWorkbook renders rows into an XLSX document.
func TicketsWorkbook(rows []TicketRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TicketSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(TicketSheet, "A1", &ticketHeaders); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(ticketHeaders))
	if err := f.SetCellStyle(TicketSheet, "A1", lastCol+"1", style); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []any{
			row.Ticket.ID,
			row.Ticket.Title,
			string(row.Ticket.Status),
			string(row.Ticket.Priority),
			row.Ticket.Category,
			row.TeamName,
			row.CreatorName,
			row.AssigneeName,
			row.Ticket.CreatedAt.UTC().Format(pdfTimeLayout),
			row.Ticket.UpdatedAt.UTC().Format(pdfTimeLayout),
			string(row.SLAStatus),
		}
		if err := f.SetSheetRow(TicketSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	_ = f.SetColWidth(TicketSheet, "A", "A", 38)
	_ = f.SetColWidth(TicketSheet, "B", "B", 40)
	_ = f.SetColWidth(TicketSheet, "C", "H", 18)
	_ = f.SetColWidth(TicketSheet, "I", "J", 20)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
