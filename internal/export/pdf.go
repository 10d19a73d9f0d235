package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

const (
	pdfTimeLayout = "2006-01-02 15:04"
	labelWidth    = 50.0
	valueWidth    = 130.0
	rowHeight     = 8.0
)

// PDFRenderer renders ticket summaries as A4 PDF documents.
type PDFRenderer struct{}

// NewPDFRenderer creates a renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// RenderTicketSummary produces the summary attached to resolution emails and served for download.
func (r *PDFRenderer) RenderTicketSummary(doc TicketDocument) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Ticket %s", doc.Ticket.ID), true)
	pdf.SetCreationDate(doc.GeneratedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(99, 102, 241)
	pdf.CellFormat(0, 12, tr("Ticket Summary: #"+doc.Ticket.ID), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 6, "Generated on "+doc.GeneratedAt.UTC().Format("January 02, 2006"), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	assignee := doc.AssigneeName
	if assignee == "" {
		assignee = "Unassigned"
	}
	fields := [][2]string{
		{"Subject", doc.Ticket.Title},
		{"Status", string(doc.Ticket.Status)},
		{"Priority", string(doc.Ticket.Priority)},
		{"Category", orDash(doc.Ticket.Category)},
		{"Team", orDash(doc.TeamName)},
		{"Requested By", orDash(doc.CreatorName)},
		{"Assigned To", assignee},
		{"Created At", doc.Ticket.CreatedAt.UTC().Format(pdfTimeLayout)},
		{"Updated At", doc.Ticket.UpdatedAt.UTC().Format(pdfTimeLayout)},
		{"SLA", slaLine(doc)},
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(99, 102, 241)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(labelWidth, rowHeight, "Field", "1", 0, "L", true, 0, "")
	pdf.CellFormat(valueWidth, rowHeight, "Value", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.SetTextColor(0, 0, 0)
	for _, field := range fields {
		pdf.CellFormat(labelWidth, rowHeight, field[0], "1", 0, "L", true, 0, "")
		pdf.CellFormat(valueWidth, rowHeight, tr(field[1]), "1", 1, "L", true, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Description", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(orDash(doc.Ticket.Description)), "", "L", false)
	pdf.Ln(6)

	if len(doc.History) > 0 {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, "Status History", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(220, 220, 220)
		pdf.CellFormat(60, 7, "Old Status", "1", 0, "L", true, 0, "")
		pdf.CellFormat(60, 7, "New Status", "1", 0, "L", true, 0, "")
		pdf.CellFormat(60, 7, "Changed On", "1", 1, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, entry := range doc.History {
			old := "None"
			if entry.OldStatus != nil {
				old = string(*entry.OldStatus)
			}
			pdf.CellFormat(60, 7, old, "1", 0, "L", false, 0, "")
			pdf.CellFormat(60, 7, string(entry.NewStatus), "1", 0, "L", false, 0, "")
			pdf.CellFormat(60, 7, entry.ChangedAt.UTC().Format(pdfTimeLayout), "1", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render ticket summary: %w", err)
	}
	return buf.Bytes(), nil
}

const reportTitleWidth = 40

// RenderPersonalData produces the data report an account downloads about itself.
func (r *PDFRenderer) RenderPersonalData(data PersonalData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("User Data Report", true)
	pdf.SetCreationDate(data.ExportedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(99, 102, 241)
	pdf.CellFormat(0, 12, tr("User Data Report: "+data.User.FullName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 6, "Generated on "+data.ExportedAt.UTC().Format(pdfTimeLayout), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
	}

	section("User Profile")
	profile := [][2]string{
		{"Full Name", data.User.FullName},
		{"Email", data.User.Email},
		{"Role", string(data.User.Role)},
		{"Department", orDash(data.User.Department)},
		{"Team", orDash(data.TeamName)},
		{"Joined", data.User.CreatedAt.UTC().Format("2006-01-02")},
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(99, 102, 241)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(labelWidth, rowHeight, "Data Point", "1", 0, "L", true, 0, "")
	pdf.CellFormat(valueWidth, rowHeight, "Value", "1", 1, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.SetTextColor(0, 0, 0)
	for _, field := range profile {
		pdf.CellFormat(labelWidth, rowHeight, field[0], "1", 0, "L", true, 0, "")
		pdf.CellFormat(valueWidth, rowHeight, tr(field[1]), "1", 1, "L", true, 0, "")
	}
	pdf.Ln(6)

	section(fmt.Sprintf("Ticket Summary (%d Total)", len(data.Tickets)))
	if len(data.Tickets) == 0 {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, "No tickets found.", "", 1, "L", false, 0, "")
	} else {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(220, 220, 220)
		pdf.CellFormat(30, 7, "ID", "1", 0, "L", true, 0, "")
		pdf.CellFormat(90, 7, "Title", "1", 0, "L", true, 0, "")
		pdf.CellFormat(30, 7, "Status", "1", 0, "L", true, 0, "")
		pdf.CellFormat(30, 7, "Date", "1", 1, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, t := range data.Tickets {
			pdf.CellFormat(30, 7, truncate(t.ID, 8), "1", 0, "L", false, 0, "")
			pdf.CellFormat(90, 7, tr(truncate(t.Title, reportTitleWidth)), "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 7, string(t.Status), "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 7, t.CreatedAt.UTC().Format("2006-01-02"), "1", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(6)

	section(fmt.Sprintf("My Comments (%d Total)", len(data.Comments)))
	pdf.SetFont("Helvetica", "", 9)
	if len(data.Comments) == 0 {
		pdf.CellFormat(0, 6, "No comments found.", "", 1, "L", false, 0, "")
	}
	for _, c := range data.Comments {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(0, 6, fmt.Sprintf("Ticket %s, %s", c.TicketID, c.CreatedAt.UTC().Format(pdfTimeLayout)), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, tr(c.Text), "", "L", false)
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render personal data report: %w", err)
	}
	return buf.Bytes(), nil
}

func slaLine(doc TicketDocument) string {
	if doc.SLAStatus == "" {
		return "-"
	}
	return fmt.Sprintf("%s (due %s)", doc.SLAStatus, doc.SLADeadline.UTC().Format(pdfTimeLayout))
}
