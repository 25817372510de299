package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"communitycentre/internal/attendance"
)

const (
	pageMargin = 14.0
	lineHeight = 6.0
)

var columnWidths = []float64{40, 26, 24, 20, 72}

// PDF renders the attendance report, one table per day.
func PDF(w io.Writer, records []attendance.Record, opts Options) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	opts = opts.withDefaults()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	title := fmt.Sprintf("%s - Attendance Report", opts.Centre)
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 7, "Report generated on: "+opts.Now.In(opts.Location).Format("January 2, 2006 3:04 PM"), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	_, pageHeight := pdf.GetPageSize()
	bottom := pageHeight - pageMargin

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(59, 7, 100)
		pdf.SetTextColor(255, 255, 255)
		for i, col := range columns {
			pdf.CellFormat(columnWidths[i], lineHeight+1, col, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "", 9)
	}

	for _, day := range GroupByDay(records, opts.Location) {
		if pdf.GetY()+3*lineHeight > bottom {
			pdf.AddPage()
		}
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Date: "+day.Title(), "", 1, "L", false, 0, "")
		header()

		for _, r := range day.Records {
			cells := row(r, opts.Location)
			wrapped := make([][]string, len(cells))
			lines := 1
			for i, text := range cells {
				wrapped[i] = pdf.SplitText(tr(text), columnWidths[i]-2)
				if len(wrapped[i]) > lines {
					lines = len(wrapped[i])
				}
			}
			h := float64(lines) * lineHeight
			if pdf.GetY()+h > bottom {
				pdf.AddPage()
				header()
			}
			x, y := pdf.GetX(), pdf.GetY()
			for i, parts := range wrapped {
				pdf.Rect(x, y, columnWidths[i], h, "D")
				for j, part := range parts {
					pdf.SetXY(x+1, y+float64(j)*lineHeight)
					pdf.CellFormat(columnWidths[i]-2, lineHeight, part, "", 0, "L", false, 0, "")
				}
				x += columnWidths[i]
			}
			pdf.SetXY(pageMargin, y+h)
		}
		pdf.Ln(8)
	}

	return pdf.Output(w)
}
