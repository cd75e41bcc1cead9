package export

import (
	"fmt"
	"io"

	"github.com/adamspd/mcqtest/models"
	"github.com/adamspd/mcqtest/session"
	"github.com/jung-kurt/gofpdf"
)

// PDFOptions configures PDF rendering. With FontPath set, a UTF-8 TrueType font
// is embedded; otherwise the core Helvetica font is used and characters outside
// cp1252 are lost.
type PDFOptions struct {
	FontPath string
}

const fontFamily = "Report"

// WritePDF renders a result the same way WriteCSV does, as a paged report.
func WritePDF(w io.Writer, r models.Result, opts PDFOptions) error {
	pdf := gofpdf.New("P", "mm", "A4", "")

	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if opts.FontPath != "" {
		pdf.AddUTF8Font(fontFamily, "", opts.FontPath)
		pdf.AddUTF8Font(fontFamily, "B", opts.FontPath)
		family = fontFamily
		tr = func(s string) string { return s }
	}

	pdf.SetTitle("Test Results", true)
	pdf.AddPage()

	pdf.SetFont(family, "B", 16)
	pdf.MultiCell(0, 10, tr("Test Results"), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont(family, "", 12)
	for _, row := range summaryRows(r) {
		pdf.MultiCell(0, 7, tr(row[0]+": "+row[1]), "", "L", false)
	}
	pdf.Ln(4)

	pdf.SetFont(family, "B", 14)
	pdf.MultiCell(0, 9, tr("Detailed Results"), "", "L", false)
	pdf.Ln(2)

	for _, item := range session.Review(r) {
		row := detailRow(item)

		pdf.SetFont(family, "B", 12)
		pdf.MultiCell(0, 7, tr(fmt.Sprintf("Question %d: %s", item.Number, row[3])), "", "L", false)

		pdf.SetFont(family, "", 12)
		pdf.MultiCell(0, 7, tr(row[0]), "", "L", false)
		pdf.MultiCell(0, 7, tr(fmt.Sprintf("Your answer: %s\nCorrect answer: %s", row[1], row[2])), "", "L", false)
		pdf.Ln(3)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
