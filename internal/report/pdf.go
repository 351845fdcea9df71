package report

import (
	"bufio"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// writeTextPDF renders the plain-text report into a monospaced PDF so the
// column layout survives. Text is translated to the core font code page.
func writeTextPDF(text string, outPath string) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Courier", "", 8)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			pdf.Ln(4)
			continue
		}
		if strings.HasPrefix(line, "SOURCE: ") || strings.HasPrefix(line, "TOPIC:  ") {
			pdf.SetFont("Courier", "B", 8)
			pdf.MultiCell(0, 4, tr(line), "", "L", false)
			pdf.SetFont("Courier", "", 8)
			continue
		}
		pdf.MultiCell(0, 4, tr(line), "", "L", false)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return pdf.OutputFileAndClose(outPath)
}
