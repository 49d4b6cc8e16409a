package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"justibot/internal/cases"
	"justibot/internal/storage"
)

// PDFService renders the finalized legal document for a case. One artifact per
// case, named case_<id>.pdf under the static directory. Each render attempt is
// staged privately and only published once the finalization wins, so a
// concurrent losing attempt never overwrites the winner's document.
type PDFService struct {
	files *storage.FileManager
}

func NewPDFService(files *storage.FileManager) *PDFService {
	return &PDFService{files: files}
}

type renderedPDF struct {
	name    string
	tmpPath string
	outPath string
}

func (d *renderedPDF) Name() string {
	return d.name
}

func (d *renderedPDF) Publish() error {
	if err := os.Rename(d.tmpPath, d.outPath); err != nil {
		os.Remove(d.tmpPath)
		return fmt.Errorf("publish pdf: %w", err)
	}
	return nil
}

func (d *renderedPDF) Discard() {
	os.Remove(d.tmpPath)
}

// Render writes the document into the staging directory and returns it as an
// unpublished artifact carrying the stable name case_<id>.pdf.
func (s *PDFService) Render(ctx context.Context, caseID uint, legalText, citizenName, citizenID, city string) (cases.RenderedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Caso %d", caseID), false)
	pdf.SetAuthor("JustiBot", false)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s, %s", city, time.Now().Format("02/01/2006"))), "", 1, "R", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr("SEÑORES"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 6, tr("A quien corresponda"), "", 1, "L", false, 0, "")
	pdf.Ln(8)

	s.writeBody(pdf, tr, legalText)
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 6, tr("Atentamente,"), "", 1, "L", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 6, tr(citizenName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("C.C. %s", citizenID)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(city), "", 1, "L", false, 0, "")

	tmp, err := os.CreateTemp(s.files.StagingDir(), fmt.Sprintf("case_%d_*.pdf", caseID))
	if err != nil {
		return nil, fmt.Errorf("stage pdf: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := pdf.OutputFileAndClose(tmpPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	return &renderedPDF{
		name:    s.files.DocumentName(caseID),
		tmpPath: tmpPath,
		outPath: s.files.DocumentPath(caseID),
	}, nil
}

func (s *PDFService) writeBody(pdf *gofpdf.Fpdf, tr func(string) string, content string) {
	pdf.SetFont("Helvetica", "", 12)

	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			pdf.Ln(4)
			continue
		}
		pdf.MultiCell(0, 6, tr(line), "", "J", false)
	}
}
