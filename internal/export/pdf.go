// ABOUTME: Landscape PDF report of capture events
// ABOUTME: One row per capture pairing label and time with the image in a fixed box

package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/harper/rotograma/internal/models"
)

// DefaultReportTitle heads reports when no title is configured.
const DefaultReportTitle = "Rotograma"

// Report geometry in millimetres on landscape A4 (297x210).
const (
	ImageBoxWidth  = 120.0
	ImageBoxHeight = 67.5
	pageMargin     = 10.0
	headerHeight   = 14.0
	rowHeight      = 62.0
	RowsPerPage    = 3
)

const reportTimeLayout = "2006-01-02 15:04:05 MST"

// PDFOptions controls report metadata.
type PDFOptions struct {
	Title string
	// CreatedAt pins the document dates; zero leaves the library default.
	CreatedAt time.Time
}

// PDF renders the events in capture order. An empty list yields a valid one-page report.
func PDF(events []models.CaptureEvent, opts PDFOptions) ([]byte, error) {
	pdf, err := renderPDF(events, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func renderPDF(events []models.CaptureEvent, opts PDFOptions) (*fpdf.Fpdf, error) {
	title := opts.Title
	if title == "" {
		title = DefaultReportTitle
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(title, true)
	pdf.SetCreator(FilePrefix, true)
	if !opts.CreatedAt.IsZero() {
		pdf.SetCreationDate(opts.CreatedAt.UTC())
		pdf.SetModificationDate(opts.CreatedAt.UTC())
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 14)
		pdf.Text(pageMargin, pageMargin+4, tr(title))
	}

	header()
	if len(events) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.Text(pageMargin, pageMargin+headerHeight+4, tr("Nenhum evento registrado."))
	}

	for i, ev := range events {
		if i > 0 && i%RowsPerPage == 0 {
			header()
		}
		y := pageMargin + headerHeight + float64(i%RowsPerPage)*rowHeight
		textX := pageMargin + ImageBoxWidth + 8

		if len(ev.Image) > 0 {
			name := fmt.Sprintf("capture-%d", i)
			opt := fpdf.ImageOptions{ImageType: "JPG"}
			pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(ev.Image))
			pdf.ImageOptions(name, pageMargin, y, ImageBoxWidth, ImageBoxHeight, false, opt, 0, "")
		} else {
			pdf.Rect(pageMargin, y, ImageBoxWidth, ImageBoxHeight, "D")
		}

		pdf.SetFont("Helvetica", "B", 12)
		pdf.Text(textX, y+8, tr("Evento: "+ev.Label))
		pdf.SetFont("Helvetica", "", 11)
		pdf.Text(textX, y+16, ev.Timestamp.UTC().Format(reportTimeLayout))
		if ev.Nearest != nil {
			pdf.Text(textX, y+24, fmt.Sprintf("%.6f, %.6f", ev.Nearest.Latitude, ev.Nearest.Longitude))
		}
		if ev.Degraded {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.Text(textX, y+32, tr("sem mapa"))
		}

		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("render event %d: %w", i, err)
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return pdf, nil
}
