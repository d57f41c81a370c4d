// ABOUTME: Export engine dispatching a session snapshot to a format writer
// ABOUTME: Names every document after the session start time

package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harper/rotograma/internal/models"
)

// ErrEmptyTrack is returned when a track export is requested for a session without points.
var ErrEmptyTrack = errors.New("session has no track points")

// ErrNoVideo is returned when the session carries no recorded media.
var ErrNoVideo = errors.New("session has no recorded video")

// FilePrefix starts every exported file name.
const FilePrefix = "rotograma"

// fileStampLayout is ISO-8601 UTC with millisecond precision.
const fileStampLayout = "2006-01-02T15:04:05.000Z"

var unsafeFileChars = strings.NewReplacer(":", "-", ".", "-", "/", "-", "\\", "-")

// FileName builds rotograma_<ISO8601 start>.<ext> with filesystem-unsafe characters replaced.
func FileName(start time.Time, ext string) string {
	stamp := unsafeFileChars.Replace(start.UTC().Format(fileStampLayout))
	return fmt.Sprintf("%s_%s.%s", FilePrefix, stamp, ext)
}

var mimeTypes = map[models.Format]string{
	models.FormatGPX:     "application/gpx+xml",
	models.FormatKMZ:     "application/vnd.google-earth.kmz",
	models.FormatPDF:     "application/pdf",
	models.FormatGeoJSON: "application/geo+json",
}

// Engine is a stateless transformer over session snapshots.
type Engine struct {
	// ReportTitle heads the PDF report. Defaults to DefaultReportTitle.
	ReportTitle string
}

// Export serializes the session in the requested format.
func (e Engine) Export(s *models.Session, format models.Format) (*models.ExportDocument, error) {
	var (
		payload []byte
		err     error
	)
	switch format {
	case models.FormatGPX:
		payload, err = GPX(s)
	case models.FormatKMZ:
		payload, err = KMZ(s)
	case models.FormatGeoJSON:
		payload, err = GeoJSON(s)
	case models.FormatPDF:
		title := e.ReportTitle
		if title == "" {
			title = DefaultReportTitle
		}
		payload, err = PDF(s.CaptureEvents, PDFOptions{Title: title, CreatedAt: s.StartedAt})
	case models.FormatVideo:
		return Video(s)
	default:
		return nil, fmt.Errorf("unsupported format: %q", format)
	}
	if err != nil {
		return nil, err
	}

	return &models.ExportDocument{
		Format:   format,
		Name:     FileName(s.StartedAt, string(format)),
		MIMEType: mimeTypes[format],
		Payload:  payload,
	}, nil
}

// Video packages the externally encoded media under a deterministic name.
func Video(s *models.Session) (*models.ExportDocument, error) {
	if s.Video == nil || len(s.Video.Data) == 0 {
		return nil, ErrNoVideo
	}
	mime := s.Video.MIMEType
	if mime == "" {
		mime = "video/webm"
	}
	return &models.ExportDocument{
		Format:   models.FormatVideo,
		Name:     FileName(s.StartedAt, s.Video.Extension()),
		MIMEType: mime,
		Payload:  s.Video.Data,
	}, nil
}
