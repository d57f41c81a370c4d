// ABOUTME: GPX 1.1 track writer and reader built on go-gpx
// ABOUTME: One trk/trkseg with a trkpt per track point, full coordinate precision

package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/harper/rotograma/internal/models"
	"github.com/twpayne/go-gpx"
)

// GPXNamespace is the GPX 1.1 schema namespace.
const GPXNamespace = "http://www.topografix.com/GPX/1/1"

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// trackName is session-scoped so repeated exports stay byte-identical.
func trackName(s *models.Session) string {
	return FilePrefix + " " + s.ID.String()
}

// GPX serializes the session track as a GPX 1.1 document. Coordinates and
// elevations keep every digit; times are written in UTC with nanoseconds.
// A zero elevation is left out and reads back as 0.
func GPX(s *models.Session) ([]byte, error) {
	if len(s.TrackPoints) == 0 {
		return nil, ErrEmptyTrack
	}

	seg := &gpx.TrkSegType{TrkPt: make([]*gpx.WptType, len(s.TrackPoints))}
	for i, p := range s.TrackPoints {
		seg.TrkPt[i] = &gpx.WptType{
			Lat:  p.Latitude,
			Lon:  p.Longitude,
			Ele:  p.Elevation,
			Time: p.Timestamp,
		}
	}

	doc := &gpx.GPX{
		Version:  "1.1",
		Creator:  FilePrefix,
		Metadata: &gpx.MetadataType{Name: trackName(s), Time: s.StartedAt.UTC()},
		Trk:      []*gpx.TrkType{{Name: trackName(s), TrkSeg: []*gpx.TrkSegType{seg}}},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := doc.WriteIndent(&buf, "", "  "); err != nil {
		return nil, fmt.Errorf("encode gpx: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// trimmedTokens strips the padding that pretty-printers leave around
// element text, so "<ele>\n  12.5\n</ele>" reads as 12.5.
type trimmedTokens struct {
	d *xml.Decoder
}

func (t trimmedTokens) Token() (xml.Token, error) {
	tok, err := t.d.Token()
	if cd, ok := tok.(xml.CharData); ok {
		tok = xml.CharData(bytes.TrimSpace(cd))
	}
	return tok, err
}

// ParseGPX reads every trkpt of every track and segment in document order.
// Missing elevations read as 0 and missing times as the zero time.
func ParseGPX(data []byte) ([]models.TrackPoint, error) {
	dec := xml.NewTokenDecoder(trimmedTokens{d: xml.NewDecoder(bytes.NewReader(data))})

	var doc gpx.GPX
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse gpx: %w", err)
	}

	var points []models.TrackPoint
	for _, trk := range doc.Trk {
		for _, seg := range trk.TrkSeg {
			for i, w := range seg.TrkPt {
				if err := models.ValidateCoordinates(w.Lat, w.Lon); err != nil {
					return nil, fmt.Errorf("trkpt %d: %w", i, err)
				}
				points = append(points, models.TrackPoint{
					Latitude:  w.Lat,
					Longitude: w.Lon,
					Elevation: w.Ele,
					Timestamp: w.Time,
				})
			}
		}
	}
	return points, nil
}
