// ABOUTME: KML line-string writer on go-kml and KMZ packaging
// ABOUTME: The archive holds exactly one doc.kml entry

package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"image/color"
	"strings"

	"github.com/harper/rotograma/internal/models"
	"github.com/twpayne/go-kml/v2"
)

// KMLNamespace is the OGC KML 2.2 namespace.
const KMLNamespace = kml.Namespace

// KMZEntry is the single file inside a KMZ archive.
const KMZEntry = "doc.kml"

// Track line style, written as aabbggrr.
const (
	lineStyleID    = "track"
	lineStyleWidth = 4
)

var lineStyleColor = color.RGBA{R: 0xff, A: 0xff}

// Coordinates renders points as space-separated lon,lat,ele tuples.
func Coordinates(points []models.TrackPoint) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = formatFloat(p.Longitude) + "," + formatFloat(p.Latitude) + "," + formatFloat(p.Elevation)
	}
	return strings.Join(parts, " ")
}

// coordinates keeps the elevation of every tuple, including zeros.
func coordinates(points []models.TrackPoint) *kml.SimpleElement {
	return &kml.SimpleElement{
		StartElement: xml.StartElement{Name: xml.Name{Local: "coordinates"}},
		Value:        Coordinates(points),
	}
}

// KML serializes the track as a single-placemark KML document.
func KML(s *models.Session) ([]byte, error) {
	if len(s.TrackPoints) == 0 {
		return nil, ErrEmptyTrack
	}

	style := kml.SharedStyle(lineStyleID,
		kml.LineStyle(
			kml.Color(lineStyleColor),
			kml.Width(lineStyleWidth),
		),
	)
	doc := kml.KML(
		kml.Document(
			kml.Name(trackName(s)),
			style,
			kml.Placemark(
				kml.Name(trackName(s)),
				kml.StyleURL(style.URL()),
				kml.LineString(
					kml.Tessellate(true),
					kml.AltitudeMode(kml.AltitudeModeClampToGround),
					coordinates(s.TrackPoints),
				),
			),
		),
	)

	var buf bytes.Buffer
	if err := doc.WriteIndent(&buf, "", "  "); err != nil {
		return nil, fmt.Errorf("encode kml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// KMZ packages the KML document into a compressed archive.
func KMZ(s *models.Session) ([]byte, error) {
	doc, err := KML(s)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     KMZEntry,
		Method:   zip.Deflate,
		Modified: s.StartedAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create kmz entry: %w", err)
	}
	if _, err := w.Write(doc); err != nil {
		return nil, fmt.Errorf("write kmz entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close kmz: %w", err)
	}
	return buf.Bytes(), nil
}
