// ABOUTME: MCP tool definitions and handlers
// ABOUTME: Lets AI agents browse, export and remove recorded trips

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harper/rotograma/internal/export"
	"github.com/harper/rotograma/internal/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	s.registerListTripsTool()
	s.registerGetTripTool()
	s.registerExportTrackTool()
	s.registerRemoveTripTool()
}

func textResult(v any) *mcp.CallToolResult {
	jsonBytes, _ := json.MarshalIndent(v, "", "  ") //nolint:errchkjson // output is always serializable
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(jsonBytes)}},
	}
}

var idSchema = map[string]interface{}{
	"type":        "string",
	"description": "Trip ID or a unique prefix of it (e.g., '0b7f5a52')",
}

// TripOutput defines output for trip listings.
type TripOutput struct {
	ID              string     `json:"id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds float64    `json:"duration_seconds"`
	Points          int        `json:"points"`
	Captures        int        `json:"captures"`
	Degraded        int        `json:"degraded"`
	HasVideo        bool       `json:"has_video"`
}

// ListTripsOutput defines output for list_trips tool.
type ListTripsOutput struct {
	Trips []TripOutput `json:"trips"`
	Count int          `json:"count"`
}

// ListTripsInput is empty but required for type.
type ListTripsInput struct{}

func (s *Server) registerListTripsTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_trips",
		Description: "List all recorded trips, newest first, with point and capture counts.",
		InputSchema: map[string]interface{}{
			"type": "object",
		},
	}, s.handleListTrips)
}

func (s *Server) listTrips() (ListTripsOutput, error) {
	infos, err := s.repo.ListSessions()
	if err != nil {
		return ListTripsOutput{}, err
	}

	trips := make([]TripOutput, len(infos))
	for i, info := range infos {
		trips[i] = TripOutput{
			ID:        info.ID.String(),
			StartedAt: info.StartedAt,
			EndedAt:   info.EndedAt,
			Points:    info.Points,
			Captures:  info.Captures,
			Degraded:  info.Degraded,
			HasVideo:  info.HasVideo,
		}
		if info.EndedAt != nil {
			trips[i].DurationSeconds = info.EndedAt.Sub(info.StartedAt).Seconds()
		}
	}
	return ListTripsOutput{Trips: trips, Count: len(trips)}, nil
}

func (s *Server) handleListTrips(_ context.Context, req *mcp.CallToolRequest, input ListTripsInput) (*mcp.CallToolResult, ListTripsOutput, error) {
	output, err := s.listTrips()
	if err != nil {
		return nil, ListTripsOutput{}, fmt.Errorf("failed to list trips: %w", err)
	}
	return textResult(output), output, nil
}

// GetTripInput defines input for get_trip tool.
type GetTripInput struct {
	ID string `json:"id"`
}

// CaptureOutput describes one capture without its image.
type CaptureOutput struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	CapturedAt time.Time `json:"captured_at"`
	Degraded   bool      `json:"degraded"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
}

// TripDetailOutput defines output for get_trip tool.
type TripDetailOutput struct {
	TripOutput
	DistanceM      float64         `json:"distance_m"`
	ElevationGainM float64         `json:"elevation_gain_m"`
	Events         []CaptureOutput `json:"events"`
}

func (s *Server) registerGetTripTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_trip",
		Description: "Get a recorded trip with its summary and labelled captures.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": idSchema,
			},
			"required": []string{"id"},
		},
	}, s.handleGetTrip)
}

func (s *Server) handleGetTrip(_ context.Context, req *mcp.CallToolRequest, input GetTripInput) (*mcp.CallToolResult, TripDetailOutput, error) {
	sess, err := s.repo.ResolveSession(input.ID)
	if err != nil {
		return nil, TripDetailOutput{}, fmt.Errorf("trip '%s' not found: %w", input.ID, err)
	}

	sum := export.Summarize(sess)
	output := TripDetailOutput{
		TripOutput: TripOutput{
			ID:              sess.ID.String(),
			StartedAt:       sess.StartedAt,
			EndedAt:         sess.EndedAt,
			DurationSeconds: sum.Duration.Seconds(),
			Points:          sum.PointCount,
			Captures:        sum.CaptureCount,
			Degraded:        sum.DegradedCount,
			HasVideo:        sess.Video != nil,
		},
		DistanceM:      sum.DistanceM,
		ElevationGainM: sum.ElevationGainM,
		Events:         make([]CaptureOutput, len(sess.CaptureEvents)),
	}
	for i, ev := range sess.CaptureEvents {
		co := CaptureOutput{
			ID:         ev.ID.String(),
			Label:      ev.Label,
			CapturedAt: ev.Timestamp,
			Degraded:   ev.Degraded,
		}
		if ev.Nearest != nil {
			lat, lng := ev.Nearest.Latitude, ev.Nearest.Longitude
			co.Latitude, co.Longitude = &lat, &lng
		}
		output.Events[i] = co
	}

	return textResult(output), output, nil
}

// ExportTrackInput defines input for export_track tool.
type ExportTrackInput struct {
	ID     string `json:"id"`
	Format string `json:"format"`
}

// ExportTrackOutput carries a text track document.
type ExportTrackOutput struct {
	FileName string `json:"file_name"`
	MIMEType string `json:"mime_type"`
	Content  string `json:"content"`
}

func (s *Server) registerExportTrackTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "export_track",
		Description: "Export a trip's track as GPX, GeoJSON or KML text.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": idSchema,
				"format": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"gpx", "geojson", "kml"},
					"description": "Track format (default gpx)",
				},
			},
			"required": []string{"id"},
		},
	}, s.handleExportTrack)
}

func (s *Server) handleExportTrack(_ context.Context, req *mcp.CallToolRequest, input ExportTrackInput) (*mcp.CallToolResult, ExportTrackOutput, error) {
	sess, err := s.repo.ResolveSession(input.ID)
	if err != nil {
		return nil, ExportTrackOutput{}, fmt.Errorf("trip '%s' not found: %w", input.ID, err)
	}

	format := strings.ToLower(strings.TrimSpace(input.Format))
	var output ExportTrackOutput
	switch format {
	case "", "gpx", "geojson":
		if format == "" {
			format = "gpx"
		}
		doc, err := s.engine.Export(sess, models.Format(format))
		if err != nil {
			return nil, ExportTrackOutput{}, fmt.Errorf("failed to export track: %w", err)
		}
		output = ExportTrackOutput{FileName: doc.Name, MIMEType: doc.MIMEType, Content: string(doc.Payload)}
	case "kml":
		data, err := export.KML(sess)
		if err != nil {
			return nil, ExportTrackOutput{}, fmt.Errorf("failed to export track: %w", err)
		}
		output = ExportTrackOutput{
			FileName: export.FileName(sess.StartedAt, "kml"),
			MIMEType: "application/vnd.google-earth.kml+xml",
			Content:  string(data),
		}
	default:
		return nil, ExportTrackOutput{}, fmt.Errorf("unsupported track format: %q", input.Format)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: output.Content}},
	}, output, nil
}

// RemoveTripInput defines input for remove_trip tool.
type RemoveTripInput struct {
	ID string `json:"id"`
}

// RemoveTripOutput defines output for remove_trip tool.
type RemoveTripOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) registerRemoveTripTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "remove_trip",
		Description: "Remove a trip with its track, captures and video. This cannot be undone.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id": idSchema,
			},
			"required": []string{"id"},
		},
	}, s.handleRemoveTrip)
}

func (s *Server) handleRemoveTrip(_ context.Context, req *mcp.CallToolRequest, input RemoveTripInput) (*mcp.CallToolResult, RemoveTripOutput, error) {
	sess, err := s.repo.ResolveSession(input.ID)
	if err != nil {
		return nil, RemoveTripOutput{}, fmt.Errorf("trip '%s' not found: %w", input.ID, err)
	}

	if err := s.repo.DeleteSession(sess.ID); err != nil {
		return nil, RemoveTripOutput{}, fmt.Errorf("failed to remove trip: %w", err)
	}

	output := RemoveTripOutput{
		Success: true,
		Message: fmt.Sprintf("Removed trip %s", sess.ID),
	}
	return textResult(output), output, nil
}
