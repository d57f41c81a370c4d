// ABOUTME: MCP resource definitions
// ABOUTME: Provides read-only views for AI agents

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TripsResourceURI lists every stored trip.
const TripsResourceURI = "rotograma://trips"

func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		Name:        TripsResourceURI,
		Description: "All recorded trips with point and capture counts",
		URI:         TripsResourceURI,
		MIMEType:    "application/json",
	}, s.handleTripsResource)
}

func (s *Server) handleTripsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	output, err := s.listTrips()
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}

	jsonBytes, _ := json.MarshalIndent(output, "", "  ") //nolint:errchkjson // output is always serializable

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      TripsResourceURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		},
	}, nil
}
