// ABOUTME: Export command writing a stored trip as GPX, KMZ, PDF, GeoJSON or video
// ABOUTME: File names follow the trip's start timestamp

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/harper/rotograma/internal/export"
	"github.com/harper/rotograma/internal/models"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:     "export <id>",
	Aliases: []string{"e"},
	Short:   "Export a trip",
	Long: `Export a recorded trip.

Formats:
  gpx      track as GPX 1.1
  kmz      track as zipped KML
  geojson  track and captures as GeoJSON
  pdf      one page per capture
  video    the recorded video stream

Examples:
  rotograma export 0b7f5a52 --format gpx
  rotograma export 0b7f5a52 --format pdf --output report.pdf
  rotograma export 0b7f5a52 --format geojson --output -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("format")
		format, err := models.ParseFormat(name)
		if err != nil {
			return err
		}

		sess, err := db.ResolveSession(args[0])
		if err != nil {
			return fmt.Errorf("trip '%s' not found: %w", args[0], err)
		}

		engine := export.Engine{ReportTitle: cfg.ReportTitle}
		doc, err := engine.Export(sess, format)
		if err != nil {
			return fmt.Errorf("failed to export trip: %w", err)
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "-" {
			_, err := os.Stdout.Write(doc.Payload)
			return err
		}
		if output == "" {
			dir, _ := cmd.Flags().GetString("dir")
			output = filepath.Join(dir, doc.Name)
		}

		if err := os.WriteFile(output, doc.Payload, 0644); err != nil { //nolint:gosec // 0644 is intentional for data export files
			return fmt.Errorf("failed to write file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s (%s, %d bytes)\n", output, doc.MIMEType, len(doc.Payload))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("format", "f", "gpx", "output format (gpx, kmz, geojson, pdf, video)")
	exportCmd.Flags().StringP("output", "o", "", "output file, - for stdout (default: generated name)")
	exportCmd.Flags().StringP("dir", "d", ".", "directory for the generated file name")

	rootCmd.AddCommand(exportCmd)
}
