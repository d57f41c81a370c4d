// ABOUTME: Tests for CLI commands
// ABOUTME: Tests record, list, show, export, backup, import, remove and skill commands

package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harper/rotograma/internal/compositor"
	"github.com/harper/rotograma/internal/config"
	"github.com/harper/rotograma/internal/export"
	"github.com/harper/rotograma/internal/models"
	"github.com/harper/rotograma/internal/storage"
)

var tripStart = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// testDB creates a temporary database for testing and sets the global db variable.
func testDB(t *testing.T) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	sqlite, err := storage.NewSQLiteDB(dbPath)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	db = sqlite
	cfg = &config.Config{}
	t.Cleanup(func() {
		if db != nil {
			_ = db.Close()
			db = nil
		}
	})
}

// seedTrip stores a finalized trip with one capture and returns it.
func seedTrip(t *testing.T, start time.Time) *models.Session {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.White)
	jpg, err := compositor.EncodeJPEG(img, 80)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}

	s := models.NewSession()
	s.StartedAt = start
	ended := start.Add(2 * time.Minute)
	s.EndedAt = &ended
	s.State = models.StateFinalized
	s.TrackPoints = []models.TrackPoint{
		{Latitude: 41.8781, Longitude: -87.6298, Elevation: 180, Timestamp: start},
		{Latitude: 41.8790, Longitude: -87.6290, Elevation: 182, Timestamp: start.Add(time.Minute)},
	}
	nearest := s.TrackPoints[1]
	s.CaptureEvents = []models.CaptureEvent{
		*models.NewCaptureEvent("bridge", jpg, start.Add(50*time.Second), &nearest, false),
	}
	s.Video = &models.VideoBlob{MIMEType: "video/webm", Data: []byte("webm-bytes")}

	if err := db.SaveSession(s); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	return s
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Tests for rootCmd

func TestRootCmd_Metadata(t *testing.T) {
	if rootCmd.Use != "rotograma" {
		t.Errorf("expected Use 'rotograma', got %q", rootCmd.Use)
	}
	if !strings.Contains(rootCmd.Long, "labelled map captures") {
		t.Error("expected description in Long")
	}
	if rootCmd.PersistentFlags().Lookup("verbose") == nil {
		t.Error("verbose flag not found")
	}
}

func TestNewLogger_Levels(t *testing.T) {
	l := newLogger("warn", false)
	if l.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled at warn level")
	}
	l = newLogger("warn", true)
	if !l.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("verbose should enable debug")
	}
	l = newLogger("bogus", false)
	if !l.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("unknown level should fall back to info")
	}
}

// Tests for recordCmd

func TestRecordCmd_Metadata(t *testing.T) {
	if recordCmd.Use != "record" {
		t.Errorf("unexpected Use: %q", recordCmd.Use)
	}
	if !contains(recordCmd.Aliases, "rec") {
		t.Error("expected alias 'rec'")
	}
	for _, name := range []string{"from", "to", "points", "interval", "capture", "export", "out", "no-map", "reduced", "route"} {
		if recordCmd.Flags().Lookup(name) == nil {
			t.Errorf("flag %q not found", name)
		}
	}
}

func TestParseLatLng(t *testing.T) {
	lat, lng, err := parseLatLng("41.8781, -87.6298")
	if err != nil {
		t.Fatalf("parseLatLng failed: %v", err)
	}
	if lat != 41.8781 || lng != -87.6298 {
		t.Errorf("unexpected coordinates: %v, %v", lat, lng)
	}

	for _, bad := range []string{"", "41.8", "a,b", "91,0", "0,181", "1,2,3"} {
		if _, _, err := parseLatLng(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestLoadRoute(t *testing.T) {
	testDB(t)
	s := seedTrip(t, tripStart)
	gpx, err := export.GPX(s)
	if err != nil {
		t.Fatalf("GPX failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "route.gpx")
	if err := os.WriteFile(path, gpx, 0600); err != nil {
		t.Fatal(err)
	}

	route, err := loadRoute(path)
	if err != nil {
		t.Fatalf("loadRoute failed: %v", err)
	}
	if len(route) != 2 || route[1].Latitude != 41.8790 {
		t.Errorf("unexpected route: %+v", route)
	}

	if _, err := loadRoute(filepath.Join(t.TempDir(), "missing.gpx")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.gpx")
	_ = os.WriteFile(bad, []byte("<gpx><trk><trkseg><trkpt lat=\"1\" lon=\"2\"/></trkseg></trk></gpx>"), 0600)
	if _, err := loadRoute(bad); err == nil {
		t.Error("expected error for a single-point route")
	}
}

func setRecordFlags(t *testing.T, values map[string]string) {
	t.Helper()
	for name, value := range values {
		if err := recordCmd.Flags().Set(name, value); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
	t.Cleanup(func() {
		for name := range values {
			f := recordCmd.Flags().Lookup(name)
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		for _, name := range []string{"capture", "export"} {
			f := recordCmd.Flags().Lookup(name)
			if sv, ok := f.Value.(interface{ Replace([]string) error }); ok {
				_ = sv.Replace(nil)
			}
		}
	})
}

func TestRecordCmd_SimulatedTrip(t *testing.T) {
	testDB(t)
	outDir := t.TempDir()

	setRecordFlags(t, map[string]string{
		"points":   "8",
		"interval": "5ms",
		"capture":  "school zone",
		"export":   "gpx",
		"out":      outDir,
	})
	if err := recordCmd.Flags().Set("capture", "bridge"); err != nil {
		t.Fatal(err)
	}

	if err := recordCmd.RunE(recordCmd, []string{}); err != nil {
		t.Fatalf("recordCmd failed: %v", err)
	}

	infos, err := db.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected 1 trip, got %d", len(infos))
	}
	info := infos[0]
	if info.Points != 8 {
		t.Errorf("expected 8 points, got %d", info.Points)
	}
	if info.Captures != 2 {
		t.Errorf("expected 2 captures, got %d", info.Captures)
	}
	if !info.HasVideo {
		t.Error("expected a stored video")
	}

	sess, err := db.GetSession(info.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess.CaptureEvents[0].Label != "school zone" || sess.CaptureEvents[1].Label != "bridge" {
		t.Errorf("captures out of order: %q, %q", sess.CaptureEvents[0].Label, sess.CaptureEvents[1].Label)
	}
	if sess.Video.MIMEType != "video/x-motion-jpeg" {
		t.Errorf("unexpected video type %q", sess.Video.MIMEType)
	}

	matches, _ := filepath.Glob(filepath.Join(outDir, "rotograma_*.gpx"))
	if len(matches) != 1 {
		t.Errorf("expected one gpx export, got %v", matches)
	}
}

func TestRecordCmd_ReducedWithoutMap(t *testing.T) {
	testDB(t)

	setRecordFlags(t, map[string]string{
		"points":   "4",
		"interval": "5ms",
		"capture":  "gate",
		"no-map":   "true",
		"reduced":  "true",
	})

	if err := recordCmd.RunE(recordCmd, []string{}); err != nil {
		t.Fatalf("recordCmd failed: %v", err)
	}

	infos, _ := db.ListSessions()
	if len(infos) != 1 {
		t.Fatalf("expected 1 trip, got %d", len(infos))
	}
	if infos[0].Degraded != 1 {
		t.Errorf("expected the capture to be saved without map, got %d degraded", infos[0].Degraded)
	}
}

func TestRecordCmd_InvalidFlags(t *testing.T) {
	testDB(t)

	tests := []map[string]string{
		{"from": "nope"},
		{"to": "95,0"},
		{"points": "1"},
		{"interval": "0s"},
		{"export": "docx"},
		{"capture": "bad\x07label"},
	}
	for _, flags := range tests {
		t.Run(strings.Join(keys(flags), ","), func(t *testing.T) {
			setRecordFlags(t, flags)
			if err := recordCmd.RunE(recordCmd, []string{}); err == nil {
				t.Error("expected error")
			}
		})
	}

	infos, _ := db.ListSessions()
	if len(infos) != 0 {
		t.Errorf("no trip should be stored, got %d", len(infos))
	}
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Tests for listCmd

func TestListCmd_Metadata(t *testing.T) {
	if listCmd.Use != "list" {
		t.Errorf("unexpected Use: %q", listCmd.Use)
	}
	if !contains(listCmd.Aliases, "ls") {
		t.Error("expected alias 'ls'")
	}
}

func TestListCmd_Empty(t *testing.T) {
	testDB(t)

	if err := listCmd.RunE(listCmd, []string{}); err != nil {
		t.Fatalf("listCmd failed: %v", err)
	}
}

func TestListCmd_WithTrips(t *testing.T) {
	testDB(t)
	seedTrip(t, tripStart)
	seedTrip(t, tripStart.Add(time.Hour))

	if err := listCmd.RunE(listCmd, []string{}); err != nil {
		t.Fatalf("listCmd failed: %v", err)
	}
}

// Tests for showCmd

func TestShowCmd_Success(t *testing.T) {
	testDB(t)
	s := seedTrip(t, tripStart)

	if err := showCmd.RunE(showCmd, []string{s.ID.String()[:8]}); err != nil {
		t.Fatalf("showCmd failed: %v", err)
	}
}

func TestShowCmd_Markdown(t *testing.T) {
	testDB(t)
	s := seedTrip(t, tripStart)

	showCmd.Flags().Set("markdown", "true")
	defer showCmd.Flags().Set("markdown", "false")

	if err := showCmd.RunE(showCmd, []string{s.ID.String()}); err != nil {
		t.Fatalf("showCmd failed: %v", err)
	}
}

func TestShowCmd_NotFound(t *testing.T) {
	testDB(t)

	if err := showCmd.RunE(showCmd, []string{"ffffffff"}); err == nil {
		t.Error("expected error for unknown trip")
	}
}

// Tests for exportCmd

func TestExportCmd_Metadata(t *testing.T) {
	if exportCmd.Use != "export <id>" {
		t.Errorf("unexpected Use: %q", exportCmd.Use)
	}
	flag := exportCmd.Flags().Lookup("format")
	if flag == nil {
		t.Fatal("format flag not found")
	}
	if flag.DefValue != "gpx" {
		t.Errorf("expected default format gpx, got %q", flag.DefValue)
	}
}

func TestExportCmd_Formats(t *testing.T) {
	testDB(t)
	s := seedTrip(t, tripStart)

	tests := []struct {
		format string
		name   string
		prefix []byte
	}{
		{"gpx", "rotograma_2024-05-01T10-00-00-000Z.gpx", []byte("<?xml")},
		{"kmz", "rotograma_2024-05-01T10-00-00-000Z.kmz", []byte("PK")},
		{"pdf", "rotograma_2024-05-01T10-00-00-000Z.pdf", []byte("%PDF")},
		{"geojson", "rotograma_2024-05-01T10-00-00-000Z.geojson", []byte("{")},
		{"video", "rotograma_2024-05-01T10-00-00-000Z.webm", []byte("webm-bytes")},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			dir := t.TempDir()
			exportCmd.Flags().Set("format", tt.format)
			exportCmd.Flags().Set("dir", dir)
			defer exportCmd.Flags().Set("format", "gpx")
			defer exportCmd.Flags().Set("dir", ".")

			if err := exportCmd.RunE(exportCmd, []string{s.ID.String()}); err != nil {
				t.Fatalf("exportCmd failed: %v", err)
			}

			data, err := os.ReadFile(filepath.Join(dir, tt.name))
			if err != nil {
				t.Fatalf("export file not written: %v", err)
			}
			if !bytes.HasPrefix(bytes.TrimSpace(data), tt.prefix) {
				t.Errorf("unexpected payload start %q", data[:min(len(data), 16)])
			}
		})
	}
}

func TestExportCmd_ExplicitOutput(t *testing.T) {
	testDB(t)
	s := seedTrip(t, tripStart)

	output := filepath.Join(t.TempDir(), "track.gpx")
	exportCmd.Flags().Set("output", output)
	defer exportCmd.Flags().Set("output", "")

	if err := exportCmd.RunE(exportCmd, []string{s.ID.String()}); err != nil {
		t.Fatalf("exportCmd failed: %v", err)
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestExportCmd_InvalidFormat(t *testing.T) {
	testDB(t)
	s := seedTrip(t, tripStart)

	exportCmd.Flags().Set("format", "docx")
	defer exportCmd.Flags().Set("format", "gpx")

	if err := exportCmd.RunE(exportCmd, []string{s.ID.String()}); err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestExportCmd_WriteError(t *testing.T) {
	testDB(t)
	s := seedTrip(t, tripStart)

	exportCmd.Flags().Set("output", filepath.Join(t.TempDir(), "missing", "track.gpx"))
	defer exportCmd.Flags().Set("output", "")

	if err := exportCmd.RunE(exportCmd, []string{s.ID.String()}); err == nil {
		t.Error("expected write error")
	}
}

// Tests for backupCmd and importCmd

func TestBackupCmd_OutputFlag(t *testing.T) {
	flag := backupCmd.Flags().Lookup("output")
	if flag == nil {
		t.Fatal("output flag not found")
	}
	if flag.Shorthand != "o" {
		t.Errorf("expected output shorthand 'o', got %q", flag.Shorthand)
	}
}

func TestImportBackupFlow(t *testing.T) {
	testDB(t)
	s := seedTrip(t, tripStart)

	backupPath := filepath.Join(t.TempDir(), "trips.yaml")
	backupCmd.Flags().Set("output", backupPath)
	defer backupCmd.Flags().Set("output", "")

	if err := backupCmd.RunE(backupCmd, []string{}); err != nil {
		t.Fatalf("backupCmd failed: %v", err)
	}

	// Fresh database
	testDB(t)

	importCmd.Flags().Set("confirm", "true")
	defer importCmd.Flags().Set("confirm", "false")

	if err := importCmd.RunE(importCmd, []string{backupPath}); err != nil {
		t.Fatalf("importCmd failed: %v", err)
	}

	got, err := db.GetSession(s.ID)
	if err != nil {
		t.Fatalf("imported trip not found: %v", err)
	}
	if len(got.CaptureEvents) != 1 || got.CaptureEvents[0].Label != "bridge" {
		t.Errorf("unexpected captures after import: %+v", got.CaptureEvents)
	}
	if got.Video != nil {
		t.Error("backups do not carry video")
	}
}

func TestImportCmd_FileNotFound(t *testing.T) {
	testDB(t)

	importCmd.Flags().Set("confirm", "true")
	defer importCmd.Flags().Set("confirm", "false")

	if err := importCmd.RunE(importCmd, []string{"/nonexistent/trips.yaml"}); err == nil {
		t.Error("expected error for missing file")
	}
}

// Tests for removeCmd

func TestRemoveCmd_WithConfirm(t *testing.T) {
	testDB(t)
	s := seedTrip(t, tripStart)

	removeCmd.Flags().Set("confirm", "true")
	defer removeCmd.Flags().Set("confirm", "false")

	if err := removeCmd.RunE(removeCmd, []string{s.ID.String()[:8]}); err != nil {
		t.Fatalf("removeCmd failed: %v", err)
	}

	if _, err := db.GetSession(s.ID); err == nil {
		t.Error("trip should have been deleted")
	}
}

func TestRemoveCmd_NotFound(t *testing.T) {
	testDB(t)

	removeCmd.Flags().Set("confirm", "true")
	defer removeCmd.Flags().Set("confirm", "false")

	if err := removeCmd.RunE(removeCmd, []string{"nonexistent"}); err == nil {
		t.Error("expected error for unknown trip")
	}
}

// Tests for mcpCmd

func TestMcpCmd_Metadata(t *testing.T) {
	if mcpCmd.Use != "mcp" {
		t.Errorf("unexpected Use: %q", mcpCmd.Use)
	}
}
