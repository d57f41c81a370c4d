// ABOUTME: Export and import functionality for recorded trips
// ABOUTME: Supports YAML backup format and markdown export

package storage

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harper/rotograma/internal/models"
	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"
)

// BackupVersion is the current backup format version.
const BackupVersion = "1.0"

// BackupTool identifies backups written by this program.
const BackupTool = "rotograma"

// Backup represents the YAML backup format. Recorded video is not included.
type Backup struct {
	Version    string          `yaml:"version"`
	ExportedAt time.Time       `yaml:"exported_at"`
	Tool       string          `yaml:"tool"`
	Sessions   []SessionBackup `yaml:"sessions"`
}

// SessionBackup represents a session in the backup format.
type SessionBackup struct {
	ID        string          `yaml:"id"`
	StartedAt time.Time       `yaml:"started_at"`
	EndedAt   *time.Time      `yaml:"ended_at,omitempty"`
	Track     []PointBackup   `yaml:"track"`
	Captures  []CaptureBackup `yaml:"captures"`
}

// PointBackup represents a track point in the backup format.
type PointBackup struct {
	Latitude  float64   `yaml:"latitude"`
	Longitude float64   `yaml:"longitude"`
	Elevation float64   `yaml:"elevation,omitempty"`
	Time      time.Time `yaml:"time"`
}

// CaptureBackup represents a capture event. Image holds base64 JPEG.
type CaptureBackup struct {
	ID         string       `yaml:"id"`
	Label      string       `yaml:"label,omitempty"`
	CapturedAt time.Time    `yaml:"captured_at"`
	Degraded   bool         `yaml:"degraded,omitempty"`
	Nearest    *PointBackup `yaml:"nearest,omitempty"`
	Image      string       `yaml:"image,omitempty"`
}

// ImportSummary counts the outcome of an import.
type ImportSummary struct {
	Imported int
	Skipped  int
}

func toPointBackup(p models.TrackPoint) PointBackup {
	return PointBackup{Latitude: p.Latitude, Longitude: p.Longitude, Elevation: p.Elevation, Time: p.Timestamp.UTC()}
}

func fromPointBackup(p PointBackup) models.TrackPoint {
	return models.TrackPoint{Latitude: p.Latitude, Longitude: p.Longitude, Elevation: p.Elevation, Timestamp: p.Time.UTC()}
}

// ExportToYAML exports all sessions to YAML format.
func ExportToYAML(repo Repository) ([]byte, error) {
	infos, err := repo.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	backup := Backup{
		Version:    BackupVersion,
		ExportedAt: time.Now().UTC(),
		Tool:       BackupTool,
		Sessions:   make([]SessionBackup, 0, len(infos)),
	}

	for _, info := range infos {
		s, err := repo.GetSession(info.ID)
		if err != nil {
			return nil, fmt.Errorf("get session %s: %w", info.ID, err)
		}

		sb := SessionBackup{
			ID:        s.ID.String(),
			StartedAt: s.StartedAt.UTC(),
			EndedAt:   s.EndedAt,
			Track:     make([]PointBackup, len(s.TrackPoints)),
			Captures:  make([]CaptureBackup, len(s.CaptureEvents)),
		}
		for i, p := range s.TrackPoints {
			sb.Track[i] = toPointBackup(p)
		}
		for i, ev := range s.CaptureEvents {
			cb := CaptureBackup{
				ID:         ev.ID.String(),
				Label:      ev.Label,
				CapturedAt: ev.Timestamp.UTC(),
				Degraded:   ev.Degraded,
				Image:      base64.StdEncoding.EncodeToString(ev.Image),
			}
			if ev.Nearest != nil {
				nb := toPointBackup(*ev.Nearest)
				cb.Nearest = &nb
			}
			sb.Captures[i] = cb
		}
		backup.Sessions = append(backup.Sessions, sb)
	}

	return yaml.Marshal(backup)
}

// ImportFromYAML imports sessions from YAML format.
// Sessions already present are skipped.
func ImportFromYAML(repo Repository, data []byte) (*ImportSummary, error) {
	var backup Backup
	if err := yaml.Unmarshal(data, &backup); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if backup.Version != BackupVersion {
		return nil, fmt.Errorf("unsupported backup version: %s (expected %s)", backup.Version, BackupVersion)
	}

	if backup.Tool != BackupTool {
		return nil, fmt.Errorf("wrong tool: %s (expected %s)", backup.Tool, BackupTool)
	}

	summary := &ImportSummary{}
	for _, sb := range backup.Sessions {
		s, err := sessionFromBackup(sb)
		if err != nil {
			return nil, err
		}

		if _, err := repo.GetSession(s.ID); err == nil {
			summary.Skipped++
			continue
		}

		if err := repo.SaveSession(s); err != nil {
			return nil, fmt.Errorf("save session %s: %w", sb.ID, err)
		}
		summary.Imported++
	}

	return summary, nil
}

func sessionFromBackup(sb SessionBackup) (*models.Session, error) {
	id, err := uuid.Parse(sb.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid session ID %s: %w", sb.ID, err)
	}

	s := &models.Session{
		ID:        id,
		State:     models.StateFinalized,
		StartedAt: sb.StartedAt.UTC(),
		EndedAt:   sb.EndedAt,
	}

	for _, p := range sb.Track {
		if err := models.ValidateCoordinates(p.Latitude, p.Longitude); err != nil {
			return nil, fmt.Errorf("session %s: %w", sb.ID, err)
		}
		s.TrackPoints = append(s.TrackPoints, fromPointBackup(p))
	}

	for _, cb := range sb.Captures {
		evID, err := ulid.ParseStrict(cb.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid capture ID %s: %w", cb.ID, err)
		}
		if err := models.ValidateLabel(cb.Label); err != nil {
			return nil, fmt.Errorf("capture %s: %w", cb.ID, err)
		}
		img, err := base64.StdEncoding.DecodeString(cb.Image)
		if err != nil {
			return nil, fmt.Errorf("capture %s image: %w", cb.ID, err)
		}
		ev := models.CaptureEvent{
			ID:        evID,
			Label:     cb.Label,
			Image:     img,
			Timestamp: cb.CapturedAt.UTC(),
			Degraded:  cb.Degraded,
		}
		if cb.Nearest != nil {
			p := fromPointBackup(*cb.Nearest)
			ev.Nearest = &p
		}
		s.CaptureEvents = append(s.CaptureEvents, ev)
	}

	return s, nil
}

// ExportToMarkdown renders a trip log. If id is nil, all sessions are included.
func ExportToMarkdown(repo Repository, id *uuid.UUID) ([]byte, error) {
	sessions, err := GetSessions(repo, id)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder

	now := time.Now().UTC()
	sb.WriteString(fmt.Sprintf("# Rotograma - %s\n\n", now.Format("2006-01-02")))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(time.RFC3339)))

	if len(sessions) == 0 {
		sb.WriteString("No trips recorded.\n")
		return []byte(sb.String()), nil
	}

	for _, s := range sessions {
		sb.WriteString(fmt.Sprintf("## %s\n\n", s.StartedAt.UTC().Format("2006-01-02 15:04")))
		sb.WriteString(fmt.Sprintf("ID: `%s` | Duration: %s | Points: %d\n\n",
			s.ID, s.Duration().Round(time.Second), len(s.TrackPoints)))

		if len(s.CaptureEvents) == 0 {
			sb.WriteString("No captures.\n\n")
			continue
		}

		sb.WriteString("| Time | Label | Coordinates |\n")
		sb.WriteString("|------|-------|-------------|\n")

		for _, ev := range s.CaptureEvents {
			label := ev.Label
			if label == "" {
				label = "-"
			}
			coords := "-"
			if ev.Nearest != nil {
				coords = fmt.Sprintf("(%.4f, %.4f)", ev.Nearest.Latitude, ev.Nearest.Longitude)
			}
			if ev.Degraded {
				label += " (no map)"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", ev.Timestamp.UTC().Format("15:04:05"), label, coords))
		}

		sb.WriteString("\n")
	}

	return []byte(sb.String()), nil
}

// GetSessions loads full sessions, newest first. If id is nil, returns all sessions.
func GetSessions(repo Repository, id *uuid.UUID) ([]*models.Session, error) {
	if id != nil {
		s, err := repo.GetSession(*id)
		if err != nil {
			return nil, err
		}
		return []*models.Session{s}, nil
	}

	infos, err := repo.ListSessions()
	if err != nil {
		return nil, err
	}

	result := make([]*models.Session, len(infos))
	for i, info := range infos {
		s, err := repo.GetSession(info.ID)
		if err != nil {
			return nil, fmt.Errorf("get session %s: %w", info.ID, err)
		}
		result[i] = s
	}
	return result, nil
}

// ExportBackup creates a YAML backup (alias for ExportToYAML).
func ExportBackup(repo Repository) ([]byte, error) {
	return ExportToYAML(repo)
}

// ImportBackup restores from a YAML backup (alias for ImportFromYAML).
func ImportBackup(repo Repository, data []byte) (*ImportSummary, error) {
	return ImportFromYAML(repo, data)
}
