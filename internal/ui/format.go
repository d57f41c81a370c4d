// ABOUTME: Terminal UI formatting utilities
// ABOUTME: Provides human-readable output for trips, captures and the live status line

package ui

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/harper/rotograma/internal/models"
	"github.com/harper/rotograma/internal/session"
	"github.com/harper/rotograma/internal/storage"
)

// ShortID is the number of ID characters shown in listings.
const ShortID = 8

func faint(s string) string {
	return color.New(color.Faint).Sprint(s)
}

// FormatPoint formats a track point as coordinates.
func FormatPoint(p *models.TrackPoint) string {
	if p == nil {
		return faint("(no fix)")
	}
	return color.CyanString("(%.5f, %.5f)", p.Latitude, p.Longitude)
}

// FormatCapture formats a capture event for the show listing.
func FormatCapture(i int, ev models.CaptureEvent) string {
	label := ev.Label
	if label == "" {
		label = faint("(no label)")
	}
	line := fmt.Sprintf("  %2d. %s %s %s",
		i+1,
		ev.Timestamp.Local().Format("15:04:05"),
		label,
		FormatPoint(ev.Nearest))
	if ev.Degraded {
		line += " " + color.YellowString("[no map]")
	}
	return line
}

// FormatSessionInfo formats a stored trip for the list command.
func FormatSessionInfo(info *storage.SessionInfo) string {
	if info == nil {
		return faint("(invalid trip)")
	}
	id := info.ID.String()[:ShortID]
	duration := "-"
	if info.EndedAt != nil {
		duration = FormatDuration(info.EndedAt.Sub(info.StartedAt))
	}
	video := ""
	if info.HasVideo {
		video = " " + faint("+video")
	}
	return fmt.Sprintf("%s  %s  %s  %d points, %d captures%s - %s",
		color.GreenString(id),
		info.StartedAt.Local().Format("2006-01-02 15:04"),
		duration,
		info.Points,
		info.Captures,
		video,
		faint(FormatRelativeTime(info.StartedAt)))
}

// FormatStatus renders the one-line live status shown while recording.
func FormatStatus(st session.Status) string {
	state := string(st.State)
	switch st.State {
	case models.StateRecording:
		state = color.RedString("● REC")
	case models.StateFinalized:
		state = color.GreenString("■ done")
	}

	line := state
	if st.Constraints.Width > 0 {
		line += " " + st.Constraints.String()
	}
	line += fmt.Sprintf(" | pts %d | caps %d", st.Points, st.Captures)
	if st.Pending > 0 {
		line += fmt.Sprintf(" (+%d)", st.Pending)
	}
	if st.Location != "" && st.Location != "ok" {
		line += " | " + color.YellowString(st.Location)
	}
	if st.MapCenter != nil {
		line += fmt.Sprintf(" | map %.5f,%.5f", st.MapCenter.Latitude, st.MapCenter.Longitude)
	}
	if st.Message != "" {
		line += " | " + faint(st.Message)
	}
	return line
}

// FormatDistance formats metres, switching to kilometres past 1 km.
func FormatDistance(m float64) string {
	if m < 1000 {
		return fmt.Sprintf("%.0f m", m)
	}
	return fmt.Sprintf("%.2f km", m/1000)
}

// FormatDuration formats a duration as h:mm:ss or m:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatRelativeTime formats a time as relative to now.
func FormatRelativeTime(t time.Time) string {
	diff := time.Since(t)

	// Handle future times (clock skew, bad data)
	if diff < 0 {
		return color.YellowString("in the future")
	}

	if diff < time.Minute {
		return "just now"
	}
	if diff < time.Hour {
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	}
	if diff < 24*time.Hour {
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}
	days := int(diff.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}
