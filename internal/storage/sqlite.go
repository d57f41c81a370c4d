// ABOUTME: SQLite storage implementation for recorded trips
// ABOUTME: Provides local-only persistence using pure Go SQLite driver

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/harper/rotograma/internal/models"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// SQLiteDB implements Repository with a local SQLite database.
type SQLiteDB struct {
	db   *sql.DB
	path string
}

// Compile-time check that SQLiteDB implements Repository.
var _ Repository = (*SQLiteDB)(nil)

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".local", "share", "rotograma", "rotograma.db")
}

// NewSQLiteDB creates a new SQLite database at the given path.
// Creates the directory and database file if they don't exist.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil { //nolint:gosec // 0750 is appropriate for user data directory
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteDB{db: db, path: path}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// migrate creates or updates the database schema.
func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS track_points (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			elevation REAL NOT NULL DEFAULT 0,
			recorded_at DATETIME NOT NULL,
			PRIMARY KEY (session_id, seq)
		);

		CREATE TABLE IF NOT EXISTS capture_events (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			image BLOB,
			captured_at DATETIME NOT NULL,
			degraded INTEGER NOT NULL DEFAULT 0,
			nearest_latitude REAL,
			nearest_longitude REAL,
			nearest_elevation REAL,
			nearest_at DATETIME
		);

		CREATE TABLE IF NOT EXISTS videos (
			session_id TEXT PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
			mime_type TEXT NOT NULL,
			data BLOB NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_capture_events_session ON capture_events(session_id, seq);
		CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Reset clears all data from the database.
func (s *SQLiteDB) Reset() error {
	_, err := s.db.Exec("DELETE FROM videos; DELETE FROM capture_events; DELETE FROM track_points; DELETE FROM sessions;")
	return err
}

// SaveSession stores a finalized session, replacing any earlier copy with the same ID.
func (s *SQLiteDB) SaveSession(sess *models.Session) error {
	if sess.State != models.StateFinalized {
		return ErrNotFinalized
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := sess.ID.String()
	if _, err := tx.Exec("DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}

	var ended any
	if sess.EndedAt != nil {
		ended = sess.EndedAt.UTC()
	}
	if _, err := tx.Exec(
		"INSERT INTO sessions (id, started_at, ended_at) VALUES (?, ?, ?)",
		id, sess.StartedAt.UTC(), ended,
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for i, p := range sess.TrackPoints {
		if _, err := tx.Exec(
			`INSERT INTO track_points (session_id, seq, latitude, longitude, elevation, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, p.Latitude, p.Longitude, p.Elevation, p.Timestamp.UTC(),
		); err != nil {
			return fmt.Errorf("insert track point %d: %w", i, err)
		}
	}

	for i, ev := range sess.CaptureEvents {
		var nLat, nLng, nEle, nAt any
		if ev.Nearest != nil {
			nLat, nLng, nEle, nAt = ev.Nearest.Latitude, ev.Nearest.Longitude, ev.Nearest.Elevation, ev.Nearest.Timestamp.UTC()
		}
		if _, err := tx.Exec(
			`INSERT INTO capture_events (id, session_id, seq, label, image, captured_at, degraded,
			 nearest_latitude, nearest_longitude, nearest_elevation, nearest_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID.String(), id, i, ev.Label, ev.Image, ev.Timestamp.UTC(), ev.Degraded,
			nLat, nLng, nEle, nAt,
		); err != nil {
			return fmt.Errorf("insert capture %q: %w", ev.Label, err)
		}
	}

	if sess.Video != nil && len(sess.Video.Data) > 0 {
		if _, err := tx.Exec(
			"INSERT INTO videos (session_id, mime_type, data) VALUES (?, ?, ?)",
			id, sess.Video.MIMEType, sess.Video.Data,
		); err != nil {
			return fmt.Errorf("insert video: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetSession loads a stored session with its track, captures and video.
func (s *SQLiteDB) GetSession(id uuid.UUID) (*models.Session, error) {
	var (
		sess  models.Session
		ended sql.NullTime
	)
	err := s.db.QueryRow(
		"SELECT started_at, ended_at FROM sessions WHERE id = ?", id.String(),
	).Scan(&sess.StartedAt, &ended)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sess.ID = id
	sess.State = models.StateFinalized
	sess.StartedAt = sess.StartedAt.UTC()
	if ended.Valid {
		t := ended.Time.UTC()
		sess.EndedAt = &t
	}

	if sess.TrackPoints, err = s.trackPoints(id); err != nil {
		return nil, err
	}
	if sess.CaptureEvents, err = s.captureEvents(id); err != nil {
		return nil, err
	}
	if sess.Video, err = s.video(id); err != nil {
		return nil, err
	}
	return &sess, nil
}

// ResolveSession finds a session by full ID or unique ID prefix.
func (s *SQLiteDB) ResolveSession(ref string) (*models.Session, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return nil, ErrNotFound
	}
	if id, err := uuid.Parse(ref); err == nil {
		return s.GetSession(id)
	}

	rows, err := s.db.Query("SELECT id FROM sessions WHERE id LIKE ? LIMIT 2", escapeLike(ref)+"%")
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []string
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		matches = append(matches, idStr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		id, err := uuid.Parse(matches[0])
		if err != nil {
			return nil, fmt.Errorf("parse session id: %w", err)
		}
		return s.GetSession(id)
	default:
		return nil, fmt.Errorf("%q: %w", ref, ErrAmbiguous)
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}

// ListSessions returns all sessions, newest first.
func (s *SQLiteDB) ListSessions() ([]*SessionInfo, error) {
	rows, err := s.db.Query(`
		SELECT s.id, s.started_at, s.ended_at,
			(SELECT COUNT(*) FROM track_points t WHERE t.session_id = s.id),
			(SELECT COUNT(*) FROM capture_events c WHERE c.session_id = s.id),
			(SELECT COUNT(*) FROM capture_events c WHERE c.session_id = s.id AND c.degraded = 1),
			EXISTS (SELECT 1 FROM videos v WHERE v.session_id = s.id)
		FROM sessions s ORDER BY s.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var infos []*SessionInfo
	for rows.Next() {
		var (
			idStr string
			info  SessionInfo
			ended sql.NullTime
		)
		if err := rows.Scan(&idStr, &info.StartedAt, &ended, &info.Points, &info.Captures, &info.Degraded, &info.HasVideo); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		info.ID, _ = uuid.Parse(idStr)
		info.StartedAt = info.StartedAt.UTC()
		if ended.Valid {
			t := ended.Time.UTC()
			info.EndedAt = &t
		}
		infos = append(infos, &info)
	}
	return infos, rows.Err()
}

// DeleteSession removes a session (track, captures and video cascade).
func (s *SQLiteDB) DeleteSession(id uuid.UUID) error {
	res, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteDB) trackPoints(id uuid.UUID) ([]models.TrackPoint, error) {
	rows, err := s.db.Query(
		`SELECT latitude, longitude, elevation, recorded_at
		 FROM track_points WHERE session_id = ? ORDER BY seq`,
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query track points: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var points []models.TrackPoint
	for rows.Next() {
		var p models.TrackPoint
		if err := rows.Scan(&p.Latitude, &p.Longitude, &p.Elevation, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("scan track point: %w", err)
		}
		p.Timestamp = p.Timestamp.UTC()
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *SQLiteDB) captureEvents(id uuid.UUID) ([]models.CaptureEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, label, image, captured_at, degraded,
		 nearest_latitude, nearest_longitude, nearest_elevation, nearest_at
		 FROM capture_events WHERE session_id = ? ORDER BY seq`,
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []models.CaptureEvent
	for rows.Next() {
		var (
			ev               models.CaptureEvent
			idStr            string
			nLat, nLng, nEle sql.NullFloat64
			nAt              sql.NullTime
		)
		if err := rows.Scan(&idStr, &ev.Label, &ev.Image, &ev.Timestamp, &ev.Degraded,
			&nLat, &nLng, &nEle, &nAt); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		if ev.ID, err = ulid.ParseStrict(idStr); err != nil {
			return nil, fmt.Errorf("parse capture id %q: %w", idStr, err)
		}
		ev.Timestamp = ev.Timestamp.UTC()
		if nLat.Valid && nLng.Valid && nAt.Valid {
			ev.Nearest = &models.TrackPoint{
				Latitude:  nLat.Float64,
				Longitude: nLng.Float64,
				Elevation: nEle.Float64,
				Timestamp: nAt.Time.UTC(),
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *SQLiteDB) video(id uuid.UUID) (*models.VideoBlob, error) {
	var v models.VideoBlob
	err := s.db.QueryRow(
		"SELECT mime_type, data FROM videos WHERE session_id = ?", id.String(),
	).Scan(&v.MIMEType, &v.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan video: %w", err)
	}
	return &v, nil
}

// Path returns the database file path.
func (s *SQLiteDB) Path() string {
	return s.path
}
