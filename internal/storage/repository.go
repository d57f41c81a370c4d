// ABOUTME: Repository interfaces for recorded trip storage
// ABOUTME: Enables testability and storage backend swapping

package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/harper/rotograma/internal/models"
)

// SessionInfo is a listing row for a stored session.
type SessionInfo struct {
	ID        uuid.UUID  `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Points    int        `json:"points"`
	Captures  int        `json:"captures"`
	Degraded  int        `json:"degraded"`
	HasVideo  bool       `json:"has_video"`
}

// SessionRepository defines operations for managing finalized sessions.
type SessionRepository interface {
	SaveSession(s *models.Session) error
	GetSession(id uuid.UUID) (*models.Session, error)
	ResolveSession(ref string) (*models.Session, error)
	ListSessions() ([]*SessionInfo, error)
	DeleteSession(id uuid.UUID) error
}

// Repository combines all repository operations with lifecycle management.
type Repository interface {
	SessionRepository
	Close() error
	Reset() error
}
