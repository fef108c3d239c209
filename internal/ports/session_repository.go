package ports

import (
	"context"

	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
)

// SessionRepository persists the world session for crash recovery.
type SessionRepository interface {
	// Load retrieves the last saved session.
	// Returns an empty session and nil error if none exists.
	Load(ctx context.Context) (domain.Session, error)

	// Save persists the session atomically.
	Save(ctx context.Context, session domain.Session) error
}
