package port

import (
	"context"
	"time"

	"github.com/arklim/confession-platform-api/internal/core/domain"
)

// SessionStore persists server-side sessions with a rolling idle expiry.
// An expired session is indistinguishable from a missing one: both surface
// repository.ErrNotFound from Touch.
type SessionStore interface {
	Create(ctx context.Context, session domain.Session, idle time.Duration) error

	// Touch loads the session, extends its expiry by idle from now, and
	// returns the refreshed record.
	Touch(ctx context.Context, sessionID string, idle time.Duration, now time.Time, ip, userAgent *string) (*domain.Session, error)

	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Delete(ctx context.Context, sessionID string) error
}
