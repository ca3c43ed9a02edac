package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arklim/confession-platform-api/internal/core/domain"
	"github.com/arklim/confession-platform-api/internal/core/port"
	"github.com/arklim/confession-platform-api/internal/repository"
)

// sessionRecord is the JSON shape persisted per session key.
type sessionRecord struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Nickname  string    `json:"nickname"`
	IPFirst   *string   `json:"ip_first,omitempty"`
	IPLast    *string   `json:"ip_last,omitempty"`
	UserAgent *string   `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore keeps sessions in Redis with a rolling TTL. Redis key expiry
// and the stored expires_at field carry the same deadline; the field guards
// against clock skew between the app and Redis.
type SessionStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewSessionStore constructs a Redis-backed session store.
func NewSessionStore(client *redis.Client, keyPrefix string) *SessionStore {
	if keyPrefix == "" {
		keyPrefix = "session"
	}
	return &SessionStore{client: client, keyPrefix: keyPrefix}
}

// Create persists a fresh session with the idle window as its initial TTL.
func (s *SessionStore) Create(ctx context.Context, session domain.Session, idle time.Duration) error {
	if idle <= 0 {
		return errors.New("idle window must be positive")
	}

	payload, err := json.Marshal(fromDomain(session))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(session.ID), payload, idle).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}

	return nil
}

// Get loads a session without extending its expiry.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var record sessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	session := record.toDomain()
	return &session, nil
}

// Touch loads the session, extends its rolling expiry by idle from now, and
// rewrites the record with a refreshed TTL. An expired or missing session
// yields repository.ErrNotFound.
func (s *SessionStore) Touch(ctx context.Context, sessionID string, idle time.Duration, now time.Time, ip, userAgent *string) (*domain.Session, error) {
	if idle <= 0 {
		return nil, errors.New("idle window must be positive")
	}

	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.IsActive(now) {
		// Redis expiry usually reaps these first; drop any straggler.
		_ = s.client.Del(ctx, s.key(sessionID)).Err()
		return nil, repository.ErrNotFound
	}

	session.Touch(now, idle, ip, userAgent)

	payload, err := json.Marshal(fromDomain(*session))
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(sessionID), payload, idle).Err(); err != nil {
		return nil, fmt.Errorf("redis set session: %w", err)
	}

	return session, nil
}

// Delete removes a session, revoking it immediately.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

func (s *SessionStore) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, sessionID)
}

func fromDomain(session domain.Session) sessionRecord {
	return sessionRecord{
		ID:        session.ID,
		AccountID: session.AccountID,
		Nickname:  session.Nickname,
		IPFirst:   session.IPFirst,
		IPLast:    session.IPLast,
		UserAgent: session.UserAgent,
		CreatedAt: session.CreatedAt,
		LastSeen:  session.LastSeen,
		ExpiresAt: session.ExpiresAt,
	}
}

func (r sessionRecord) toDomain() domain.Session {
	return domain.Session{
		ID:        r.ID,
		AccountID: r.AccountID,
		Nickname:  r.Nickname,
		IPFirst:   r.IPFirst,
		IPLast:    r.IPLast,
		UserAgent: r.UserAgent,
		CreatedAt: r.CreatedAt,
		LastSeen:  r.LastSeen,
		ExpiresAt: r.ExpiresAt,
	}
}

var _ port.SessionStore = (*SessionStore)(nil)
