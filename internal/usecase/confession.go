package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arklim/confession-platform-api/internal/core/domain"
	"github.com/arklim/confession-platform-api/internal/core/port"
	"github.com/arklim/confession-platform-api/internal/repository"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// CreateConfessionInput captures a new confession submission.
type CreateConfessionInput struct {
	AuthorID  string
	Title     string
	Content   string
	Category  string
	ImageURL  *string
	Anonymous bool
}

// UpdateConfessionInput captures an edit to an existing confession.
type UpdateConfessionInput struct {
	ID        string
	AuthorID  string
	Title     string
	Content   string
	Category  string
	ImageURL  *string
	Anonymous bool
}

// ConfessionPage is a paginated listing result.
type ConfessionPage struct {
	Items  []domain.Confession
	Total  int
	Limit  int
	Offset int
}

// ConfessionService provides CRUD over confessions. Writes require the caller
// to own the targeted confession; identity resolution happens upstream at the
// authentication gateway.
type ConfessionService struct {
	confessions port.ConfessionRepository
	now         func() time.Time
}

// NewConfessionService constructs a ConfessionService.
func NewConfessionService(confessions port.ConfessionRepository) *ConfessionService {
	return &ConfessionService{
		confessions: confessions,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *ConfessionService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Create persists a new confession for the author.
func (s *ConfessionService) Create(ctx context.Context, input CreateConfessionInput) (*domain.Confession, error) {
	if strings.TrimSpace(input.AuthorID) == "" {
		return nil, fmt.Errorf("author id is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}

	now := s.now().UTC()
	confession := domain.Confession{
		ID:        uuid.NewString(),
		AuthorID:  input.AuthorID,
		Title:     title,
		Content:   content,
		Category:  strings.TrimSpace(input.Category),
		ImageURL:  input.ImageURL,
		Anonymous: input.Anonymous,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.confessions.Create(ctx, confession); err != nil {
		return nil, fmt.Errorf("create confession: %w", err)
	}

	return &confession, nil
}

// Get fetches a single confession.
func (s *ConfessionService) Get(ctx context.Context, id string) (*domain.Confession, error) {
	confession, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	return confession, nil
}

// List returns a page of confessions, newest first, optionally narrowed to
// one author.
func (s *ConfessionService) List(ctx context.Context, authorID string, limit, offset int) (*ConfessionPage, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	filter := port.ConfessionFilter{AuthorID: strings.TrimSpace(authorID), Limit: limit, Offset: offset}

	items, err := s.confessions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list confessions: %w", err)
	}

	total, err := s.confessions.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count confessions: %w", err)
	}

	return &ConfessionPage{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// Update edits a confession owned by the caller.
func (s *ConfessionService) Update(ctx context.Context, input UpdateConfessionInput) (*domain.Confession, error) {
	confession, err := s.fetch(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if confession.AuthorID != input.AuthorID {
		return nil, ErrNotOwner
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}

	confession.Title = title
	confession.Content = content
	confession.Category = strings.TrimSpace(input.Category)
	if input.ImageURL != nil {
		confession.ImageURL = input.ImageURL
	}
	confession.Anonymous = input.Anonymous
	confession.UpdatedAt = s.now().UTC()

	if err := s.confessions.Update(ctx, *confession); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConfessionNotFound
		}
		return nil, fmt.Errorf("update confession: %w", err)
	}

	return confession, nil
}

// Delete removes a confession owned by the caller.
func (s *ConfessionService) Delete(ctx context.Context, id, authorID string) error {
	confession, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if confession.AuthorID != authorID {
		return ErrNotOwner
	}

	if err := s.confessions.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrConfessionNotFound
		}
		return fmt.Errorf("delete confession: %w", err)
	}

	return nil
}

func (s *ConfessionService) fetch(ctx context.Context, id string) (*domain.Confession, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrConfessionNotFound
	}

	confession, err := s.confessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrConfessionNotFound
		}
		return nil, fmt.Errorf("fetch confession: %w", err)
	}

	return confession, nil
}
