package port

import (
	"context"

	"github.com/arklim/confession-platform-api/internal/core/domain"
)

// ConfessionFilter narrows listing queries.
type ConfessionFilter struct {
	AuthorID string
	Limit    int
	Offset   int
}

// ConfessionRepository exposes persistence behavior for confessions.
type ConfessionRepository interface {
	Create(ctx context.Context, confession domain.Confession) error
	GetByID(ctx context.Context, id string) (*domain.Confession, error)
	List(ctx context.Context, filter ConfessionFilter) ([]domain.Confession, error)
	Count(ctx context.Context, filter ConfessionFilter) (int, error)
	Update(ctx context.Context, confession domain.Confession) error
	Delete(ctx context.Context, id string) error
}

// ContactRepository stores contact-form submissions.
type ContactRepository interface {
	Create(ctx context.Context, message domain.ContactMessage) error
}
