package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arklim/confession-platform-api/internal/core/domain"
	"github.com/arklim/confession-platform-api/internal/core/port"
)

// ContactRepository implements port.ContactRepository using PostgreSQL.
type ContactRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewContactRepository wires a PostgreSQL-backed contact repository.
func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a contact-form submission.
func (r *ContactRepository) Create(ctx context.Context, message domain.ContactMessage) error {
	query := r.builder.Insert("contact_messages").
		Columns("id", "name", "email", "subject", "message", "created_at").
		Values(message.ID, message.Name, message.Email, message.Subject, message.Message, message.CreatedAt)

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert contact message sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}

	return nil
}

var _ port.ContactRepository = (*ContactRepository)(nil)
