package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arklim/confession-platform-api/internal/core/domain"
	"github.com/arklim/confession-platform-api/internal/core/port"
	"github.com/arklim/confession-platform-api/internal/repository"
)

var confessionColumns = []string{
	"c.id",
	"c.author_id",
	"a.nickname",
	"c.title",
	"c.content",
	"c.category",
	"c.image_url",
	"c.anonymous",
	"c.created_at",
	"c.updated_at",
}

// ConfessionRepository implements port.ConfessionRepository using PostgreSQL.
type ConfessionRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewConfessionRepository wires a PostgreSQL-backed confession repository.
func NewConfessionRepository(pool *pgxpool.Pool) *ConfessionRepository {
	return &ConfessionRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *ConfessionRepository) WithTx(tx pgx.Tx) *ConfessionRepository {
	if tx == nil {
		return r
	}
	return &ConfessionRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new confession row.
func (r *ConfessionRepository) Create(ctx context.Context, confession domain.Confession) error {
	query := r.builder.Insert("confessions").
		Columns(
			"id",
			"author_id",
			"title",
			"content",
			"category",
			"image_url",
			"anonymous",
			"created_at",
			"updated_at",
		).
		Values(
			confession.ID,
			confession.AuthorID,
			confession.Title,
			confession.Content,
			confession.Category,
			confession.ImageURL,
			confession.Anonymous,
			confession.CreatedAt,
			confession.UpdatedAt,
		)

	stmt, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert confession sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert confession: %w", err)
	}

	return nil
}

// GetByID retrieves a confession with its author nickname.
func (r *ConfessionRepository) GetByID(ctx context.Context, id string) (*domain.Confession, error) {
	stmt, args, err := r.builder.
		Select(confessionColumns...).
		From("confessions c").
		Join("accounts a ON a.id = c.author_id").
		Where(squirrel.Eq{"c.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select confession sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var confession domain.Confession
	if err := row.Scan(
		&confession.ID,
		&confession.AuthorID,
		&confession.AuthorNickname,
		&confession.Title,
		&confession.Content,
		&confession.Category,
		&confession.ImageURL,
		&confession.Anonymous,
		&confession.CreatedAt,
		&confession.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan confession: %w", err)
	}

	return &confession, nil
}

// List returns confessions newest first with optional filtering and pagination.
func (r *ConfessionRepository) List(ctx context.Context, filter port.ConfessionFilter) ([]domain.Confession, error) {
	query := r.builder.
		Select(confessionColumns...).
		From("confessions c").
		Join("accounts a ON a.id = c.author_id").
		OrderBy("c.created_at DESC")

	if filter.AuthorID != "" {
		query = query.Where(squirrel.Eq{"c.author_id": filter.AuthorID})
	}

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list confessions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query confessions: %w", err)
	}
	defer rows.Close()

	confessions := make([]domain.Confession, 0)
	for rows.Next() {
		var confession domain.Confession
		if err := rows.Scan(
			&confession.ID,
			&confession.AuthorID,
			&confession.AuthorNickname,
			&confession.Title,
			&confession.Content,
			&confession.Category,
			&confession.ImageURL,
			&confession.Anonymous,
			&confession.CreatedAt,
			&confession.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan confession: %w", err)
		}
		confessions = append(confessions, confession)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confessions: %w", err)
	}

	return confessions, nil
}

// Count returns the total number of confessions matching the filter.
func (r *ConfessionRepository) Count(ctx context.Context, filter port.ConfessionFilter) (int, error) {
	query := r.builder.Select("COUNT(*)").From("confessions c")

	if filter.AuthorID != "" {
		query = query.Where(squirrel.Eq{"c.author_id": filter.AuthorID})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count confessions sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("scan confessions count: %w", err)
	}

	return int(count), nil
}

// Update modifies an existing confession's editable fields.
func (r *ConfessionRepository) Update(ctx context.Context, confession domain.Confession) error {
	stmt, args, err := r.builder.Update("confessions").
		Set("title", confession.Title).
		Set("content", confession.Content).
		Set("category", confession.Category).
		Set("image_url", confession.ImageURL).
		Set("anonymous", confession.Anonymous).
		Set("updated_at", confession.UpdatedAt).
		Where(squirrel.Eq{"id": confession.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update confession sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update confession: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a confession row.
func (r *ConfessionRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("confessions").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete confession sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete confession: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.ConfessionRepository = (*ConfessionRepository)(nil)
