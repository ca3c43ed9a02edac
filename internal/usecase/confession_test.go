package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/confession-platform-api/internal/core/domain"
	"github.com/arklim/confession-platform-api/internal/core/port"
	"github.com/arklim/confession-platform-api/internal/repository"
)

// memoryConfessionRepo backs confession tests with a plain map.
type memoryConfessionRepo struct {
	confessions map[string]domain.Confession
}

func newMemoryConfessionRepo() *memoryConfessionRepo {
	return &memoryConfessionRepo{confessions: map[string]domain.Confession{}}
}

func (r *memoryConfessionRepo) Create(_ context.Context, confession domain.Confession) error {
	r.confessions[confession.ID] = confession
	return nil
}

func (r *memoryConfessionRepo) GetByID(_ context.Context, id string) (*domain.Confession, error) {
	confession, ok := r.confessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &confession, nil
}

func (r *memoryConfessionRepo) List(_ context.Context, filter port.ConfessionFilter) ([]domain.Confession, error) {
	var items []domain.Confession
	for _, confession := range r.confessions {
		if filter.AuthorID == "" || confession.AuthorID == filter.AuthorID {
			items = append(items, confession)
		}
	}
	return items, nil
}

func (r *memoryConfessionRepo) Count(_ context.Context, filter port.ConfessionFilter) (int, error) {
	items, _ := r.List(context.Background(), filter)
	return len(items), nil
}

func (r *memoryConfessionRepo) Update(_ context.Context, confession domain.Confession) error {
	if _, ok := r.confessions[confession.ID]; !ok {
		return repository.ErrNotFound
	}
	r.confessions[confession.ID] = confession
	return nil
}

func (r *memoryConfessionRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.confessions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.confessions, id)
	return nil
}

func newConfessionService(repo *memoryConfessionRepo) *ConfessionService {
	service := NewConfessionService(repo)
	service.WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })
	return service
}

func TestConfessionCreateAndGet(t *testing.T) {
	repo := newMemoryConfessionRepo()
	service := newConfessionService(repo)

	created, err := service.Create(context.Background(), CreateConfessionInput{
		AuthorID:  "acc-1",
		Title:     "  late night thought  ",
		Content:   "something I never said out loud",
		Category:  "life",
		Anonymous: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Title != "late night thought" {
		t.Fatalf("title = %q, want trimmed", created.Title)
	}

	fetched, err := service.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !fetched.Anonymous {
		t.Fatal("anonymous flag lost on round trip")
	}
}

func TestConfessionCreateRequiresContent(t *testing.T) {
	service := newConfessionService(newMemoryConfessionRepo())

	if _, err := service.Create(context.Background(), CreateConfessionInput{AuthorID: "acc-1", Title: "t"}); err == nil {
		t.Fatal("expected error for empty content")
	}
	if _, err := service.Create(context.Background(), CreateConfessionInput{AuthorID: "acc-1", Content: "c"}); err == nil {
		t.Fatal("expected error for empty title")
	}
}

func TestConfessionUpdateEnforcesOwnership(t *testing.T) {
	repo := newMemoryConfessionRepo()
	service := newConfessionService(repo)

	created, err := service.Create(context.Background(), CreateConfessionInput{
		AuthorID: "acc-1",
		Title:    "original",
		Content:  "original content",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = service.Update(context.Background(), UpdateConfessionInput{
		ID:       created.ID,
		AuthorID: "acc-2",
		Title:    "hijacked",
		Content:  "hijacked content",
	})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("foreign update: err = %v, want ErrNotOwner", err)
	}

	updated, err := service.Update(context.Background(), UpdateConfessionInput{
		ID:       created.ID,
		AuthorID: "acc-1",
		Title:    "revised",
		Content:  "revised content",
	})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Title != "revised" {
		t.Fatalf("title = %q, want revised", updated.Title)
	}
}

func TestConfessionDeleteEnforcesOwnership(t *testing.T) {
	repo := newMemoryConfessionRepo()
	service := newConfessionService(repo)

	created, err := service.Create(context.Background(), CreateConfessionInput{
		AuthorID: "acc-1",
		Title:    "to remove",
		Content:  "content",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := service.Delete(context.Background(), created.ID, "acc-2"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("foreign delete: err = %v, want ErrNotOwner", err)
	}
	if err := service.Delete(context.Background(), created.ID, "acc-1"); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if err := service.Delete(context.Background(), created.ID, "acc-1"); !errors.Is(err, ErrConfessionNotFound) {
		t.Fatalf("deleted twice: err = %v, want ErrConfessionNotFound", err)
	}
}

func TestConfessionListClampsPaging(t *testing.T) {
	repo := newMemoryConfessionRepo()
	service := newConfessionService(repo)

	page, err := service.List(context.Background(), "", -1, -5)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Limit != defaultPageLimit || page.Offset != 0 {
		t.Fatalf("paging = (%d, %d), want defaults", page.Limit, page.Offset)
	}

	page, err = service.List(context.Background(), "", 1000, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Limit != maxPageLimit {
		t.Fatalf("limit = %d, want clamped to %d", page.Limit, maxPageLimit)
	}
}
