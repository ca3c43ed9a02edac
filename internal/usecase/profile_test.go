package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/confession-platform-api/internal/core/domain"
	"github.com/arklim/confession-platform-api/internal/repository"
)

func TestProfileGetStripsCredentialMaterial(t *testing.T) {
	repo := &stubAccountRepo{}
	service := NewProfileService(repo)

	hash := "salt:hash"
	tokenHash := "reset-hash"
	expiry := time.Now().Add(10 * time.Minute)
	repo.getByIDFn = func(context.Context, string) (*domain.Account, error) {
		return &domain.Account{
			ID:               "acc-1",
			Nickname:         "whisper",
			PasswordHash:     hash,
			ResetTokenHash:   &tokenHash,
			ResetTokenExpiry: &expiry,
		}, nil
	}

	account, err := service.Get(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if account.PasswordHash != "" || account.ResetTokenHash != nil || account.ResetTokenExpiry != nil {
		t.Fatal("profile view must not expose credential material")
	}
}

func TestProfileGetUnknownAccount(t *testing.T) {
	repo := &stubAccountRepo{}
	repo.getByIDFn = func(context.Context, string) (*domain.Account, error) {
		return nil, repository.ErrNotFound
	}

	_, err := NewProfileService(repo).Get(context.Background(), "missing")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestProfileUpdateRejectsTakenNickname(t *testing.T) {
	repo := &stubAccountRepo{}
	service := NewProfileService(repo)

	repo.getByNicknameFn = func(_ context.Context, nickname string) (*domain.Account, error) {
		return &domain.Account{ID: "acc-2", Nickname: nickname}, nil
	}

	_, err := service.Update(context.Background(), "acc-1", "taken", "whisper@example.com")
	if !errors.Is(err, ErrNicknameTaken) {
		t.Fatalf("err = %v, want ErrNicknameTaken", err)
	}
}

func TestProfileUpdateAllowsKeepingOwnNickname(t *testing.T) {
	repo := &stubAccountRepo{}
	service := NewProfileService(repo)

	repo.getByNicknameFn = func(_ context.Context, nickname string) (*domain.Account, error) {
		return &domain.Account{ID: "acc-1", Nickname: nickname}, nil
	}
	repo.getByEmailFn = func(context.Context, string) (*domain.Account, error) {
		return nil, repository.ErrNotFound
	}
	repo.updateProfileFn = func(_ context.Context, id, nickname, email string) error {
		if nickname != "whisper" || email != "new@example.com" {
			t.Fatalf("update args = (%q, %q), want normalized values", nickname, email)
		}
		return nil
	}
	repo.getByIDFn = func(context.Context, string) (*domain.Account, error) {
		return &domain.Account{ID: "acc-1", Nickname: "whisper", Email: "new@example.com"}, nil
	}

	account, err := service.Update(context.Background(), "acc-1", " Whisper ", "New@Example.com")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if account.Email != "new@example.com" {
		t.Fatalf("email = %q, want normalized", account.Email)
	}
}

func TestProfileUpdateInvalidNickname(t *testing.T) {
	service := NewProfileService(&stubAccountRepo{})

	_, err := service.Update(context.Background(), "acc-1", "no spaces allowed", "whisper@example.com")
	if !errors.Is(err, ErrInvalidNickname) {
		t.Fatalf("err = %v, want ErrInvalidNickname", err)
	}
}
