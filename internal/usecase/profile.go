package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arklim/confession-platform-api/internal/core/domain"
	"github.com/arklim/confession-platform-api/internal/core/port"
	"github.com/arklim/confession-platform-api/internal/repository"
)

// ProfileService exposes account profile reads and updates. Credential
// material never leaves this service.
type ProfileService struct {
	accounts port.AccountRepository
}

// NewProfileService constructs a ProfileService.
func NewProfileService(accounts port.AccountRepository) *ProfileService {
	return &ProfileService{accounts: accounts}
}

// Get returns the profile view of an account.
func (s *ProfileService) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, fmt.Errorf("account id is required")
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	sanitized := *account
	sanitized.PasswordHash = ""
	sanitized.ResetTokenHash = nil
	sanitized.ResetTokenExpiry = nil

	return &sanitized, nil
}

// Update changes the nickname and email of an account, enforcing the same
// uniqueness and format rules as signup.
func (s *ProfileService) Update(ctx context.Context, accountID, nickname, email string) (*domain.Account, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, fmt.Errorf("account id is required")
	}

	nickname = NormalizeNickname(nickname)
	if !nicknamePattern.MatchString(nickname) {
		return nil, ErrInvalidNickname
	}

	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	if existing, err := s.accounts.GetByNickname(ctx, nickname); err == nil {
		if existing.ID != accountID {
			return nil, &NicknameTakenError{Nickname: nickname}
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check nickname: %w", err)
	}

	if existing, err := s.accounts.GetByEmail(ctx, email); err == nil {
		if existing.ID != accountID {
			return nil, ErrEmailTaken
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	if err := s.accounts.UpdateProfile(ctx, accountID, nickname, email); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrAccountNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, &NicknameTakenError{Nickname: nickname}
		default:
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}

	return s.Get(ctx, accountID)
}
