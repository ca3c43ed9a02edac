package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/confession-platform-api/internal/core/domain"
	"github.com/arklim/confession-platform-api/internal/core/port"
	"github.com/arklim/confession-platform-api/internal/infra/security"
	"github.com/arklim/confession-platform-api/internal/repository"
)

const (
	nicknameMaxLength   = 10
	suggestionCount     = 3
	suggestionAttempts  = 20
	suggestionSuffixMax = 100
)

// Nicknames are stored case-folded; the pattern applies after folding.
var nicknamePattern = regexp.MustCompile(`^[a-z0-9_-]{1,10}$`)

// ErrInvalidNickname indicates the nickname fails the length or character rules.
var ErrInvalidNickname = errors.New("nickname must be 1-10 characters of letters, digits, underscore, or hyphen")

// RegisterInput captures a signup submission.
type RegisterInput struct {
	Nickname string
	Email    string
	Password string
}

// RegistrationService handles new account onboarding.
type RegistrationService struct {
	accounts  port.AccountRepository
	events    port.EventPublisher
	validator *security.PasswordValidator
	logger    *zap.Logger
	now       func() time.Time
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(accounts port.AccountRepository, events port.EventPublisher, validator *security.PasswordValidator, log *zap.Logger) *RegistrationService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationService{
		accounts:  accounts,
		events:    events,
		validator: validator,
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *RegistrationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Register creates a new account. A nickname conflict comes back with
// available alternatives for the client to offer.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (domain.Account, error) {
	nickname := NormalizeNickname(input.Nickname)
	if !nicknamePattern.MatchString(nickname) {
		return domain.Account{}, ErrInvalidNickname
	}

	email := normalizeEmail(input.Email)
	if email == "" {
		return domain.Account{}, fmt.Errorf("email is required")
	}

	if err := s.validator.Validate(input.Password); err != nil {
		return domain.Account{}, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	if _, err := s.accounts.GetByNickname(ctx, nickname); err == nil {
		return domain.Account{}, &NicknameTakenError{
			Nickname:    nickname,
			Suggestions: s.suggestNicknames(ctx, nickname),
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.Account{}, fmt.Errorf("check nickname: %w", err)
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return domain.Account{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.Account{}, fmt.Errorf("check email: %w", err)
	}

	hashed, err := security.HashPassword(input.Password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account := domain.Account{
		ID:                uuid.NewString(),
		Nickname:          nickname,
		Email:             email,
		PasswordHash:      hashed,
		PasswordChangedAt: now,
		CreatedAt:         now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent signup on one of the unique columns.
			return domain.Account{}, &NicknameTakenError{
				Nickname:    nickname,
				Suggestions: s.suggestNicknames(ctx, nickname),
			}
		}
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}

	s.publishRegistered(ctx, account)

	sanitized := account
	sanitized.PasswordHash = ""
	return sanitized, nil
}

// suggestNicknames proposes free variants of a taken nickname by appending
// numeric suffixes, truncating the base to keep within the length bound.
func (s *RegistrationService) suggestNicknames(ctx context.Context, base string) []string {
	suggestions := make([]string, 0, suggestionCount)
	seen := map[string]struct{}{}

	for attempt := 0; attempt < suggestionAttempts && len(suggestions) < suggestionCount; attempt++ {
		suffix := fmt.Sprintf("%d", rand.Intn(suggestionSuffixMax))
		trimmed := base
		if len(trimmed)+len(suffix) > nicknameMaxLength {
			trimmed = trimmed[:nicknameMaxLength-len(suffix)]
		}
		candidate := trimmed + suffix

		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}

		if _, err := s.accounts.GetByNickname(ctx, candidate); errors.Is(err, repository.ErrNotFound) {
			suggestions = append(suggestions, candidate)
		}
	}

	return suggestions
}

// NormalizeNickname case-folds and trims a nickname for storage and lookup.
func NormalizeNickname(nickname string) string {
	return strings.ToLower(strings.TrimSpace(nickname))
}

func (s *RegistrationService) publishRegistered(ctx context.Context, account domain.Account) {
	if s.events == nil {
		return
	}

	event := domain.AccountRegisteredEvent{
		EventID:      uuid.NewString(),
		AccountID:    account.ID,
		Nickname:     account.Nickname,
		Email:        account.Email,
		RegisteredAt: account.CreatedAt,
	}

	if err := s.events.PublishAccountRegistered(ctx, event); err != nil {
		s.logger.Warn("publish account registered event failed", zap.String("account_id", account.ID), zap.Error(err))
	}
}
