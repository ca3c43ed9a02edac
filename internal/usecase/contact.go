package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arklim/confession-platform-api/internal/core/domain"
	"github.com/arklim/confession-platform-api/internal/core/port"
)

// ContactInput captures a contact-form submission.
type ContactInput struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// ContactService stores contact-form submissions for later review.
type ContactService struct {
	contacts port.ContactRepository
	now      func() time.Time
}

// NewContactService constructs a ContactService.
func NewContactService(contacts port.ContactRepository) *ContactService {
	return &ContactService{
		contacts: contacts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates and persists a contact message.
func (s *ContactService) Submit(ctx context.Context, input ContactInput) (*domain.ContactMessage, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, fmt.Errorf("message is required")
	}

	record := domain.ContactMessage{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Subject:   strings.TrimSpace(input.Subject),
		Message:   message,
		CreatedAt: s.now().UTC(),
	}

	if err := s.contacts.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store contact message: %w", err)
	}

	return &record, nil
}
