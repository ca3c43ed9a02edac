package domain

import "time"

// Confession is a user-authored post with an optional image attachment.
// Storage of the attachment itself lives outside this service; only the URL
// is persisted.
type Confession struct {
	ID             string
	AuthorID       string
	AuthorNickname string
	Title          string
	Content        string
	Category       string
	ImageURL       *string
	Anonymous      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ContactMessage captures a contact-form submission.
type ContactMessage struct {
	ID        string
	Name      string
	Email     string
	Subject   string
	Message   string
	CreatedAt time.Time
}
