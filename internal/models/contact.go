package models

import "time"

// ContactType classifies an inbound contact message.
type ContactType string

const (
	ContactGeneral  ContactType = "general"
	ContactFeedback ContactType = "feedback"
	ContactSupport  ContactType = "support"
	ContactOther    ContactType = "other"
)

// ContactMessage is a message left through the public contact form.
type ContactMessage struct {
	ID        string      `db:"id" json:"id"`
	Type      ContactType `db:"type" json:"type"`
	Email     string      `db:"email" json:"email"`
	Message   string      `db:"message" json:"message"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

// ContactFilter pages through contact messages.
type ContactFilter struct {
	Type     ContactType
	Page     int
	PageSize int
}
