package models

import "time"

// AlumniSuggestion is a member's request to invite someone not yet registered.
type AlumniSuggestion struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	Email            string    `db:"email" json:"email"`
	Phone            string    `db:"phone" json:"phone,omitempty"`
	Profession       string    `db:"profession" json:"profession,omitempty"`
	Role             string    `db:"role" json:"role,omitempty"`
	Organisation     string    `db:"organisation" json:"organisation,omitempty"`
	Message          string    `db:"message" json:"message,omitempty"`
	RequestedByEmail string    `db:"requested_by_email" json:"requestedByEmail"`
	RequestedByID    string    `db:"requested_by_id" json:"requestedById,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
}

// SuggestionHistory is a suggestion an administrator has acted on.
type SuggestionHistory struct {
	AlumniSuggestion
	StatusMessage string    `db:"status_message" json:"statusMessage"`
	CompletedAt   time.Time `db:"completed_at" json:"completedAt"`
}
