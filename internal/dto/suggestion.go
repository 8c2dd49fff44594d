package dto

// SuggestionRequest proposes someone to invite.
type SuggestionRequest struct {
	Name         string `json:"name" validate:"required,max=120"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"max=20"`
	Profession   string `json:"profession" validate:"max=60"`
	Role         string `json:"role" validate:"max=80"`
	Organisation string `json:"organisation" validate:"max=120"`
	Message      string `json:"message" validate:"max=1000"`
}

// CompleteSuggestionRequest closes a suggestion with a note for the history.
type CompleteSuggestionRequest struct {
	StatusMessage string `json:"statusMessage" validate:"required,max=500"`
}
