package dto

// ContactRequest is the public contact form.
type ContactRequest struct {
	Type    string `json:"type" validate:"required,oneof=general feedback support other"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,min=1,max=2000"`
}
