package dto

// RegisterRequest is the registration form. Years arrive as text, the way the form submits them.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required" trim:"-"`
	Role     string `json:"role" validate:"omitempty,oneof=alumni teacher"`

	FullName         string `json:"fullName" validate:"required,max=120"`
	JoinedYear       string `json:"joinedYear" validate:"required,numeric,len=4"`
	PassedOutYear    string `json:"passedOutYear" validate:"required,numeric,len=4"`
	JoinedClass      string `json:"joinedClass" validate:"required,max=20"`
	PassedOutClass   string `json:"passedOutClass" validate:"required,max=20"`
	HallTicket       string `json:"hallTicket" validate:"required,max=40"`
	Mobile           string `json:"mobile" validate:"required,min=7,max=20"`
	BloodGroup       string `json:"bloodGroup" validate:"required,bloodgroup"`
	Profession       string `json:"profession" validate:"required,max=60"`
	ProfessionOther  string `json:"professionOther" validate:"required_if=Profession Other,max=80"`
	OrganisationName string `json:"organisationName" validate:"max=120"`
	WorkRole         string `json:"workRole" validate:"max=80"`
	School           string `json:"school" validate:"max=120"`
	CurrentCity      string `json:"currentCity" validate:"required,max=80"`
	CurrentState     string `json:"currentState" validate:"required,max=80"`
	WorkCity         string `json:"workCity" validate:"max=80"`
	WorkState        string `json:"workState" validate:"max=80"`
	PhotoURL         string `json:"photoUrl" validate:"omitempty,url"`

	DonationAmount  *float64 `json:"donationAmount" validate:"omitempty,gt=0"`
	TransactionID   string   `json:"transactionId" validate:"max=80"`
	DonationDetails string   `json:"donationDetails" validate:"max=500"`
}

// UpdateProfileRequest carries the owner-editable fields. Identity fields are not accepted.
type UpdateProfileRequest struct {
	FullName         string `json:"fullName" validate:"required,max=120"`
	Mobile           string `json:"mobile" validate:"required,min=7,max=20"`
	BloodGroup       string `json:"bloodGroup" validate:"required,bloodgroup"`
	Profession       string `json:"profession" validate:"required,max=60"`
	ProfessionOther  string `json:"professionOther" validate:"required_if=Profession Other,max=80"`
	OrganisationName string `json:"organisationName" validate:"max=120"`
	WorkRole         string `json:"workRole" validate:"max=80"`
	School           string `json:"school" validate:"max=120"`
	CurrentCity      string `json:"currentCity" validate:"required,max=80"`
	CurrentState     string `json:"currentState" validate:"required,max=80"`
	WorkCity         string `json:"workCity" validate:"max=80"`
	WorkState        string `json:"workState" validate:"max=80"`
}

// DonationRequest records a payment against a record.
type DonationRequest struct {
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	TransactionID string  `json:"transactionId" validate:"required,max=80"`
	Details       string  `json:"details" validate:"max=500"`
}

// SetRoleRequest changes a record's privilege level.
type SetRoleRequest struct {
	UserRole string `json:"userRole" validate:"required"`
}

// SupportResponse is returned after an endorsement.
type SupportResponse struct {
	ID          string   `json:"id"`
	SupportedBy []string `json:"supportedBy"`
	Added       bool     `json:"added"`
}

// DirectoryQuery is the bound query string of the directory listing.
type DirectoryQuery struct {
	Search        string `form:"search"`
	PassedOutYear int    `form:"passedOutYear"`
	Profession    string `form:"profession"`
	Role          string `form:"role"`
	SortBy        string `form:"sortBy"`
	SortOrder     string `form:"sortOrder"`
	Page          int    `form:"page"`
	PerPage       int    `form:"perPage"`
}
