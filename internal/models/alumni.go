package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// AlumniStatus is the approval state of a record. Pending only ever moves to Approved.
type AlumniStatus string

const (
	StatusPending  AlumniStatus = "pending"
	StatusApproved AlumniStatus = "approved"
)

// AlumniCategory distinguishes former students from former staff.
type AlumniCategory string

const (
	CategoryAlumni  AlumniCategory = "alumni"
	CategoryTeacher AlumniCategory = "teacher"
)

// Valid reports whether c is a known category.
func (c AlumniCategory) Valid() bool {
	return c == CategoryAlumni || c == CategoryTeacher
}

// UserRole is the privilege level attached to an alumni record.
type UserRole string

const (
	RoleUser                  UserRole = "User"
	RoleAlumni                UserRole = "Alumni"
	RoleTeacher               UserRole = "Teacher"
	RoleGoverningBody         UserRole = "Governing_body"
	RoleTreasurer             UserRole = "Treasurer"
	RoleVerificationCommittee UserRole = "Verification_committee"
	RoleAdmin                 UserRole = "Admin"
)

var userRoles = []UserRole{
	RoleUser, RoleAlumni, RoleTeacher, RoleGoverningBody, RoleTreasurer, RoleVerificationCommittee, RoleAdmin,
}

// PrivilegedRoles may approve records and see contact numbers.
var PrivilegedRoles = []UserRole{RoleAdmin, RoleGoverningBody, RoleTreasurer, RoleVerificationCommittee}

// ParseUserRole matches a role name case-insensitively.
func ParseUserRole(raw string) (UserRole, bool) {
	raw = strings.TrimSpace(raw)
	for _, r := range userRoles {
		if strings.EqualFold(raw, string(r)) {
			return r, true
		}
	}
	return "", false
}

// Valid reports whether r is spelled exactly as one of the canonical roles.
func (r UserRole) Valid() bool {
	for _, v := range userRoles {
		if r == v {
			return true
		}
	}
	return false
}

// IsPrivileged reports whether r belongs to the governing roles.
func (r UserRole) IsPrivileged() bool {
	for _, p := range PrivilegedRoles {
		if r == p {
			return true
		}
	}
	return false
}

// AlumniRecord is one registrant. ID equals the owning account id.
type AlumniRecord struct {
	ID       string         `db:"id" json:"id"`
	Role     AlumniCategory `db:"role" json:"role"`
	UserRole UserRole       `db:"user_role" json:"userRole"`
	Status   AlumniStatus   `db:"status" json:"status"`

	FullName         string `db:"full_name" json:"fullName"`
	Email            string `db:"email" json:"email"`
	Mobile           string `db:"mobile" json:"mobile"`
	HallTicket       string `db:"hall_ticket" json:"hallTicket"`
	BloodGroup       string `db:"blood_group" json:"bloodGroup"`
	Profession       string `db:"profession" json:"profession"`
	ProfessionOther  string `db:"profession_other" json:"professionOther,omitempty"`
	OrganisationName string `db:"organisation_name" json:"organisationName,omitempty"`
	WorkRole         string `db:"work_role" json:"workRole,omitempty"`
	School           string `db:"school" json:"school,omitempty"`
	PhotoURL         string `db:"photo_url" json:"photoUrl,omitempty"`

	JoinedYear     int    `db:"joined_year" json:"joinedYear"`
	PassedOutYear  int    `db:"passed_out_year" json:"passedOutYear"`
	JoinedClass    string `db:"joined_class" json:"joinedClass"`
	PassedOutClass string `db:"passed_out_class" json:"passedOutClass"`

	CurrentCity  string `db:"current_city" json:"currentCity"`
	CurrentState string `db:"current_state" json:"currentState"`
	WorkCity     string `db:"work_city" json:"workCity,omitempty"`
	WorkState    string `db:"work_state" json:"workState,omitempty"`

	SupportedBy pq.StringArray `db:"supported_by" json:"supportedBy"`
	ApprovedBy  *string        `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt  *time.Time     `db:"approved_at" json:"approvedAt,omitempty"`

	DonationAmount  *float64 `db:"donation_amount" json:"donationAmount,omitempty"`
	TransactionID   string   `db:"transaction_id" json:"transactionId,omitempty"`
	DonationDetails string   `db:"donation_details" json:"donationDetails,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// legacyRoles are privilege names older records stored in the role column.
var legacyRoles = map[string]UserRole{
	"admin":                  RoleAdmin,
	"governing_body":         RoleGoverningBody,
	"treasurer":              RoleTreasurer,
	"verification_committee": RoleVerificationCommittee,
}

// Normalize rewrites legacy encodings into canonical form. It is applied to every record read from storage.
func (r *AlumniRecord) Normalize() {
	role := strings.ToLower(strings.TrimSpace(string(r.Role)))
	if legacy, ok := legacyRoles[role]; ok {
		r.Role = CategoryAlumni
		r.UserRole = legacy
	} else if AlumniCategory(role).Valid() {
		r.Role = AlumniCategory(role)
	} else {
		r.Role = CategoryAlumni
	}

	if parsed, ok := ParseUserRole(string(r.UserRole)); ok {
		r.UserRole = parsed
	} else {
		r.UserRole = RoleUser
	}

	if strings.EqualFold(string(r.Status), string(StatusApproved)) {
		r.Status = StatusApproved
	} else {
		r.Status = StatusPending
	}
	if r.SupportedBy == nil {
		r.SupportedBy = pq.StringArray{}
	}
}

// IsApproved reports whether the record has been approved.
func (r *AlumniRecord) IsApproved() bool {
	return r.Status == StatusApproved
}

// HasSupporter reports whether id already endorsed the record.
func (r *AlumniRecord) HasSupporter(id string) bool {
	for _, s := range r.SupportedBy {
		if s == id {
			return true
		}
	}
	return false
}

// CanViewDirectory is true for approved members and privileged roles.
func (r *AlumniRecord) CanViewDirectory() bool {
	return r.IsApproved() || r.UserRole.IsPrivileged()
}

// ApprovedRole is the role an approved record is promoted to from User.
func (r *AlumniRecord) ApprovedRole() UserRole {
	if r.UserRole != RoleUser {
		return r.UserRole
	}
	if r.Role == CategoryTeacher {
		return RoleTeacher
	}
	return RoleAlumni
}

// Supporter is a resolved endorser shown alongside a pending record.
type Supporter struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DirectoryEntry is the viewer-dependent projection of a record.
type DirectoryEntry struct {
	ID               string         `json:"id"`
	FullName         string         `json:"fullName"`
	Email            string         `json:"email"`
	Mobile           string         `json:"mobile,omitempty"`
	Role             AlumniCategory `json:"role"`
	UserRole         UserRole       `json:"userRole"`
	Status           AlumniStatus   `json:"status"`
	BloodGroup       string         `json:"bloodGroup"`
	Profession       string         `json:"profession"`
	ProfessionOther  string         `json:"professionOther,omitempty"`
	OrganisationName string         `json:"organisationName,omitempty"`
	WorkRole         string         `json:"workRole,omitempty"`
	School           string         `json:"school,omitempty"`
	PhotoURL         string         `json:"photoUrl,omitempty"`
	JoinedYear       int            `json:"joinedYear"`
	PassedOutYear    int            `json:"passedOutYear"`
	JoinedClass      string         `json:"joinedClass"`
	PassedOutClass   string         `json:"passedOutClass"`
	CurrentCity      string         `json:"currentCity"`
	CurrentState     string         `json:"currentState"`
	WorkCity         string         `json:"workCity,omitempty"`
	WorkState        string         `json:"workState,omitempty"`
	SupportCount     int            `json:"supportCount"`
	Supporters       []Supporter    `json:"supporters,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// Directory sort keys.
const (
	SortByFullName      = "fullName"
	SortByPassedOutYear = "passedOutYear"
	SortByCreatedAt     = "createdAt"
)

// AlumniFilter narrows a directory listing.
type AlumniFilter struct {
	Search        string
	PassedOutYear int
	Profession    string
	Role          AlumniCategory
	SchoolSlug    string
	SortBy        string
	SortOrder     string
	Page          int
	PageSize      int
}

// FacetValue is one suggestion option and how many records carry it.
type FacetValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// DirectoryFacets are the most common filter values.
type DirectoryFacets struct {
	Professions []FacetValue `json:"professions"`
	Cities      []FacetValue `json:"cities"`
}

// SchoolSummary groups approved records by school.
type SchoolSummary struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}
