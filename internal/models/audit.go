package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionPasswordReset  = "PASSWORD_RESET"

	AuditActionAlumniRegister   = "ALUMNI_REGISTER"
	AuditActionAlumniSupport    = "ALUMNI_SUPPORT"
	AuditActionAlumniApprove    = "ALUMNI_APPROVE"
	AuditActionAlumniUpdate     = "ALUMNI_UPDATE"
	AuditActionAlumniDonation   = "ALUMNI_DONATION"
	AuditActionAlumniRoleChange = "ALUMNI_ROLE_CHANGE"

	AuditActionDirectoryExport    = "DIRECTORY_EXPORT"
	AuditActionContactDelete      = "CONTACT_DELETE"
	AuditActionSuggestionComplete = "SUGGESTION_COMPLETE"
)

// Audit resources.
const (
	AuditResourceAccount    = "account"
	AuditResourceAlumni     = "alumni"
	AuditResourceDirectory  = "directory"
	AuditResourceContact    = "contact_message"
	AuditResourceSuggestion = "alumni_suggestion"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
