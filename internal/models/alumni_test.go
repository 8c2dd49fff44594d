package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMapsLegacyRoles(t *testing.T) {
	tests := []struct {
		role     AlumniCategory
		userRole UserRole
		wantRole AlumniCategory
		wantUser UserRole
	}{
		{role: "admin", userRole: "", wantRole: CategoryAlumni, wantUser: RoleAdmin},
		{role: "Governing_Body", userRole: RoleUser, wantRole: CategoryAlumni, wantUser: RoleGoverningBody},
		{role: "treasurer", userRole: "", wantRole: CategoryAlumni, wantUser: RoleTreasurer},
		{role: "VERIFICATION_COMMITTEE", userRole: "", wantRole: CategoryAlumni, wantUser: RoleVerificationCommittee},
		{role: "Teacher", userRole: "teacher", wantRole: CategoryTeacher, wantUser: RoleTeacher},
		{role: "alumni", userRole: "bogus", wantRole: CategoryAlumni, wantUser: RoleUser},
		{role: "", userRole: "", wantRole: CategoryAlumni, wantUser: RoleUser},
	}
	for _, tc := range tests {
		rec := AlumniRecord{Role: tc.role, UserRole: tc.userRole, Status: "Pending"}
		rec.Normalize()
		assert.Equal(t, tc.wantRole, rec.Role, string(tc.role))
		assert.Equal(t, tc.wantUser, rec.UserRole, string(tc.role))
		assert.Equal(t, StatusPending, rec.Status)
		assert.NotNil(t, rec.SupportedBy)
	}
}

func TestNormalizeAfterCanonicalWrite(t *testing.T) {
	legacy := AlumniRecord{Role: "admin", UserRole: RoleUser}
	legacy.Normalize()
	assert.Equal(t, RoleAdmin, legacy.UserRole)

	// a role change rewrites role to the category, so the stored user_role wins
	demoted := AlumniRecord{Role: CategoryAlumni, UserRole: RoleUser}
	demoted.Normalize()
	assert.Equal(t, RoleUser, demoted.UserRole)
	assert.Equal(t, CategoryAlumni, demoted.Role)
}

func TestUserRolePrivileges(t *testing.T) {
	for _, r := range []UserRole{RoleAdmin, RoleGoverningBody, RoleTreasurer, RoleVerificationCommittee} {
		assert.True(t, r.IsPrivileged(), r)
	}
	for _, r := range []UserRole{RoleUser, RoleAlumni, RoleTeacher, ""} {
		assert.False(t, r.IsPrivileged(), r)
	}
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, UserRole("admin").Valid())
}

func TestParseUserRole(t *testing.T) {
	r, ok := ParseUserRole(" governing_body ")
	assert.True(t, ok)
	assert.Equal(t, RoleGoverningBody, r)

	_, ok = ParseUserRole("root")
	assert.False(t, ok)
}

func TestCanViewDirectory(t *testing.T) {
	assert.False(t, (&AlumniRecord{Status: StatusPending, UserRole: RoleUser}).CanViewDirectory())
	assert.True(t, (&AlumniRecord{Status: StatusApproved, UserRole: RoleAlumni}).CanViewDirectory())
	assert.True(t, (&AlumniRecord{Status: StatusPending, UserRole: RoleTreasurer}).CanViewDirectory())
}

func TestApprovedRole(t *testing.T) {
	assert.Equal(t, RoleAlumni, (&AlumniRecord{Role: CategoryAlumni, UserRole: RoleUser}).ApprovedRole())
	assert.Equal(t, RoleTeacher, (&AlumniRecord{Role: CategoryTeacher, UserRole: RoleUser}).ApprovedRole())
	assert.Equal(t, RoleAdmin, (&AlumniRecord{Role: CategoryAlumni, UserRole: RoleAdmin}).ApprovedRole())
}
