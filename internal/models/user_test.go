package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_SanitizedDropsSecrets(t *testing.T) {
	token := "abc"
	expires := time.Now()
	u := &User{
		ID:                   uuid.New(),
		Email:                "a@b.c",
		PasswordHash:         "hash",
		VerificationToken:    &token,
		ResetPasswordToken:   &token,
		ResetPasswordExpires: &expires,
	}

	s := u.Sanitized()
	assert.Empty(t, s.PasswordHash)
	assert.Nil(t, s.VerificationToken)
	assert.Nil(t, s.ResetPasswordToken)
	assert.Nil(t, s.ResetPasswordExpires)
	assert.NotNil(t, s.Plans)
	assert.Equal(t, "hash", u.PasswordHash, "original must not change")

	var nilUser *User
	assert.Nil(t, nilUser.Sanitized())
}

func TestUser_JSONNeverCarriesSecrets(t *testing.T) {
	token := "deadbeef"
	u := User{PasswordHash: "$2a$08$hash", VerificationToken: &token, ResetPasswordToken: &token}

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hash")
	assert.NotContains(t, string(raw), token)
}

func TestPlan_Active(t *testing.T) {
	tests := []struct {
		status PlanStatus
		want   bool
	}{
		{PlanStatusPaid, true},
		{PlanStatusTrial, true},
		{PlanStatusPending, false},
		{PlanStatusCancelled, false},
		{PlanStatusExpired, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, Plan{Status: tt.status}.Active())
		})
	}
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleAdministrator.Valid())
	assert.True(t, RoleManager.Valid())
	assert.True(t, RoleEmployee.Valid())
	assert.False(t, Role("OWNER").Valid())
}
