package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "79991234567", want: "79991234567"},
		{name: "formatted", input: "+7 (999) 123-45-67", want: "79991234567"},
		{name: "starts_with_8", input: "89991234567", wantErr: true},
		{name: "too_short", input: "7999123456", wantErr: true},
		{name: "letters", input: "7999123456a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("secret123"))
	assert.Error(t, ValidatePassword("short1"))
	assert.Error(t, ValidatePassword("onlyletters"))
	assert.Error(t, ValidatePassword("12345678"))
}

func TestUserRole(t *testing.T) {
	assert.True(t, (&User{Role: UserRoleAdmin}).IsAdmin())
	assert.True(t, (&User{Role: UserRoleOperator}).IsStaff())
	assert.False(t, (&User{Role: UserRoleUser}).IsStaff())
	assert.False(t, UserRole("root").IsValid())
}
