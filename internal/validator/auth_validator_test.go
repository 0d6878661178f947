package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRegister(t *testing.T) {
	ctx := context.Background()
	v := NewAuthValidator()

	cases := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{"ok", "user@test.com", "password123", false},
		{"空email", "", "password123", true},
		{"空password", "user@test.com", "", true},
		{"形式不正", "not-an-email", "password123", true},
		{"ドメインなし", "user@", "password123", true},
		{"短いpassword", "user@test.com", "short", true},
		{"8文字ちょうど", "user@test.com", "12345678", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateRegister(ctx, tc.email, tc.password)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateLogin(t *testing.T) {
	ctx := context.Background()
	v := NewAuthValidator()

	assert.NoError(t, v.ValidateLogin(ctx, "user@test.com", "whatever"))
	assert.ErrorIs(t, v.ValidateLogin(ctx, "", "whatever"), ErrInvalidInput)
	assert.ErrorIs(t, v.ValidateLogin(ctx, "broken", "whatever"), ErrInvalidInput)
	//ログインでは長さは見ない（既存ユーザーのパスワードを弾かない）
	assert.NoError(t, v.ValidateLogin(ctx, "user@test.com", "abc"))
}

func TestValidateNewPassword(t *testing.T) {
	ctx := context.Background()
	v := NewAuthValidator()

	assert.NoError(t, v.ValidateNewPassword(ctx, "password123"))
	assert.ErrorIs(t, v.ValidateNewPassword(ctx, "   "), ErrInvalidInput)
	assert.ErrorIs(t, v.ValidateNewPassword(ctx, "short"), ErrInvalidInput)
}
