package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testSecret = "test_secret_key"

func newTestCodec() *Codec {
	return NewCodec(testSecret, 15*time.Minute, 30*24*time.Hour)
}

func TestCodec_IssueAndVerify_Access(t *testing.T) {
	c := newTestCodec()

	signed, err := c.IssueAccess("user@test.com")
	assert.NoError(t, err)
	assert.NotEmpty(t, signed)

	claims, err := c.Verify(signed)
	assert.NoError(t, err)
	assert.Equal(t, "user@test.com", claims.Subject)
	assert.Equal(t, KindAccess, claims.Kind)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestCodec_IssueAndVerify_Refresh(t *testing.T) {
	c := newTestCodec()

	signed, err := c.IssueRefresh("user@test.com")
	assert.NoError(t, err)

	claims, err := c.Verify(signed)
	assert.NoError(t, err)
	assert.Equal(t, KindRefresh, claims.Kind)
}

func TestCodec_Verify_Expired(t *testing.T) {
	//有効期限が過去のトークンを直接作る
	c := NewCodec(testSecret, -1*time.Minute, -1*time.Minute)

	signed, err := c.IssueAccess("user@test.com")
	assert.NoError(t, err)

	_, err = c.Verify(signed)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestCodec_Verify_Tampered(t *testing.T) {
	c := newTestCodec()

	signed, err := c.IssueAccess("user@test.com")
	assert.NoError(t, err)

	//署名部の途中の1文字を変える
	dot := strings.LastIndex(signed, ".")
	b := []byte(signed)
	pos := dot + (len(b)-dot)/2
	if b[pos] == 'A' {
		b[pos] = 'B'
	} else {
		b[pos] = 'A'
	}

	_, err = c.Verify(string(b))
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestCodec_Verify_WrongSecret(t *testing.T) {
	c := newTestCodec()
	other := NewCodec("another_secret", 15*time.Minute, 30*24*time.Hour)

	signed, err := other.IssueAccess("user@test.com")
	assert.NoError(t, err)

	_, err = c.Verify(signed)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestCodec_Verify_Malformed(t *testing.T) {
	c := newTestCodec()

	_, err := c.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestCodec_RemainingTTL(t *testing.T) {
	c := newTestCodec()

	signed, err := c.IssueAccess("user@test.com")
	assert.NoError(t, err)

	ttl, err := c.RemainingTTL(signed)
	assert.NoError(t, err)
	assert.Greater(t, ttl, 14*time.Minute)
	assert.LessOrEqual(t, ttl, 15*time.Minute)
}

func TestCodec_RemainingTTL_Expired(t *testing.T) {
	expired := NewCodec(testSecret, -1*time.Minute, -1*time.Minute)

	signed, err := expired.IssueAccess("user@test.com")
	assert.NoError(t, err)

	//期限切れでも署名検証は通したうえでErrTokenExpiredを返す
	c := newTestCodec()
	_, err = c.RemainingTTL(signed)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
