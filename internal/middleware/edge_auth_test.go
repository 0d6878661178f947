package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

// =====================
// スタブ
// =====================

type stubRevocations struct {
	revoked bool
	err     error
	calls   int
}

func (s *stubRevocations) Contains(ctx context.Context, token string) (bool, error) {
	s.calls++
	return s.revoked, s.err
}

type stubVerifier struct {
	subject string
	err     error
	calls   int
	last    string
}

func (s *stubVerifier) Verify(ctx context.Context, token string) (string, error) {
	s.calls++
	s.last = token
	return s.subject, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// nextまで到達したかとその時点のヘッダを記録する
func recordingNext(reached *bool, seen *http.Header) echo.HandlerFunc {
	return func(c echo.Context) error {
		*reached = true
		*seen = c.Request().Header.Clone()
		return c.NoContent(http.StatusOK)
	}
}

func runEdgeAuth(
	t *testing.T,
	path string,
	cookie *http.Cookie,
	rev *stubRevocations,
	ver *stubVerifier,
) (*httptest.ResponseRecorder, bool, http.Header) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var reached bool
	var seen http.Header
	mw := EdgeAuth("gateway-code", []string{"/auth"}, rev, ver, testLogger())
	err := mw(recordingNext(&reached, &seen))(c)
	assert.NoError(t, err)

	return rec, reached, seen
}

func TestEdgeAuth_PublicPrefixBypassesChecks(t *testing.T) {
	rev := &stubRevocations{}
	ver := &stubVerifier{}

	rec, reached, seen := runEdgeAuth(t, "/auth/login", nil, rev, ver)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
	//バイパスでもエッジタグは付く
	assert.Equal(t, "gateway-code", seen.Get(HeaderGatewayFor))
	assert.Equal(t, 0, rev.calls)
	assert.Equal(t, 0, ver.calls)
}

func TestEdgeAuth_MissingCookie(t *testing.T) {
	rev := &stubRevocations{}
	ver := &stubVerifier{}

	rec, reached, _ := runEdgeAuth(t, "/text/create-new-document", nil, rev, ver)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
	//リモート検証は呼ばれない
	assert.Equal(t, 0, ver.calls)
}

func TestEdgeAuth_RevokedToken(t *testing.T) {
	rev := &stubRevocations{revoked: true}
	ver := &stubVerifier{subject: "user@test.com"}

	cookie := &http.Cookie{Name: AccessTokenCookie, Value: "revoked-token"}
	rec, reached, _ := runEdgeAuth(t, "/text/all-user-documents", cookie, rev, ver)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
	assert.Equal(t, 0, ver.calls)
}

func TestEdgeAuth_BlacklistDownFailsOpen(t *testing.T) {
	rev := &stubRevocations{err: errors.New("redis down")}
	ver := &stubVerifier{subject: "user@test.com"}

	cookie := &http.Cookie{Name: AccessTokenCookie, Value: "good-token"}
	rec, reached, seen := runEdgeAuth(t, "/text/all-user-documents", cookie, rev, ver)

	//キャッシュ停止では落とさず検証へ進む
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
	assert.Equal(t, 1, ver.calls)
	assert.Equal(t, "user@test.com", seen.Get("From"))
}

func TestEdgeAuth_VerifyRejected(t *testing.T) {
	rev := &stubRevocations{}
	ver := &stubVerifier{err: errors.New("bad token")}

	cookie := &http.Cookie{Name: AccessTokenCookie, Value: "bad-token"}
	rec, reached, _ := runEdgeAuth(t, "/text/all-user-documents", cookie, rev, ver)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestEdgeAuth_SuccessAttachesIdentity(t *testing.T) {
	rev := &stubRevocations{}
	ver := &stubVerifier{subject: "user@test.com"}

	cookie := &http.Cookie{Name: AccessTokenCookie, Value: "good-token"}
	rec, reached, seen := runEdgeAuth(t, "/text/all-user-documents", cookie, rev, ver)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
	assert.Equal(t, "good-token", ver.last)
	assert.Equal(t, "gateway-code", seen.Get(HeaderGatewayFor))
	assert.Equal(t, "user@test.com", seen.Get("From"))
	assert.Equal(t, "Bearer good-token", seen.Get("Authorization"))
}

func TestInternalGuard_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/text/create-new-document", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var reached bool
	var seen http.Header
	err := InternalGuard("gateway-code", testLogger())(recordingNext(&reached, &seen))(c)
	assert.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
	assert.Contains(t, rec.Body.String(), "Access Denied")
}

func TestInternalGuard_WrongCode(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/text/create-new-document", nil)
	req.Header.Set(HeaderGatewayFor, "spoofed")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var reached bool
	var seen http.Header
	err := InternalGuard("gateway-code", testLogger())(recordingNext(&reached, &seen))(c)
	assert.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
}

func TestInternalGuard_ValidCode(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/text/create-new-document", nil)
	req.Header.Set(HeaderGatewayFor, "gateway-code")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var reached bool
	var seen http.Header
	err := InternalGuard("gateway-code", testLogger())(recordingNext(&reached, &seen))(c)
	assert.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}
