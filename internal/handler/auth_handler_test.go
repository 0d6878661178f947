package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"app/internal/domain/model"
	"app/internal/revocation"
	"app/internal/token"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

// =====================
// インメモリのスタブ一式（DBなしでハンドラを通す）
// =====================

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[string]*model.User{}}
}

func (r *memoryUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.Email] = &cp
	return nil
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memoryUserRepo) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.Email] = &cp
	return nil
}

type noopMailer struct{}

func (noopMailer) SendCode(email string, code string) bool { return true }

type noopEvents struct{}

func (noopEvents) Publish(ctx context.Context, key string, value []byte) error { return nil }

const handlerTestEmail = "user@test.com"
const handlerTestPassword = "password123"

func newTestHandler(t *testing.T) (*AuthHandler, *memoryUserRepo) {
	t.Helper()

	users := newMemoryUserRepo()
	uc := usecase.NewAuthUsecase(
		users,
		token.NewCodec("test_secret_key", usecase.AccessTokenTTL, usecase.RefreshTokenTTL),
		revocation.NewMemoryBlacklist(),
		noopMailer{},
		noopEvents{},
		validator.NewAuthValidator(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return NewAuthHandler(uc), users
}

func seedVerifiedUser(t *testing.T, users *memoryUserRepo) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(handlerTestPassword), bcrypt.MinCost)
	assert.NoError(t, err)
	assert.NoError(t, users.Create(context.Background(), &model.User{
		ID:           1,
		Email:        handlerTestEmail,
		PasswordHash: string(hash),
		Verified:     true,
	}))
}

func doJSON(h echo.HandlerFunc, method string, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	_ = h(e.NewContext(req, rec))
	return rec
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Login_SetsBothCookies(t *testing.T) {
	h, users := newTestHandler(t)
	seedVerifiedUser(t, users)

	rec := doJSON(h.Login, http.MethodPost,
		`{"email":"`+handlerTestEmail+`","password":"`+handlerTestPassword+`"}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	access := cookieByName(rec, accessTokenCookie)
	assert.NotNil(t, access)
	assert.NotEmpty(t, access.Value)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, "/", access.Path)
	assert.Equal(t, int(usecase.AccessTokenTTL.Seconds()), access.MaxAge)

	refresh := cookieByName(rec, refreshTokenCookie)
	assert.NotNil(t, refresh)
	assert.NotEmpty(t, refresh.Value)
	assert.Equal(t, int(usecase.RefreshTokenTTL.Seconds()), refresh.MaxAge)
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	h, users := newTestHandler(t)
	seedVerifiedUser(t, users)

	rec := doJSON(h.Login, http.MethodPost,
		`{"email":"`+handlerTestEmail+`","password":"WrongPW12345"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
	assert.Nil(t, cookieByName(rec, accessTokenCookie))
}

func TestAuthHandler_Register_Conflict(t *testing.T) {
	h, users := newTestHandler(t)
	seedVerifiedUser(t, users)

	rec := doJSON(h.Register, http.MethodPost,
		`{"email":"`+handlerTestEmail+`","password":"`+handlerTestPassword+`"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthHandler_Refresh_MissingCookie(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(h.Refresh, http.MethodPost, `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_RefreshFlow(t *testing.T) {
	h, users := newTestHandler(t)
	seedVerifiedUser(t, users)

	login := doJSON(h.Login, http.MethodPost,
		`{"email":"`+handlerTestEmail+`","password":"`+handlerTestPassword+`"}`)
	assert.Equal(t, http.StatusOK, login.Code)
	refresh := cookieByName(login, refreshTokenCookie)
	assert.NotNil(t, refresh)

	rec := doJSON(h.Refresh, http.MethodPost, `{}`,
		&http.Cookie{Name: refreshTokenCookie, Value: refresh.Value})
	assert.Equal(t, http.StatusOK, rec.Code)

	access := cookieByName(rec, accessTokenCookie)
	assert.NotNil(t, access)
	assert.NotEmpty(t, access.Value)
}

func TestAuthHandler_Logout_ClearsCookiesAndRevokes(t *testing.T) {
	h, users := newTestHandler(t)
	seedVerifiedUser(t, users)

	login := doJSON(h.Login, http.MethodPost,
		`{"email":"`+handlerTestEmail+`","password":"`+handlerTestPassword+`"}`)
	accessValue := cookieByName(login, accessTokenCookie).Value

	rec := doJSON(h.Logout, http.MethodPost, `{}`,
		&http.Cookie{Name: accessTokenCookie, Value: accessValue})
	assert.Equal(t, http.StatusOK, rec.Code)

	//両cookieが破棄される
	access := cookieByName(rec, accessTokenCookie)
	assert.NotNil(t, access)
	assert.Empty(t, access.Value)
	assert.Equal(t, -1, access.MaxAge)

	refresh := cookieByName(rec, refreshTokenCookie)
	assert.NotNil(t, refresh)
	assert.Equal(t, -1, refresh.MaxAge)

	//失効済みaccessは署名が生きていてももう通らない
	again := doJSON(h.ValidateAccessToken, http.MethodPost, `{}`,
		&http.Cookie{Name: accessTokenCookie, Value: accessValue})
	assert.Equal(t, http.StatusUnauthorized, again.Code)

	viaGateway := doJSON(h.ValidateForGateway, http.MethodPost, `{"token":"`+accessValue+`"}`)
	assert.Equal(t, http.StatusUnauthorized, viaGateway.Code)
}

func TestAuthHandler_ValidateForGateway_ReturnsPlainEmail(t *testing.T) {
	h, users := newTestHandler(t)
	seedVerifiedUser(t, users)

	login := doJSON(h.Login, http.MethodPost,
		`{"email":"`+handlerTestEmail+`","password":"`+handlerTestPassword+`"}`)
	accessValue := cookieByName(login, accessTokenCookie).Value

	rec := doJSON(h.ValidateForGateway, http.MethodPost, `{"token":"`+accessValue+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	//JSONではなく素のemail文字列
	assert.Equal(t, handlerTestEmail, rec.Body.String())
}

func TestAuthHandler_ValidateForGateway_BadToken(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doJSON(h.ValidateForGateway, http.MethodPost, `{"token":"garbage"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
