package handler

import (
	"errors"
	"net/http"
	"time"

	"app/internal/token"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/labstack/echo/v4"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

type AuthHandler struct {
	uc *usecase.AuthUsecase
}

// DI
func NewAuthHandler(uc *usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// /auth/register /auth/login /auth/get-new-password のリクエストボディ。
type emailPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// /auth/verify のリクエストボディ。
type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// /auth/forgot-password のリクエストボディ。
type emailRequest struct {
	Email string `json:"email"`
}

// /auth/validate のリクエストボディ（Gatewayから）。
type validateRequest struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// RegisterはPOST /auth/registerのハンドラ
func (h *AuthHandler) Register(c echo.Context) error {
	var req emailPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
	}

	out, err := h.uc.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// VerifyはPOST /auth/verify のハンドラ。コードを照合して有効化する。
func (h *AuthHandler) Verify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
	}

	if err := h.uc.VerifyEmail(c.Request().Context(), req.Email, req.Code); err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "email verified"})
}

// LoginはPOST /auth/login のハンドラ。トークンはcookieだけで返す。
func (h *AuthHandler) Login(c echo.Context) error {
	var req emailPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
	}

	res, err := h.uc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.writeError(c, err)
	}

	setTokenCookie(c, accessTokenCookie, res.AccessToken, usecase.AccessTokenTTL)
	setTokenCookie(c, refreshTokenCookie, res.RefreshToken, usecase.RefreshTokenTTL)

	return c.JSON(http.StatusOK, messageResponse{Message: "login success"})
}

// RefreshはPOST /auth/refresh のハンドラ。新しいaccessトークンだけ発行する。
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(refreshTokenCookie)
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "UNAUTHORIZED"})
	}

	accessToken, err := h.uc.Refresh(c.Request().Context(), cookie.Value)
	if err != nil {
		return h.writeError(c, err)
	}

	setTokenCookie(c, accessTokenCookie, accessToken, usecase.AccessTokenTTL)

	return c.JSON(http.StatusOK, messageResponse{Message: "access token refreshed"})
}

// LogoutはPOST /auth/logout のハンドラ。両cookieを空にする。
func (h *AuthHandler) Logout(c echo.Context) error {
	cookie, err := c.Cookie(accessTokenCookie)
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "UNAUTHORIZED"})
	}

	if err := h.uc.Logout(c.Request().Context(), cookie.Value); err != nil {
		return h.writeError(c, err)
	}

	clearTokenCookie(c, accessTokenCookie)
	clearTokenCookie(c, refreshTokenCookie)

	return c.JSON(http.StatusOK, messageResponse{Message: "logout success"})
}

// ValidateForGatewayはGateway専用。成功ならsubject（email）を素の文字列で返す。
func (h *AuthHandler) ValidateForGateway(c echo.Context) error {
	var req validateRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
	}

	email, err := h.uc.ValidateAccess(c.Request().Context(), req.Token)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.String(http.StatusOK, email)
}

// ValidateAccessTokenはcookieのaccessトークンを検証する。
func (h *AuthHandler) ValidateAccessToken(c echo.Context) error {
	cookie, err := c.Cookie(accessTokenCookie)
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "UNAUTHORIZED"})
	}

	if _, err := h.uc.ValidateAccess(c.Request().Context(), cookie.Value); err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"valid": "true"})
}

// ForgotPasswordはPOST /auth/forgot-password のハンドラ
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailRequest
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
	}

	if err := h.uc.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "reset code sent"})
}

// GetNewPasswordはPOST /auth/get-new-password のハンドラ
func (h *AuthHandler) GetNewPassword(c echo.Context) error {
	var req emailPasswordRequest
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
	}

	if err := h.uc.SetNewPassword(c.Request().Context(), req.Email, req.Password); err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "password updated"})
}

// usecase/tokenのsentinelエラーをHTTPへ写す
func (h *AuthHandler) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, validator.ErrInvalidInput),
		errors.Is(err, usecase.ErrInvalidCode),
		errors.Is(err, token.ErrMalformedToken):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})

	case errors.Is(err, usecase.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "NOT_FOUND"})

	case errors.Is(err, usecase.ErrAlreadyExists),
		errors.Is(err, usecase.ErrAlreadyVerified):
		return c.JSON(http.StatusConflict, errorResponse{Error: "CONFLICT"})

	case errors.Is(err, usecase.ErrNotVerified):
		return c.JSON(http.StatusForbidden, errorResponse{Error: "FORBIDDEN"})

	case errors.Is(err, usecase.ErrInvalidCredentials),
		errors.Is(err, usecase.ErrStaleToken),
		errors.Is(err, usecase.ErrRevoked),
		errors.Is(err, token.ErrBadSignature),
		errors.Is(err, token.ErrTokenExpired),
		errors.Is(err, token.ErrInvalidToken):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "UNAUTHORIZED"})

	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "INTERNAL"})
	}
}

// tokenをCookieにセット。
func setTokenCookie(c echo.Context, name string, value string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

// Cookieを空にする
func clearTokenCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
