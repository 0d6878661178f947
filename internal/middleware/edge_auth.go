package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// accessトークンを載せるcookie名
const AccessTokenCookie = "access_token"

// 失効集合への問い合わせの約束
type Revocations interface {
	Contains(ctx context.Context, token string) (bool, error)
}

// Authサービスへのリモート検証の約束
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (subject string, err error)
}

// EdgeAuthはGatewayの全リクエストを検査するパイプライン。
// すべての分岐はallow/denyで必ず終わる（内部エラーを外に漏らさない）。
func EdgeAuth(
	code string,
	publicPrefixes []string,
	revocations Revocations,
	verifier TokenVerifier,
	logger *slog.Logger,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			//どの分岐で転送する場合でも、先にエッジタグを付ける
			req.Header.Set(HeaderGatewayFor, code)

			path := req.URL.Path
			for _, prefix := range publicPrefixes {
				if strings.HasPrefix(path, prefix) {
					return next(c)
				}
			}

			//cookieからaccessトークンを取り出す
			cookie, err := c.Cookie(AccessTokenCookie)
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("missing token"))
			}
			tokenValue := cookie.Value

			//ブラックリスト照会。キャッシュ停止時はフェイルオープン
			//（エッジの可用性をブラックリスト強制より優先する。意図的なトレードオフ）
			revoked, err := revocations.Contains(req.Context(), tokenValue)
			if err != nil {
				logger.Warn("blacklist unavailable, allowing request",
					slog.String("path", path),
					slog.String("error", err.Error()),
				)
				revoked = false
			}
			if revoked {
				return c.JSON(http.StatusUnauthorized, errorJSON("token revoked"))
			}

			//Authサービスでの検証。理由を問わず失敗は401
			email, err := verifier.Verify(req.Context(), tokenValue)
			if err != nil {
				logger.Info("token verify rejected",
					slog.String("path", path),
					slog.String("error", err.Error()),
				)
				return c.JSON(http.StatusUnauthorized, errorJSON("invalid token"))
			}

			//下流へ認証済みの身元を渡す
			req.Header.Set("From", email)
			req.Header.Set("Authorization", "Bearer "+tokenValue)

			return next(c)
		}
	}
}

// RemoteVerifierはAuthサービスのPOST /auth/validateを呼ぶ。
type RemoteVerifier struct {
	baseURL string
	code    string
	client  *http.Client
}

// DI
func NewRemoteVerifier(baseURL string, code string) *RemoteVerifier {
	return &RemoteVerifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		code:    code,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (string, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/auth/validate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	//Auth側のInternalGuardが再びエッジタグを要求しないように
	req.Header.Set(HeaderGatewayFor, v.code)

	resp, err := v.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("verify rejected: status %d", resp.StatusCode)
	}

	//レスポンスボディはsubject（email）の素の文字列
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", err
	}

	email := strings.TrimSpace(string(b))
	if email == "" {
		return "", fmt.Errorf("verify returned empty subject")
	}
	return email, nil
}
