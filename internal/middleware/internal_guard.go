package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// GatewayとAuth/Centralが帯域外で共有するタグのヘッダ名
const HeaderGatewayFor = "X-Gateway-For"

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

// InternalGuardは信頼済みエッジ以外からの内部エンドポイント呼び出しを弾く。
func InternalGuard(code string, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := c.Request().Header.Get(HeaderGatewayFor)
			if got != code {
				logger.Warn("internal request rejected",
					slog.String("path", c.Request().URL.Path),
				)
				return c.String(http.StatusForbidden, "Access Denied")
			}
			return next(c)
		}
	}
}
