package server

import (
	"log/slog"
	"net/url"

	"app/internal/handler"
	appmw "app/internal/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// NewAuthServerはAuthサービスのechoインスタンスを組み立てる。
func NewAuthServer(authH *handler.AuthHandler, serviceCode string, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	registerAuthRoutes(e, authH, serviceCode, logger)

	return e
}

// NewCentralServerはCentralサービスのechoインスタンスを組み立てる。
// /text配下はGateway経由のリクエストしか受けない。
func NewCentralServer(docH *handler.DocumentHandler, serviceCode string, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	registerCentralRoutes(e, docH, serviceCode, logger)

	return e
}

// NewGatewayはエッジのリバースプロキシを組み立てる。
// EdgeAuthがプロキシより先に走る。
func NewGateway(
	authURL string,
	centralURL string,
	serviceCode string,
	revocations appmw.Revocations,
	verifier appmw.TokenVerifier,
	logger *slog.Logger,
) (*echo.Echo, error) {
	authTarget, err := url.Parse(authURL)
	if err != nil {
		return nil, err
	}
	centralTarget, err := url.Parse(centralURL)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(appmw.EdgeAuth(serviceCode, []string{"/auth"}, revocations, verifier, logger))

	auth := e.Group("/auth")
	auth.Use(echomw.Proxy(echomw.NewRoundRobinBalancer([]*echomw.ProxyTarget{
		{URL: authTarget},
	})))

	text := e.Group("/text")
	text.Use(echomw.Proxy(echomw.NewRoundRobinBalancer([]*echomw.ProxyTarget{
		{URL: centralTarget},
	})))

	return e, nil
}
