package server

import (
	"log/slog"

	"app/internal/handler"
	appmw "app/internal/middleware"

	"github.com/labstack/echo/v4"
)

func registerAuthRoutes(e *echo.Echo, authH *handler.AuthHandler, serviceCode string, logger *slog.Logger) {
	g := e.Group("/auth")

	g.POST("/register", authH.Register)
	g.POST("/verify", authH.Verify)
	g.POST("/login", authH.Login)
	g.POST("/refresh", authH.Refresh)
	g.POST("/logout", authH.Logout)
	g.POST("/validate-access-token", authH.ValidateAccessToken)
	g.POST("/forgot-password", authH.ForgotPassword)
	g.POST("/get-new-password", authH.GetNewPassword)

	//Gateway専用。外部からの直接呼び出しは403。
	g.POST("/validate", authH.ValidateForGateway, appmw.InternalGuard(serviceCode, logger))
}

func registerCentralRoutes(e *echo.Echo, docH *handler.DocumentHandler, serviceCode string, logger *slog.Logger) {
	g := e.Group("/text", appmw.InternalGuard(serviceCode, logger))

	g.POST("/process-text", docH.ProcessText)
	g.POST("/create-new-user", docH.CreateUser)
	g.GET("/all-user-documents", docH.ListDocuments)
	g.POST("/create-new-document", docH.CreateDocument)
	g.PUT("/save-document-changes", docH.SaveDocument)
	g.DELETE("/delete-document", docH.DeleteDocument)
}
