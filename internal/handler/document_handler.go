package handler

import (
	"errors"
	"net/http"

	"app/internal/bridge"
	"app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type DocumentHandler struct {
	uc *usecase.DocumentUsecase
}

// DI
func NewDocumentHandler(uc *usecase.DocumentUsecase) *DocumentHandler {
	return &DocumentHandler{uc: uc}
}

// /text/process-text のリクエストボディ。
type processTextRequest struct {
	Instruction string `json:"instruction"`
	Text        string `json:"text"`
}

// ProcessTextはPOST /text/process-text のハンドラ。workerの応答を待って返す。
func (h *DocumentHandler) ProcessText(c echo.Context) error {
	email := c.Request().Header.Get("From")
	if email == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
	}

	var req processTextRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
	}

	res, err := h.uc.ProcessText(c.Request().Context(), req.Instruction, req.Text)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// CreateUserはPOST /text/create-new-user のハンドラ。Authサービスから呼ばれる。
func (h *DocumentHandler) CreateUser(c echo.Context) error {
	email := c.QueryParam("userEmail")
	if email == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
	}

	if err := h.uc.CreateUser(c.Request().Context(), email); err != nil {
		return h.writeError(c, err)
	}

	return c.NoContent(http.StatusOK)
}

// ListDocumentsはGET /text/all-user-documents のハンドラ
func (h *DocumentHandler) ListDocuments(c echo.Context) error {
	email := c.Request().Header.Get("From")
	if email == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
	}

	docs, err := h.uc.ListDocuments(c.Request().Context(), email)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, docs)
}

// CreateDocumentはPOST /text/create-new-document のハンドラ
func (h *DocumentHandler) CreateDocument(c echo.Context) error {
	email := c.Request().Header.Get("From")
	if email == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
	}

	doc, err := h.uc.CreateDocument(c.Request().Context(), email)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, doc)
}

// SaveDocumentはPUT /text/save-document-changes のハンドラ
func (h *DocumentHandler) SaveDocument(c echo.Context) error {
	email := c.Request().Header.Get("From")
	if email == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
	}

	var req usecase.SaveDocumentInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
	}

	if err := h.uc.SaveDocument(c.Request().Context(), req, email); err != nil {
		return h.writeError(c, err)
	}

	return c.NoContent(http.StatusOK)
}

// DeleteDocumentはDELETE /text/delete-document のハンドラ
func (h *DocumentHandler) DeleteDocument(c echo.Context) error {
	documentID := c.QueryParam("documentId")
	email := c.QueryParam("userEmail")
	if documentID == "" || email == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})
	}

	if err := h.uc.DeleteDocument(c.Request().Context(), documentID, email); err != nil {
		return h.writeError(c, err)
	}

	return c.NoContent(http.StatusOK)
}

func (h *DocumentHandler) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, usecase.ErrValidation),
		errors.Is(err, usecase.ErrOwnerNotFound):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "VALIDATION_ERROR"})

	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "NOT_FOUND"})

	case errors.Is(err, bridge.ErrTimeout):
		return c.JSON(http.StatusGatewayTimeout, errorResponse{Error: "PROCESSING_TIMEOUT"})

	case errors.Is(err, bridge.ErrPublishFailed):
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "PROCESSING_UNAVAILABLE"})

	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "INTERNAL"})
	}
}
