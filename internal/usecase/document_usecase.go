package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"app/internal/bridge"
	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/google/uuid"
)

var (
	//400 入力不足
	ErrValidation = errors.New("validation error")
	//400 台帳にいないユーザー
	ErrOwnerNotFound = errors.New("owner not found")
)

const defaultDocumentName = "新しいドキュメント"

// テキスト処理（ブローカー往復）の約束
type TextProcessor interface {
	Submit(ctx context.Context, instruction string, text string) (bridge.Result, error)
}

type DocumentUsecase struct {
	owners    repo.CoreUserRepository
	documents repo.DocumentRepository
	processor TextProcessor
	logger    *slog.Logger
}

// DI
func NewDocumentUsecase(
	owners repo.CoreUserRepository,
	documents repo.DocumentRepository,
	processor TextProcessor,
	logger *slog.Logger,
) *DocumentUsecase {
	return &DocumentUsecase{
		owners:    owners,
		documents: documents,
		processor: processor,
		logger:    logger,
	}
}

// CreateUserは台帳にユーザーを登録する。既存なら何もしない（冪等）。
func (u *DocumentUsecase) CreateUser(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrValidation
	}

	existing, err := u.owners.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		u.logger.Info("core user already exists", slog.String("email", email))
		return nil
	}

	return u.owners.Create(ctx, &model.CoreUser{Email: email})
}

// CreateDocumentは空のドキュメントを作る。
func (u *DocumentUsecase) CreateDocument(ctx context.Context, ownerEmail string) (model.Document, error) {
	if err := u.requireOwner(ctx, ownerEmail); err != nil {
		return model.Document{}, err
	}

	doc := model.Document{
		ID:         uuid.NewString(),
		OwnerEmail: ownerEmail,
		Name:       defaultDocumentName,
		Text:       "",
	}

	return u.documents.Create(ctx, doc)
}

// ListDocumentsは所有者の全ドキュメントを返す。
func (u *DocumentUsecase) ListDocuments(ctx context.Context, ownerEmail string) ([]model.Document, error) {
	if err := u.requireOwner(ctx, ownerEmail); err != nil {
		return nil, err
	}

	return u.documents.ListByOwner(ctx, ownerEmail)
}

// PUT /text/save-document-changes の入力DTO
type SaveDocumentInput struct {
	DocumentID string `json:"documentId"`
	Name       string `json:"documentName"`
	Text       string `json:"text"`
}

// SaveDocumentは名前と本文を更新する。
func (u *DocumentUsecase) SaveDocument(ctx context.Context, in SaveDocumentInput, ownerEmail string) error {
	if strings.TrimSpace(in.DocumentID) == "" {
		return ErrValidation
	}

	if err := u.requireOwner(ctx, ownerEmail); err != nil {
		return err
	}

	return u.documents.Update(ctx, model.Document{
		ID:         in.DocumentID,
		OwnerEmail: ownerEmail,
		Name:       in.Name,
		Text:       in.Text,
	})
}

// DeleteDocumentは1件削除。対象がなければErrNotFound。
func (u *DocumentUsecase) DeleteDocument(ctx context.Context, documentID string, ownerEmail string) error {
	if strings.TrimSpace(documentID) == "" {
		return ErrValidation
	}

	return u.documents.Delete(ctx, documentID, ownerEmail)
}

// ProcessTextはブローカー経由の処理を同期的に待って返す。
func (u *DocumentUsecase) ProcessText(ctx context.Context, instruction string, text string) (bridge.Result, error) {
	if strings.TrimSpace(instruction) == "" || strings.TrimSpace(text) == "" {
		return bridge.Result{}, ErrValidation
	}

	return u.processor.Submit(ctx, instruction, text)
}

func (u *DocumentUsecase) requireOwner(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrValidation
	}

	owner, err := u.owners.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if owner == nil {
		return ErrOwnerNotFound
	}
	return nil
}
