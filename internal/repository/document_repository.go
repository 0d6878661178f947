package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// Central側ユーザー台帳の永続化だけを約束。
type CoreUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.CoreUser, error)
	Create(ctx context.Context, user *model.CoreUser) error
}

// ドキュメントの永続化（保存・取得）だけを約束。
type DocumentRepository interface {
	Create(ctx context.Context, d model.Document) (model.Document, error)
	ListByOwner(ctx context.Context, ownerEmail string) ([]model.Document, error)
	//所有者が一致する1件のみを更新。0件更新はErrNotFound。
	Update(ctx context.Context, d model.Document) error
	//所有者が一致する1件のみを削除。0件削除はErrNotFound。
	Delete(ctx context.Context, documentID string, ownerEmail string) error
}
