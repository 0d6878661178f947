package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type CoreUserGormRepository struct {
	db *gorm.DB
}

// DI
func NewCoreUserGormRepository(db *gorm.DB) *CoreUserGormRepository {
	return &CoreUserGormRepository{db: db}
}

// emailで台帳ユーザーを取得。見つからなければ(nil, nil)。
func (r *CoreUserGormRepository) FindByEmail(ctx context.Context, email string) (*model.CoreUser, error) {
	var u model.CoreUser

	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&u).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &u, nil
}

// 台帳ユーザーの作成
func (r *CoreUserGormRepository) Create(ctx context.Context, user *model.CoreUser) error {
	return r.db.WithContext(ctx).Create(user).Error
}

type DocumentGormRepository struct {
	db *gorm.DB
}

// DI
func NewDocumentGormRepository(db *gorm.DB) *DocumentGormRepository {
	return &DocumentGormRepository{db: db}
}

// ドキュメントの作成
func (r *DocumentGormRepository) Create(ctx context.Context, d model.Document) (model.Document, error) {
	if err := r.db.WithContext(ctx).Create(&d).Error; err != nil {
		return model.Document{}, err
	}
	return d, nil
}

// 所有者のドキュメントを更新日時の新しい順で返す
func (r *DocumentGormRepository) ListByOwner(ctx context.Context, ownerEmail string) ([]model.Document, error) {
	var docs []model.Document

	err := r.db.WithContext(ctx).
		Where("owner_email = ?", ownerEmail).
		Order("updated_at desc").
		Find(&docs).Error

	if err != nil {
		return []model.Document{}, err
	}

	return docs, nil
}

// ドキュメントの更新（所有者一致のみ）
func (r *DocumentGormRepository) Update(ctx context.Context, d model.Document) error {
	res := r.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("id = ? AND owner_email = ?", d.ID, d.OwnerEmail).
		Updates(map[string]interface{}{
			"name": d.Name,
			"text": d.Text,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ドキュメント削除（所有者一致のみ）
func (r *DocumentGormRepository) Delete(ctx context.Context, documentID string, ownerEmail string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND owner_email = ?", documentID, ownerEmail).
		Delete(&model.Document{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
