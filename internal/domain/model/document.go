package model

import "time"

// CoreUserはCentralサービス側のユーザー台帳。
// Authサービスの確認完了イベント（new-userトピック）から作られる。
type CoreUser struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"-"`
}

type Document struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"documentId"`
	OwnerEmail string    `gorm:"not null;index" json:"-"`
	Name       string    `gorm:"type:varchar(255);not null" json:"documentName"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}
