package model

import "time"

type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	Verified     bool   `gorm:"not null;default:false"`
	//メール確認用の6桁コード（確認済みならnil）
	VerificationCode *string `gorm:"type:varchar(6)"`
	//現在有効なrefresh_token（ログアウト状態ならnil）。
	//上書きされた時点で古いトークンはrefreshに使えなくなる。
	RefreshToken *string `gorm:"type:text"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
